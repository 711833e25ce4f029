package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/internal/ratelimit"
	apierrors "github.com/pribylovaa/go-access-service/internal/transport/http/errors"
)

// ClientIP возвращает ключ лимитера, хост из RemoteAddr.
// За прокси RemoteAddr заранее переписывает chi middleware.RealIP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit ограничивает частоту запросов по IP клиента.
//
// Поведение:
//   - каждый запрос учитывается до вызова обработчика;
//   - для правила FailedOnly успешный ответ (status < 400) возвращает
//     учтённый запрос через Refund, так конкурентные запросы не обходят лимит;
//   - при исчерпании лимита: 429/resource_exhausted с Retry-After;
//   - ошибка бэкенда лимитера логируется, запрос пропускается.
func RateLimit(l ratelimit.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		rule := l.Rule()

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)

			res, err := l.Hit(r.Context(), key)
			if err != nil {
				logLimiterError(r, rule, err)
			}

			setLimitHeaders(w, res)

			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				}
				log.From(r.Context()).Warn("rate_limited",
					slog.String("rule", rule.Name),
					slog.String("ip", key),
				)
				apierrors.WriteError(w, r, apierrors.ErrResourceExhausted)
				return
			}

			if !rule.FailedOnly || err != nil {
				next.ServeHTTP(w, r)
				return
			}

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			if sw.code() < http.StatusBadRequest {
				if err := l.Refund(context.WithoutCancel(r.Context()), key); err != nil {
					logLimiterError(r, rule, err)
				}
			}
		})
	}
}

func setLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	if res.Limit <= 0 {
		return
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
}

func logLimiterError(r *http.Request, rule ratelimit.Rule, err error) {
	log.From(r.Context()).Error("rate_limiter_failed",
		slog.String("rule", rule.Name),
		slog.String("err", err.Error()),
	)
}
