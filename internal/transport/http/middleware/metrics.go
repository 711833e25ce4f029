package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-access-service/internal/metrics"
)

// Metrics считает запросы в полёте, итоговые статусы и длительность.
// Метка route: шаблон маршрута chi ("/users/{id}"), а не сырой путь,
// чтобы не раздувать кардинальность. Незарегистрированные пути
// учитываются как "unmatched".
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.InFlight()
			defer done()

			sw := newStatusWriter(w)
			start := time.Now()

			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}

			m.ObserveHTTP(route, r.Method, sw.code(), time.Since(start))
		})
	}
}
