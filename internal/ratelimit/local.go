package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL: сколько хранится корзина клиента без запросов.
const idleTTL = 30 * time.Minute

// reservation: выданный токен, который ещё можно вернуть через Refund.
type reservation struct {
	r  *rate.Reservation
	at time.Time
}

type bucket struct {
	lim     *rate.Limiter
	seen    time.Time
	pending []reservation
}

// Local: token bucket на клиента в памяти процесса.
// Ёмкость корзины Requests, пополнение равномерно за Window.
type Local struct {
	rule Rule
	now  func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

// NewLocal создаёт лимитер в памяти.
func NewLocal(rule Rule) *Local {
	return &Local{
		rule:    rule,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Rule возвращает правило.
func (l *Local) Rule() Rule { return l.rule }

func (l *Local) interval() time.Duration {
	if l.rule.Requests <= 0 {
		return l.rule.Window
	}

	return l.rule.Window / time.Duration(l.rule.Requests)
}

// bucket возвращает корзину ключа и раз в idleTTL удаляет простаивающие.
// Вызывается под l.mu.
func (l *Local) bucket(key string, now time.Time) *bucket {
	if now.Sub(l.swept) > idleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > idleTTL {
				delete(l.buckets, k)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(l.interval()), l.rule.Requests)}
		l.buckets[key] = b
	}
	b.seen = now

	return b
}

func (l *Local) result(allowed bool, tokens float64) Result {
	res := Result{
		Allowed:   allowed,
		Limit:     l.rule.Requests,
		Remaining: int(tokens),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !allowed {
		res.RetryAfter = time.Duration((1 - tokens) * float64(l.interval()))
	}

	return res
}

// Hit забирает токен из корзины ключа.
// Для правила FailedOnly выданный токен запоминается, чтобы Refund мог его вернуть.
func (l *Local) Hit(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucket(key, now)

	if tokens := b.lim.TokensAt(now); tokens < 1 {
		return l.result(false, tokens), nil
	}

	r := b.lim.ReserveN(now, 1)

	if l.rule.FailedOnly {
		b.pending = append(b.pending, reservation{r: r, at: now})
		if n := len(b.pending); n > l.rule.Requests {
			b.pending = b.pending[n-l.rule.Requests:]
		}
	}

	return l.result(true, b.lim.TokensAt(now)), nil
}

// Refund возвращает в корзину последний выданный токен ключа.
// Отмена выполняется на момент выдачи: Reservation не возвращает токены,
// если момент действия уже прошёл.
func (l *Local) Refund(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || len(b.pending) == 0 {
		return nil
	}

	last := b.pending[len(b.pending)-1]
	b.pending = b.pending[:len(b.pending)-1]
	last.r.CancelAt(last.at)

	return nil
}
