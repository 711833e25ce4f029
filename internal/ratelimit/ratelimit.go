// Package ratelimit ограничивает частоту запросов по ключу клиента.
//
// Две реализации Limiter:
//   - Redis: фиксированное окно в Redis, общее для всех реплик;
//   - Local: token bucket в памяти процесса (x/time/rate).
package ratelimit

import (
	"context"
	"time"
)

// Rule задаёт лимит: не больше Requests запросов за Window.
// FailedOnly: запрос учитывается сразу, а после успешного ответа
// (status < 400) возвращается через Refund.
type Rule struct {
	Name       string
	Requests   int
	Window     time.Duration
	FailedOnly bool
}

// Result: решение лимитера.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter: контракт ограничителя.
type Limiter interface {
	// Rule возвращает правило лимитера.
	Rule() Rule
	// Hit учитывает запрос по ключу и возвращает решение с его учётом.
	Hit(ctx context.Context, key string) (Result, error)
	// Refund возвращает ключу один ранее учтённый запрос.
	Refund(ctx context.Context, key string) error
}

func remaining(rule Rule, used int64) int {
	left := int64(rule.Requests) - used
	if left < 0 {
		return 0
	}

	return int(left)
}
