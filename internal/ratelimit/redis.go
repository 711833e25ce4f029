package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis: фиксированное окно на INCR + EXPIRE.
// При ошибке Redis решение "разрешить" возвращается вместе с ошибкой:
// вызывающий логирует её и пропускает запрос.
type Redis struct {
	client *redis.Client
	prefix string
	rule   Rule
}

// NewRedis создаёт лимитер поверх клиента Redis.
func NewRedis(client *redis.Client, prefix string, rule Rule) *Redis {
	if prefix == "" {
		prefix = "ratelimit"
	}

	return &Redis{client: client, prefix: prefix, rule: rule}
}

// Rule возвращает правило.
func (l *Redis) Rule() Rule { return l.rule }

func (l *Redis) key(key string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, l.rule.Name, key)
}

// Hit увеличивает счётчик окна. Окно начинается с первого запроса.
func (l *Redis) Hit(ctx context.Context, key string) (Result, error) {
	const op = "ratelimit.redis.Hit"

	k := l.key(key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Allowed: true, Limit: l.rule.Requests}, fmt.Errorf("%s: %w", op, err)
	}

	left := ttl.Val()
	// Новый ключ (или ключ без срока после сбоя): открываем окно.
	if left < 0 {
		if err := l.client.PExpire(ctx, k, l.rule.Window).Err(); err != nil {
			return Result{Allowed: true, Limit: l.rule.Requests}, fmt.Errorf("%s: %w", op, err)
		}
		left = l.rule.Window
	}

	return l.result(incr.Val(), left), nil
}

// refundScript уменьшает счётчик, только пока окно существует:
// иначе DECR создал бы ключ без срока.
var refundScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)

// Refund возвращает один запрос в текущее окно.
func (l *Redis) Refund(ctx context.Context, key string) error {
	const op = "ratelimit.redis.Refund"

	if err := refundScript.Run(ctx, l.client, []string{l.key(key)}).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (l *Redis) result(used int64, ttl time.Duration) Result {
	res := Result{
		Allowed:   used <= int64(l.rule.Requests),
		Limit:     l.rule.Requests,
		Remaining: remaining(l.rule, used),
	}
	if !res.Allowed && ttl > 0 {
		res.RetryAfter = ttl
	}

	return res
}
