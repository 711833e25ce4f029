package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestRedis_FixedWindow(t *testing.T) {
	t.Parallel()

	client, mr := setupRedis(t)
	l := NewRedis(client, "test", Rule{Name: "auth", Requests: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Hit(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Hit(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Zero(t, res.Remaining)
	require.Greater(t, res.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, res.RetryAfter, time.Minute)

	// Другой клиент не затронут.
	res, err = l.Hit(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	require.True(t, mr.Exists("test:auth:10.0.0.1"))

	mr.FastForward(time.Minute + time.Second)

	res, err = l.Hit(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestRedis_RefundReturnsSlot(t *testing.T) {
	t.Parallel()

	client, mr := setupRedis(t)
	l := NewRedis(client, "", Rule{Name: "auth", Requests: 2, Window: time.Minute, FailedOnly: true})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Hit(ctx, "k")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.NoError(t, l.Refund(ctx, "k"))
	}

	for i := 0; i < 2; i++ {
		res, err := l.Hit(ctx, "k")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := l.Hit(ctx, "k")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Окно истекло: Refund не создаёт ключ без срока.
	mr.FastForward(time.Minute + time.Second)
	require.NoError(t, l.Refund(ctx, "k"))
	require.False(t, mr.Exists("ratelimit:auth:k"))
}

func TestRedis_FailOpen(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, "test", Rule{Name: "auth", Requests: 1, Window: time.Minute})

	mr.Close()

	res, err := l.Hit(context.Background(), "k")
	require.Error(t, err)
	require.True(t, res.Allowed)

	require.Error(t, l.Refund(context.Background(), "k"))
}

func TestLocal_TokenBucket(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal(Rule{Name: "common", Requests: 2, Window: 10 * time.Second})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Hit(ctx, "a")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := l.Hit(ctx, "a")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Greater(t, res.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, res.RetryAfter, 5*time.Second)

	res, err = l.Hit(ctx, "b")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	// Один токен восстанавливается за Window/Requests.
	now = now.Add(5 * time.Second)

	res, err = l.Hit(ctx, "a")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Hit(ctx, "a")
	require.NoError(t, err)
	require.False(t, res.Allowed)
}

func TestLocal_RefundReturnsToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal(Rule{Name: "auth", Requests: 2, Window: time.Hour, FailedOnly: true})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Hit(ctx, "a")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.NoError(t, l.Refund(ctx, "a"))
		now = now.Add(time.Millisecond)
	}

	for i := 0; i < 2; i++ {
		res, err := l.Hit(ctx, "a")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := l.Hit(ctx, "a")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Неизвестный ключ и пустая очередь не ошибка.
	require.NoError(t, l.Refund(ctx, "nobody"))
}

func TestLocal_SweepsIdleBuckets(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal(Rule{Name: "common", Requests: 1, Window: time.Minute})
	l.now = func() time.Time { return now }

	_, err := l.Hit(context.Background(), "old")
	require.NoError(t, err)

	now = now.Add(2 * idleTTL)

	_, err = l.Hit(context.Background(), "new")
	require.NoError(t, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	require.Len(t, l.buckets, 1)
	require.Contains(t, l.buckets, "new")
}
