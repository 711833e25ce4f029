// Package janitor по расписанию удаляет просроченные записи токенов.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-access-service/internal/metrics"
	"github.com/robfig/cron/v3"
)

// runTimeout: предел одного прохода очистки.
const runTimeout = time.Minute

// Purger: часть хранилища, которую использует janitor.
type Purger interface {
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Janitor: фоновая очистка токенов на robfig/cron.
type Janitor struct {
	store   Purger
	metrics *metrics.Metrics
	log     *slog.Logger
	cron    *cron.Cron
	now     func() time.Time
}

// New создаёт janitor. metrics может быть nil.
func New(store Purger, m *metrics.Metrics, log *slog.Logger) *Janitor {
	return &Janitor{
		store:   store,
		metrics: m,
		log:     log,
		cron:    cron.New(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce выполняет один проход и возвращает число удалённых записей.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	const op = "janitor.RunOnce"

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	n, err := j.store.DeleteExpiredTokens(ctx, j.now())
	if err != nil {
		j.log.Error("token_janitor_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	j.metrics.TokensPurged(n)
	if n > 0 {
		j.log.Info("expired_tokens_purged",
			slog.String("op", op),
			slog.Int64("count", n),
		)
	}

	return n, nil
}

// Start регистрирует задачу по расписанию schedule (формат robfig/cron,
// например "@every 30m") и запускает планировщик. Планировщик
// останавливается при отмене ctx.
func (j *Janitor) Start(ctx context.Context, schedule string) error {
	const op = "janitor.Start"

	if _, err := j.cron.AddFunc(schedule, func() {
		_, _ = j.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("%s: schedule %q: %w", op, schedule, err)
	}

	j.cron.Start()
	j.log.Info("token_janitor_started",
		slog.String("op", op),
		slog.String("schedule", schedule),
	)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()

	return nil
}

// Stop останавливает планировщик и ждёт завершения текущего прохода.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
