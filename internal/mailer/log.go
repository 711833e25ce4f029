package mailer

import (
	"context"
	"log/slog"

	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/pkg/redact"
)

// Log вместо отправки пишет письмо в лог. Используется, когда SMTP не настроен.
// Тело письма попадает в лог только на уровне debug.
type Log struct{}

// Send логирует письмо.
func (Log) Send(ctx context.Context, to, subject, htmlBody string) error {
	lg := log.From(ctx)

	lg.Info("mail_logged",
		slog.String("to", redact.Email(to)),
		slog.String("subject", subject),
	)
	lg.Debug("mail_body", slog.String("body", htmlBody))

	return nil
}

var _ Sender = Log{}
