package mailer

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-access-service/internal/config"
	"github.com/wneessen/go-mail"
)

// SMTP отправляет письма через SMTP-сервер.
type SMTP struct {
	client *mail.Client
	from   string
}

// NewSMTP создаёт SMTP-отправителя. Соединение открывается на каждое письмо.
func NewSMTP(cfg config.SMTPConfig) (*SMTP, error) {
	const op = "mailer.NewSMTP"

	opts := []mail.Option{mail.WithPort(cfg.Port)}

	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	if cfg.TLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SMTP{client: client, from: cfg.From}, nil
}

// Send отправляет HTML-письмо.
func (s *SMTP) Send(ctx context.Context, to, subject, htmlBody string) error {
	const op = "mailer.SMTP.Send"

	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("%s: from: %w", op, err)
	}

	if err := m.To(to); err != nil {
		return fmt.Errorf("%s: to: %w", op, err)
	}

	m.Subject(subject)
	m.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrSend, err)
	}

	return nil
}

var _ Sender = (*SMTP)(nil)
