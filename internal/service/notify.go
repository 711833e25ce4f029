package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pribylovaa/go-access-service/internal/mailer"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/pkg/redact"
)

// Пути веб-клиента для ссылок в письмах.
const (
	pathVerifyRegistration = "/auth/verify-registration"
	pathVerifyDelete       = "/auth/profile/verify-delete"
	pathLogin              = "/auth/login"
)

// link собирает ссылку веб-клиента с токеном в query.
func (s *Service) link(path, token string) string {
	base := strings.TrimRight(s.cfg.Links.WebURL, "/") + path
	if token == "" {
		return base
	}

	return base + "?" + url.Values{"token": {token}}.Encode()
}

// notify отправляет письмо пользователю. Ошибки только логируются:
// сбой почты не отменяет уже выполненную операцию.
func (s *Service) notify(ctx context.Context, user *models.User, kind mailer.Kind, data mailer.Data) {
	const op = "service.notify"

	lg := log.From(ctx)

	if s.mail == nil {
		return
	}

	data.Name = user.FirstName

	subject, body, err := mailer.Render(kind, data)
	if err != nil {
		lg.Error("mail_render_failed",
			slog.String("op", op),
			slog.String("kind", string(kind)),
			slog.String("err", err.Error()),
		)
		return
	}

	if t := s.cfg.SMTP.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), t)
		defer cancel()
	}

	if err := s.mail.Send(ctx, user.Email, subject, body); err != nil {
		lg.Warn("mail_send_failed",
			slog.String("op", op),
			slog.String("kind", string(kind)),
			slog.String("to", redact.Email(user.Email)),
			slog.String("err", err.Error()),
		)
		return
	}

	lg.Info("mail_sent",
		slog.String("op", op),
		slog.String("kind", string(kind)),
		slog.String("to", redact.Email(user.Email)),
	)
}
