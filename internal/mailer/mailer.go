// Package mailer отправляет служебные письма (активация, временный пароль,
// подтверждение удаления профиля).
package mailer

//go:generate mockgen -source=mailer.go -destination=../../mocks/mailer.go -package=mocks

import (
	"context"
	"errors"
)

// ErrSend: письмо не удалось отправить.
var ErrSend = errors.New("mail send failed")

// Sender: контракт отправки письма.
type Sender interface {
	// Send отправляет HTML-письмо одному адресату.
	Send(ctx context.Context, to, subject, htmlBody string) error
}
