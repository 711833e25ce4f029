// Package phone нормализует телефонные номера к E.164.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalid: номер не разбирается или не существует в плане нумерации.
var ErrInvalid = errors.New("invalid phone number")

// Normalize разбирает номер (с кодом страны или локальный для region)
// и возвращает его в формате E.164, например "+254712345678".
func Normalize(raw, region string) (string, error) {
	const op = "phone.Normalize"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrInvalid, err)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
