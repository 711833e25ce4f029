package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/pribylovaa/go-access-service/internal/pkg/phone"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen  = 8
	maxPasswordLen  = 72 // предел bcrypt
	tempPasswordLen = 12
)

// Алфавит временного пароля без похожих символов (0/O, 1/l/I).
const tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// hashPassword хэширует пароль bcrypt с настроенной стоимостью.
func (s *Service) hashPassword(password string) (string, error) {
	cost := s.cfg.Auth.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(h), nil
}

// passwordMatches сравнивает пароль с хэшем. Пустой хэш не совпадает ни с чем.
func passwordMatches(hash, password string) bool {
	if hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validatePassword проверяет политику: 8..72 символа, минимум одна буква и одна цифра.
func validatePassword(password string) error {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return ErrWeakPassword
	}

	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	if !letter || !digit {
		return ErrWeakPassword
	}

	return nil
}

// generateTempPassword генерирует временный пароль, удовлетворяющий политике.
func generateTempPassword() (string, error) {
	max := big.NewInt(int64(len(tempPasswordAlphabet)))

	for {
		b := make([]byte, tempPasswordLen)
		for i := range b {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			b[i] = tempPasswordAlphabet[n.Int64()]
		}

		if validatePassword(string(b)) == nil {
			return string(b), nil
		}
	}
}

// normalizeEmail проверяет формат и приводит адрес к нижнему регистру.
func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if err := validation.Validate(raw, validation.Required, is.Email); err != nil {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(raw), nil
}

// normalizePhone приводит номер к E.164.
func (s *Service) normalizePhone(raw string) (string, error) {
	p, err := phone.Normalize(raw, s.cfg.Phone.DefaultRegion)
	if err != nil {
		if errors.Is(err, phone.ErrInvalid) {
			return "", ErrInvalidPhone
		}

		return "", fmt.Errorf("normalize phone: %w", err)
	}

	return p, nil
}

// normalizeIdentifier приводит логин (e-mail или телефон) к виду хранения.
// Неразборчивый номер возвращается как есть: поиск просто ничего не найдёт.
func (s *Service) normalizeIdentifier(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.Contains(raw, "@") {
		return strings.ToLower(raw)
	}

	if p, err := phone.Normalize(raw, s.cfg.Phone.DefaultRegion); err == nil {
		return p
	}

	return raw
}
