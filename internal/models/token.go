package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenType: назначение токена.
type TokenType string

const (
	TokenAccess             TokenType = "ACCESS"
	TokenRefresh            TokenType = "REFRESH"
	TokenVerifyRegistration TokenType = "VERIFY_REGISTRATION"
	TokenResetPassword      TokenType = "RESET_PASSWORD"
	TokenVerifyEmailChange  TokenType = "VERIFY_EMAIL_CHANGE"
	TokenVerifyPhone        TokenType = "VERIFY_PHONE"
	TokenDeleteProfile      TokenType = "DELETE_PROFILE"
)

// Valid сообщает, известен ли тип.
func (t TokenType) Valid() bool {
	switch t {
	case TokenAccess, TokenRefresh, TokenVerifyRegistration, TokenResetPassword,
		TokenVerifyEmailChange, TokenVerifyPhone, TokenDeleteProfile:
		return true
	}

	return false
}

// Persisted: хранится ли токен этого типа в БД. Access-токены stateless.
func (t TokenType) Persisted() bool {
	return t != TokenAccess
}

// Token: запись выпущенного токена.
//
// Описание:
//   - TokenHash: sha256(подписанная строка) в base64url; сам токен не хранится;
//   - GeneratedAuthID, GeneratedAuthExp (только у REFRESH): jti и срок
//     access-токена, выпущенного в паре; по ним logout находит refresh-токен
//     своей сессии;
//   - Blacklisted: токен отозван, но ещё не удалён.
type Token struct {
	TokenHash        string
	UserID           uuid.UUID
	Type             TokenType
	GeneratedAuthID  string
	GeneratedAuthExp *time.Time
	ExpiresAt        time.Time
	Blacklisted      bool
	CreatedAt        time.Time
}
