package models

import "time"

// TokenPair: пара токенов, выдаваемая при входе и обновлении сессии.
//
// Описание:
//   - AccessToken: короткоживущий JWT, в БД не хранится;
//   - RefreshToken: долгоживущий JWT, хранится его хэш;
//   - AccessExpiresAt / RefreshExpiresAt: моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
