package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

func copyToken(t *models.Token) *models.Token {
	out := *t
	out.GeneratedAuthExp = copyTime(t.GeneratedAuthExp)

	return &out
}

// SaveToken сохраняет токен.
func (s *Storage) SaveToken(_ context.Context, token *models.Token) error {
	const op = "storage.memory.SaveToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token.TokenHash]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.tokens[token.TokenHash] = copyToken(token)

	return nil
}

// lookup возвращает неотозванный токен по тройке (hash, type, user). Вызывается под мьютексом.
func (s *Storage) lookup(hash string, typ models.TokenType, userID uuid.UUID) (*models.Token, bool) {
	t, ok := s.tokens[hash]
	if !ok || t.Blacklisted || t.Type != typ || t.UserID != userID {
		return nil, false
	}

	return t, true
}

// TokenByHash находит неотозванный токен.
func (s *Storage) TokenByHash(_ context.Context, hash string, typ models.TokenType, userID uuid.UUID) (*models.Token, error) {
	const op = "storage.memory.TokenByHash"

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.lookup(hash, typ, userID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return copyToken(t), nil
}

// ConsumeToken атомарно находит и удаляет токен.
func (s *Storage) ConsumeToken(_ context.Context, hash string, typ models.TokenType, userID uuid.UUID) (*models.Token, error) {
	const op = "storage.memory.ConsumeToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.lookup(hash, typ, userID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(s.tokens, hash)

	return t, nil
}

// RefreshTokenForSession находит REFRESH-токен сессии по jti или сроку access-токена.
func (s *Storage) RefreshTokenForSession(_ context.Context, userID uuid.UUID, accessID string, accessExp time.Time) (*models.Token, error) {
	const op = "storage.memory.RefreshTokenForSession"

	s.mu.Lock()
	defer s.mu.Unlock()

	var best *models.Token
	for _, t := range s.tokens {
		if t.Type != models.TokenRefresh || t.UserID != userID || t.Blacklisted || t.GeneratedAuthExp == nil {
			continue
		}
		if accessID != "" && t.GeneratedAuthID == accessID {
			return copyToken(t), nil
		}
		if t.GeneratedAuthExp.Before(accessExp) {
			continue
		}
		if best == nil || t.GeneratedAuthExp.Before(*best.GeneratedAuthExp) {
			best = t
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return copyToken(best), nil
}

// DeleteUserTokens удаляет все токены пользователя указанного типа.
func (s *Storage) DeleteUserTokens(_ context.Context, userID uuid.UUID, typ models.TokenType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, t := range s.tokens {
		if t.UserID == userID && t.Type == typ {
			delete(s.tokens, hash)
			n++
		}
	}

	return n, nil
}

// DeleteExpiredTokens удаляет все просроченные токены.
func (s *Storage) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, t := range s.tokens {
		if !t.ExpiresAt.After(now) {
			delete(s.tokens, hash)
			n++
		}
	}

	return n, nil
}
