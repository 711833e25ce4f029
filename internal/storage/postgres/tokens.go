package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-access-service/internal/models"
)

const tokenColumns = `token_hash, user_id, type, generated_auth_id, generated_auth_exp, expires_at, blacklisted, created_at`

func scanToken(row pgx.Row) (*models.Token, error) {
	var (
		t   models.Token
		typ string
	)
	if err := row.Scan(&t.TokenHash, &t.UserID, &typ, &t.GeneratedAuthID, &t.GeneratedAuthExp, &t.ExpiresAt, &t.Blacklisted, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = models.TokenType(typ)

	return &t, nil
}

// SaveToken сохраняет токен. Коллизия хэша: storage.ErrAlreadyExists.
func (s *Storage) SaveToken(ctx context.Context, t *models.Token) error {
	const op = "storage.postgres.SaveToken"

	query := `INSERT INTO tokens(` + tokenColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.Exec(ctx, query,
		t.TokenHash, t.UserID, string(t.Type), t.GeneratedAuthID, t.GeneratedAuthExp, t.ExpiresAt, t.Blacklisted, t.CreatedAt)
	if err != nil {
		return mapErr(op, err)
	}

	return nil
}

// TokenByHash находит неотозванный токен.
func (s *Storage) TokenByHash(ctx context.Context, hash string, typ models.TokenType, userID uuid.UUID) (*models.Token, error) {
	const op = "storage.postgres.TokenByHash"

	query := `SELECT ` + tokenColumns + ` FROM tokens
		WHERE token_hash = $1 AND type = $2 AND user_id = $3 AND blacklisted = FALSE`

	t, err := scanToken(s.db.QueryRow(ctx, query, hash, string(typ), userID))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return t, nil
}

// ConsumeToken атомарно удаляет токен одной командой DELETE ... RETURNING.
func (s *Storage) ConsumeToken(ctx context.Context, hash string, typ models.TokenType, userID uuid.UUID) (*models.Token, error) {
	const op = "storage.postgres.ConsumeToken"

	query := `DELETE FROM tokens
		WHERE token_hash = $1 AND type = $2 AND user_id = $3 AND blacklisted = FALSE
		RETURNING ` + tokenColumns

	t, err := scanToken(s.db.QueryRow(ctx, query, hash, string(typ), userID))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return t, nil
}

// RefreshTokenForSession находит REFRESH-токен по generated_auth_id,
// иначе токен с ближайшим generated_auth_exp >= accessExp.
func (s *Storage) RefreshTokenForSession(ctx context.Context, userID uuid.UUID, accessID string, accessExp time.Time) (*models.Token, error) {
	const op = "storage.postgres.RefreshTokenForSession"

	query := `SELECT ` + tokenColumns + ` FROM tokens
		WHERE user_id = $1 AND type = $2 AND blacklisted = FALSE
			AND (($3 <> '' AND generated_auth_id = $3) OR generated_auth_exp >= $4)
		ORDER BY ($3 <> '' AND generated_auth_id = $3) DESC, generated_auth_exp
		LIMIT 1`

	t, err := scanToken(s.db.QueryRow(ctx, query, userID, string(models.TokenRefresh), accessID, accessExp))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return t, nil
}

// DeleteUserTokens удаляет все токены пользователя указанного типа.
func (s *Storage) DeleteUserTokens(ctx context.Context, userID uuid.UUID, typ models.TokenType) (int64, error) {
	const op = "storage.postgres.DeleteUserTokens"

	tag, err := s.db.Exec(ctx, `DELETE FROM tokens WHERE user_id = $1 AND type = $2`, userID, string(typ))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

// DeleteExpiredTokens удаляет все просроченные токены.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredTokens"

	tag, err := s.db.Exec(ctx, `DELETE FROM tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
