package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-access-service/internal/models"
)

const uploadColumns = `id, url, public_id, category, owner_id, created_by, created_at, updated_at`

func scanUpload(row pgx.Row) (*models.Upload, error) {
	var u models.Upload
	if err := row.Scan(&u.ID, &u.URL, &u.PublicID, &u.Category, &u.OwnerID, &u.CreatedBy, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}

	return &u, nil
}

// SaveUpload сохраняет метаданные файла.
func (s *Storage) SaveUpload(ctx context.Context, u *models.Upload) error {
	const op = "storage.postgres.SaveUpload"

	_, err := s.db.Exec(ctx, `INSERT INTO uploads(`+uploadColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.URL, u.PublicID, u.Category, u.OwnerID, u.CreatedBy, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return mapErr(op, err)
	}

	return nil
}

// UploadByID находит загрузку владельца по ID.
func (s *Storage) UploadByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Upload, error) {
	const op = "storage.postgres.UploadByID"

	u, err := scanUpload(s.db.QueryRow(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return u, nil
}

// UploadsByOwner возвращает загрузки владельца, новые первыми.
func (s *Storage) UploadsByOwner(ctx context.Context, ownerID uuid.UUID, category string) ([]models.Upload, error) {
	const op = "storage.postgres.UploadsByOwner"

	rows, err := s.db.Query(ctx, `SELECT `+uploadColumns+` FROM uploads
		WHERE owner_id = $1 AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC`, ownerID, category)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// DeleteUploads удаляет загрузки по ID.
func (s *Storage) DeleteUploads(ctx context.Context, ids []uuid.UUID) error {
	const op = "storage.postgres.DeleteUploads"

	if len(ids) == 0 {
		return nil
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM uploads WHERE id = ANY($1::uuid[])`, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
