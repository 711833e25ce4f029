package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

const roleColumns = `id, name, value, active, permissions, protected, created_at, updated_at`

func scanRole(row pgx.Row) (*models.Role, error) {
	var r models.Role
	if err := row.Scan(&r.ID, &r.Name, &r.Value, &r.Active, &r.Permissions, &r.Protected, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	return &r, nil
}

func permsOrEmpty(p []string) []string {
	if p == nil {
		return []string{}
	}

	return p
}

// SaveRole создаёт роль.
func (s *Storage) SaveRole(ctx context.Context, r *models.Role) error {
	const op = "storage.postgres.SaveRole"

	query := `INSERT INTO roles(` + roleColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.Exec(ctx, query,
		r.ID, r.Name, r.Value, r.Active, permsOrEmpty(r.Permissions), r.Protected, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return mapErr(op, err)
	}

	return nil
}

// RoleByID находит роль по ID.
func (s *Storage) RoleByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	const op = "storage.postgres.RoleByID"

	r, err := scanRole(s.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return r, nil
}

// RoleByValue находит роль по value.
func (s *Storage) RoleByValue(ctx context.Context, value string) (*models.Role, error) {
	const op = "storage.postgres.RoleByValue"

	r, err := scanRole(s.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE value = $1`, value))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return r, nil
}

// UpdateRole перезаписывает изменяемые поля роли.
func (s *Storage) UpdateRole(ctx context.Context, r *models.Role) error {
	const op = "storage.postgres.UpdateRole"

	query := `
		UPDATE roles
		SET name = $2, value = $3, active = $4, permissions = $5, protected = $6, updated_at = $7
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		r.ID, r.Name, r.Value, r.Active, permsOrEmpty(r.Permissions), r.Protected, r.UpdatedAt)
	if err != nil {
		return mapErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteRole удаляет роль.
func (s *Storage) DeleteRole(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteRole"

	tag, err := s.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListRoles возвращает роли по фильтру, отсортированные по имени.
func (s *Storage) ListRoles(ctx context.Context, filter models.RoleFilter) ([]models.Role, error) {
	const op = "storage.postgres.ListRoles"

	var (
		where = []string{"TRUE"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.ExcludeValues) > 0 {
		where = append(where, "NOT (value = ANY("+arg(filter.ExcludeValues)+"))")
	}
	if filter.Active != nil {
		where = append(where, "active = "+arg(*filter.Active))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := arg("%" + likeEscape(q) + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR value ILIKE %[1]s)", p))
	}

	query := `SELECT ` + roleColumns + ` FROM roles WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY name` + pageClause(filter.Page, arg)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
