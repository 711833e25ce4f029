package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

const userColumns = `
	id, first_name, last_name, middle_name, email, phone, password_hash, role_id,
	profile_img, is_phone_verified, is_email_verified, active, first_time_login,
	last_login, last_failed_login, protected, is_deleted, deleted_at, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u     models.User
		phone *string
	)

	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.MiddleName, &u.Email, &phone, &u.PasswordHash, &u.RoleID,
		&u.ProfileImg, &u.IsPhoneVerified, &u.IsEmailVerified, &u.Active, &u.FirstTimeLogin,
		&u.LastLogin, &u.LastFailedLogin, &u.Protected, &u.IsDeleted, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Phone = deref(phone)

	return &u, nil
}

// SaveUser создает нового пользователя в БД.
func (s *Storage) SaveUser(ctx context.Context, u *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `INSERT INTO users(` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := s.db.Exec(ctx, query,
		u.ID, u.FirstName, u.LastName, u.MiddleName, u.Email, nullable(u.Phone), u.PasswordHash, u.RoleID,
		u.ProfileImg, u.IsPhoneVerified, u.IsEmailVerified, u.Active, u.FirstTimeLogin,
		u.LastLogin, u.LastFailedLogin, u.Protected, u.IsDeleted, u.DeletedAt, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return mapErr(op, err)
	}

	return nil
}

// UserByID находит неудалённого пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_deleted = FALSE`

	u, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return u, nil
}

// UserByIdentifier находит неудалённого пользователя по email или телефону.
func (s *Storage) UserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	const op = "storage.postgres.UserByIdentifier"

	query := `SELECT ` + userColumns + ` FROM users
		WHERE (email = $1 OR phone = $1) AND is_deleted = FALSE
		LIMIT 1`

	u, err := scanUser(s.db.QueryRow(ctx, query, identifier))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return u, nil
}

// UpdateUser перезаписывает изменяемые поля. created_at не трогается.
func (s *Storage) UpdateUser(ctx context.Context, u *models.User) error {
	const op = "storage.postgres.UpdateUser"

	query := `
		UPDATE users SET
			first_name = $2, last_name = $3, middle_name = $4, email = $5, phone = $6,
			password_hash = $7, role_id = $8, profile_img = $9, is_phone_verified = $10,
			is_email_verified = $11, active = $12, first_time_login = $13, protected = $14,
			updated_at = $15
		WHERE id = $1 AND is_deleted = FALSE`

	tag, err := s.db.Exec(ctx, query,
		u.ID, u.FirstName, u.LastName, u.MiddleName, u.Email, nullable(u.Phone),
		u.PasswordHash, u.RoleID, u.ProfileImg, u.IsPhoneVerified,
		u.IsEmailVerified, u.Active, u.FirstTimeLogin, u.Protected,
		u.UpdatedAt,
	)
	if err != nil {
		return mapErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RecordLogin выставляет last_login или last_failed_login.
func (s *Storage) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, success bool) error {
	const op = "storage.postgres.RecordLogin"

	query := `UPDATE users SET last_failed_login = $2 WHERE id = $1 AND is_deleted = FALSE`
	if success {
		query = `UPDATE users SET last_login = $2 WHERE id = $1 AND is_deleted = FALSE`
	}

	tag, err := s.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SoftDeleteUser помечает пользователя удалённым.
func (s *Storage) SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "storage.postgres.SoftDeleteUser"

	query := `
		UPDATE users
		SET is_deleted = TRUE, active = FALSE, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE`

	tag, err := s.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListUsers возвращает неудалённых пользователей по фильтру.
func (s *Storage) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	const op = "storage.postgres.ListUsers"

	var (
		where = []string{"is_deleted = FALSE"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeProtected {
		where = append(where, "protected = FALSE")
	}
	if filter.RoleID != uuid.Nil {
		where = append(where, "role_id = "+arg(filter.RoleID))
	}
	if filter.Active != nil {
		where = append(where, "active = "+arg(*filter.Active))
	}
	if len(filter.IDs) > 0 {
		ids := make([]string, 0, len(filter.IDs))
		for _, id := range filter.IDs {
			ids = append(ids, id.String())
		}
		where = append(where, "id = ANY("+arg(ids)+"::uuid[])")
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := arg("%" + likeEscape(q) + "%")
		where = append(where, fmt.Sprintf(
			"(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR middle_name ILIKE %[1]s OR email ILIKE %[1]s OR phone ILIKE %[1]s)", p))
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id` + pageClause(filter.Page, arg)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
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

// CountUsersByRole считает неудалённых пользователей роли.
func (s *Storage) CountUsersByRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	const op = "storage.postgres.CountUsersByRole"

	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE role_id = $1 AND is_deleted = FALSE`, roleID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// pageClause строит LIMIT/OFFSET через плейсхолдеры.
func pageClause(p models.Page, arg func(any) string) string {
	var b strings.Builder
	if p.Limit > 0 {
		b.WriteString(" LIMIT " + arg(p.Limit))
	}
	if p.Offset > 0 {
		b.WriteString(" OFFSET " + arg(p.Offset))
	}

	return b.String()
}

// likeEscape экранирует спецсимволы шаблона LIKE.
func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
