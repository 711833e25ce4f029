package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

func copyUser(u *models.User) *models.User {
	out := *u
	out.LastLogin = copyTime(u.LastLogin)
	out.LastFailedLogin = copyTime(u.LastFailedLogin)
	out.DeletedAt = copyTime(u.DeletedAt)

	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t

	return &v
}

// uniqueTaken проверяет уникальность email/phone среди всех записей, кроме self.
func (s *Storage) uniqueTaken(u *models.User) bool {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email || (u.Phone != "" && other.Phone == u.Phone) {
			return true
		}
	}

	return false
}

// SaveUser создаёт пользователя.
func (s *Storage) SaveUser(_ context.Context, user *models.User) error {
	const op = "storage.memory.SaveUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok || s.uniqueTaken(user) {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.users[user.ID] = copyUser(user)

	return nil
}

// UserByID находит неудалённого пользователя по ID.
func (s *Storage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.memory.UserByID"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.IsDeleted {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return copyUser(u), nil
}

// UserByIdentifier находит неудалённого пользователя по email или телефону.
func (s *Storage) UserByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	const op = "storage.memory.UserByIdentifier"

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.IsDeleted {
			continue
		}
		if u.Email == identifier || u.Phone == identifier {
			return copyUser(u), nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// UpdateUser перезаписывает пользователя.
func (s *Storage) UpdateUser(_ context.Context, user *models.User) error {
	const op = "storage.memory.UpdateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[user.ID]
	if !ok || cur.IsDeleted {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if s.uniqueTaken(user) {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	next := copyUser(user)
	next.CreatedAt = cur.CreatedAt
	s.users[user.ID] = next

	return nil
}

// RecordLogin обновляет отметку входа.
func (s *Storage) RecordLogin(_ context.Context, id uuid.UUID, at time.Time, success bool) error {
	const op = "storage.memory.RecordLogin"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.IsDeleted {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if success {
		u.LastLogin = &at
	} else {
		u.LastFailedLogin = &at
	}

	return nil
}

// SoftDeleteUser помечает пользователя удалённым.
func (s *Storage) SoftDeleteUser(_ context.Context, id uuid.UUID, at time.Time) error {
	const op = "storage.memory.SoftDeleteUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.IsDeleted {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u.IsDeleted = true
	u.Active = false
	u.DeletedAt = &at
	u.UpdatedAt = at

	return nil
}

// ListUsers возвращает неудалённых пользователей по фильтру.
// Сортировка: created_at DESC, затем ID.
func (s *Storage) ListUsers(_ context.Context, filter models.UserFilter) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[uuid.UUID]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = struct{}{}
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var out []models.User
	for _, u := range s.users {
		if u.IsDeleted {
			continue
		}
		if u.Protected && !filter.IncludeProtected {
			continue
		}
		if filter.RoleID != uuid.Nil && u.RoleID != filter.RoleID {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		if len(ids) > 0 {
			if _, ok := ids[u.ID]; !ok {
				continue
			}
		}
		if search != "" && !matchUser(u, search) {
			continue
		}

		out = append(out, *copyUser(u))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	return paginate(out, filter.Page), nil
}

// CountUsersByRole считает неудалённых пользователей роли.
func (s *Storage) CountUsersByRole(_ context.Context, roleID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, u := range s.users {
		if !u.IsDeleted && u.RoleID == roleID {
			n++
		}
	}

	return n, nil
}

func matchUser(u *models.User, search string) bool {
	for _, f := range []string{u.FirstName, u.LastName, u.MiddleName, u.Email, u.Phone} {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}

	return false
}

// paginate применяет Limit/Offset к уже отсортированному срезу.
func paginate[T any](items []T, p models.Page) []T {
	if p.Offset > 0 {
		if p.Offset >= len(items) {
			return nil
		}
		items = items[p.Offset:]
	}

	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}

	return items
}
