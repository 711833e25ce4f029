package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

func copyRole(r *models.Role) *models.Role {
	out := *r
	out.Permissions = append([]string(nil), r.Permissions...)

	return &out
}

func (s *Storage) roleTaken(r *models.Role) bool {
	for id, other := range s.roles {
		if id == r.ID {
			continue
		}
		if other.Value == r.Value || strings.EqualFold(other.Name, r.Name) {
			return true
		}
	}

	return false
}

// SaveRole создаёт роль.
func (s *Storage) SaveRole(_ context.Context, role *models.Role) error {
	const op = "storage.memory.SaveRole"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[role.ID]; ok || s.roleTaken(role) {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.roles[role.ID] = copyRole(role)

	return nil
}

// RoleByID находит роль по ID.
func (s *Storage) RoleByID(_ context.Context, id uuid.UUID) (*models.Role, error) {
	const op = "storage.memory.RoleByID"

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.roles[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return copyRole(r), nil
}

// RoleByValue находит роль по value.
func (s *Storage) RoleByValue(_ context.Context, value string) (*models.Role, error) {
	const op = "storage.memory.RoleByValue"

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.roles {
		if r.Value == value {
			return copyRole(r), nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// UpdateRole перезаписывает роль.
func (s *Storage) UpdateRole(_ context.Context, role *models.Role) error {
	const op = "storage.memory.UpdateRole"

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.roles[role.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if s.roleTaken(role) {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	next := copyRole(role)
	next.CreatedAt = cur.CreatedAt
	s.roles[role.ID] = next

	return nil
}

// DeleteRole удаляет роль.
func (s *Storage) DeleteRole(_ context.Context, id uuid.UUID) error {
	const op = "storage.memory.DeleteRole"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(s.roles, id)

	return nil
}

// ListRoles возвращает роли по фильтру, отсортированные по имени.
func (s *Storage) ListRoles(_ context.Context, filter models.RoleFilter) ([]models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	excluded := make(map[string]struct{}, len(filter.ExcludeValues))
	for _, v := range filter.ExcludeValues {
		excluded[v] = struct{}{}
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var out []models.Role
	for _, r := range s.roles {
		if _, ok := excluded[r.Value]; ok {
			continue
		}
		if filter.Active != nil && r.Active != *filter.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) &&
			!strings.Contains(r.Value, search) {
			continue
		}

		out = append(out, *copyRole(r))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return paginate(out, filter.Page), nil
}
