package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

// RoleInput: данные новой роли. Пустой Value выводится из Name.
type RoleInput struct {
	Name        string
	Value       string
	Permissions []string
	Active      bool
}

// RolePatch: частичное изменение роли. nil не меняется.
type RolePatch struct {
	Name        *string
	Value       *string
	Permissions *[]string
	Active      *bool
}

// slugify приводит строку к виду value роли: строчные буквы, цифры и "_".
func slugify(s string) string {
	var b strings.Builder
	underscore := false

	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}

	return strings.TrimRight(b.String(), "_")
}

// preparePermissions проверяет права по каталогу и приводит к нормальной форме.
func preparePermissions(perms []string) ([]string, error) {
	if err := permissions.Validate(perms); err != nil {
		return nil, err
	}

	return permissions.Normalize(perms), nil
}

// CreateRole создаёт роль с нормализованным набором прав.
func (s *Service) CreateRole(ctx context.Context, in RoleInput) (*models.Role, error) {
	const op = "service.roles.CreateRole"

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%s: name is required: %w", op, ErrValidation)
	}

	value := slugify(in.Value)
	if value == "" {
		value = slugify(name)
	}
	if value == "" {
		return nil, fmt.Errorf("%s: value is required: %w", op, ErrValidation)
	}

	perms, err := preparePermissions(in.Permissions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	role := &models.Role{
		ID:          uuid.New(),
		Name:        name,
		Value:       value,
		Active:      in.Active,
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.storage.SaveRole(ctx, role); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrRoleTaken)
		}

		log.From(ctx).Error("save_role_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("role_created",
		slog.String("op", op),
		slog.String("role_id", role.ID.String()),
		slog.String("value", role.Value),
	)

	return role, nil
}

// GetRole возвращает роль по ID.
func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	const op = "service.roles.GetRole"

	role, err := s.storage.RoleByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return role, nil
}

// UpdateRole применяет patch. У защищённой роли нельзя менять value
// и снимать активность.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, patch RolePatch) (*models.Role, error) {
	const op = "service.roles.UpdateRole"

	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: name is required: %w", op, ErrValidation)
		}
		role.Name = name
	}

	if patch.Value != nil {
		value := slugify(*patch.Value)
		if value == "" {
			return nil, fmt.Errorf("%s: value is required: %w", op, ErrValidation)
		}
		if value != role.Value && role.Protected {
			return nil, fmt.Errorf("%s: %w", op, ErrProtected)
		}
		role.Value = value
	}

	if patch.Active != nil {
		if !*patch.Active && role.Protected {
			return nil, fmt.Errorf("%s: %w", op, ErrProtected)
		}
		role.Active = *patch.Active
	}

	if patch.Permissions != nil {
		perms, err := preparePermissions(*patch.Permissions)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		role.Permissions = perms
	}

	role.UpdatedAt = s.now()

	if err := s.storage.UpdateRole(ctx, role); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrRoleTaken)
		}

		log.From(ctx).Error("update_role_failed",
			slog.String("op", op),
			slog.String("role_id", id.String()),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return role, nil
}

// DeleteRole удаляет роль. Защищённые роли и роли, назначенные
// неудалённым пользователям, не удаляются.
func (s *Service) DeleteRole(ctx context.Context, id uuid.UUID) error {
	const op = "service.roles.DeleteRole"

	role, err := s.GetRole(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if role.Protected {
		return fmt.Errorf("%s: %w", op, ErrProtected)
	}

	n, err := s.storage.CountUsersByRole(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		return fmt.Errorf("%s: %w", op, ErrRoleInUse)
	}

	if err := s.storage.DeleteRole(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("role_deleted",
		slog.String("op", op),
		slog.String("role_id", id.String()),
	)

	return nil
}

// ListRoles возвращает роли по фильтру. Роль супер-администратора скрыта.
func (s *Service) ListRoles(ctx context.Context, filter models.RoleFilter) ([]models.Role, error) {
	const op = "service.roles.ListRoles"

	filter.ExcludeValues = append(filter.ExcludeValues, models.RoleSuperAdmin)

	roles, err := s.storage.ListRoles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return roles, nil
}

// LookupRoles возвращает активные роли для выпадающих списков.
func (s *Service) LookupRoles(ctx context.Context) ([]models.Role, error) {
	active := true

	return s.ListRoles(ctx, models.RoleFilter{Active: &active})
}
