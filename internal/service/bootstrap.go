package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/mailer"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/internal/storage"
	"github.com/pribylovaa/go-access-service/pkg/redact"
)

// Bootstrap идемпотентно готовит базу к работе:
//   - системные роли super_admin (все модули) и user (без прав);
//   - ровно один активный защищённый супер-администратор с e-mail из конфигурации,
//     остальные супер-администраторы мягко удаляются.
//
// Вызывается при каждом старте до запуска HTTP-сервера.
func (s *Service) Bootstrap(ctx context.Context) error {
	const op = "service.bootstrap.Bootstrap"

	superRole, err := s.ensureRole(ctx, "Super Admin", models.RoleSuperAdmin, permissions.Modules(), true)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.ensureRole(ctx, "User", models.RoleUser, []string{}, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.ensureSuperAdmin(ctx, superRole); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ensureRole создаёт системную роль или приводит существующую к эталону.
// syncPerms: перезаписывать ли права существующей роли.
func (s *Service) ensureRole(ctx context.Context, name, value string, perms []string, syncPerms bool) (*models.Role, error) {
	const op = "service.bootstrap.ensureRole"

	lg := log.From(ctx)

	role, err := s.storage.RoleByValue(ctx, value)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		now := s.now()
		role = &models.Role{
			ID:          uuid.New(),
			Name:        name,
			Value:       value,
			Active:      true,
			Permissions: permissions.Normalize(perms),
			Protected:   true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := s.storage.SaveRole(ctx, role); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, value, err)
		}

		lg.Info("system_role_created",
			slog.String("op", op),
			slog.String("value", value),
		)
		return role, nil

	case err != nil:
		return nil, fmt.Errorf("%s: %s: %w", op, value, err)
	}

	want := permissions.Normalize(perms)
	if role.Protected && role.Active && (!syncPerms || slices.Equal(role.Permissions, want)) {
		return role, nil
	}

	role.Protected = true
	role.Active = true
	if syncPerms {
		role.Permissions = want
	}
	role.UpdatedAt = s.now()

	if err := s.storage.UpdateRole(ctx, role); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, value, err)
	}

	lg.Info("system_role_reconciled",
		slog.String("op", op),
		slog.String("value", value),
	)

	return role, nil
}

// ensureSuperAdmin оставляет единственного супер-администратора с настроенным e-mail.
func (s *Service) ensureSuperAdmin(ctx context.Context, role *models.Role) error {
	const op = "service.bootstrap.ensureSuperAdmin"

	lg := log.From(ctx)
	email := strings.ToLower(strings.TrimSpace(s.cfg.Bootstrap.SuperAdminEmail))

	admins, err := s.storage.ListUsers(ctx, models.UserFilter{RoleID: role.ID, IncludeProtected: true})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var keep *models.User
	for i := range admins {
		if admins[i].Email == email && keep == nil {
			keep = &admins[i]
			continue
		}

		if err := s.storage.SoftDeleteUser(ctx, admins[i].ID, s.now()); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}
		if _, err := s.RevokeAllForUser(ctx, admins[i].ID, models.TokenRefresh); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		lg.Warn("extra_super_admin_removed",
			slog.String("op", op),
			slog.String("user_id", admins[i].ID.String()),
		)
	}

	if keep == nil {
		// Пользователь с этим e-mail мог существовать с другой ролью.
		existing, err := s.storage.UserByIdentifier(ctx, email)
		switch {
		case err == nil:
			keep = existing
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if keep == nil {
		return s.createSuperAdmin(ctx, role, email)
	}

	if keep.RoleID == role.ID && keep.Protected && keep.Active {
		return nil
	}

	keep.RoleID = role.ID
	keep.Protected = true
	keep.Active = true

	if err := s.saveUser(ctx, keep); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("super_admin_reconciled",
		slog.String("op", op),
		slog.String("user_id", keep.ID.String()),
	)

	return nil
}

// createSuperAdmin заводит супер-администратора с временным паролем.
// Вход возможен после подтверждения e-mail по ссылке из письма.
func (s *Service) createSuperAdmin(ctx context.Context, role *models.Role, email string) error {
	const op = "service.bootstrap.createSuperAdmin"

	phone, err := s.normalizePhone(s.cfg.Bootstrap.SuperAdminPhone)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.ensureUnique(ctx, "", phone, uuid.Nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	temp, err := generateTempPassword()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hashPassword(temp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	user := &models.User{
		ID:             uuid.New(),
		FirstName:      s.cfg.Bootstrap.SuperAdminFirstName,
		LastName:       s.cfg.Bootstrap.SuperAdminLastName,
		Email:          email,
		Phone:          phone,
		PasswordHash:   hash,
		RoleID:         role.ID,
		Active:         true,
		FirstTimeLogin: true,
		Protected:      true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("super_admin_created",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(email)),
	)

	if err := s.sendRegistration(ctx, user, mailer.KindAccountCreated, temp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
