package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/mailer"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/internal/storage"
	"github.com/pribylovaa/go-access-service/pkg/redact"
)

// CreateUserInput: данные пользователя, заводимого администратором.
type CreateUserInput struct {
	FirstName  string
	LastName   string
	MiddleName string
	Email      string
	Phone      string
	RoleID     uuid.UUID
}

// UserPatch: частичное изменение пользователя администратором. nil не меняется.
type UserPatch struct {
	FirstName  *string
	LastName   *string
	MiddleName *string
	Email      *string
	Phone      *string
	RoleID     *uuid.UUID
	Active     *bool
}

// assignableRole загружает роль, которую можно назначить пользователю.
func (s *Service) assignableRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	role, err := s.storage.RoleByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("role: %w", ErrNotFound)
		}

		return nil, err
	}

	if role.Value == models.RoleSuperAdmin {
		return nil, ErrForbidden
	}

	return role, nil
}

// CreateUser заводит пользователя с временным паролем и отправляет ему
// письмо со ссылкой активации и этим паролем.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	const op = "service.users.CreateUser"

	lg := log.From(ctx)

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var phone string
	if strings.TrimSpace(in.Phone) != "" {
		if phone, err = s.normalizePhone(in.Phone); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	role, err := s.assignableRole(ctx, in.RoleID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.ensureUnique(ctx, email, phone, uuid.Nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	temp, err := generateTempPassword()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hashPassword(temp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	user := &models.User{
		ID:             uuid.New(),
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		MiddleName:     strings.TrimSpace(in.MiddleName),
		Email:          email,
		Phone:          phone,
		PasswordHash:   hash,
		RoleID:         role.ID,
		FirstTimeLogin: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrConflict)
		}

		lg.Error("save_user_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_created",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(email)),
		slog.String("role", role.Value),
	)

	if err := s.sendRegistration(ctx, user, mailer.KindAccountCreated, temp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// GetUser возвращает пользователя. Чужую запись видит только обладатель
// USER_MANAGEMENT.READ_USER.
func (s *Service) GetUser(ctx context.Context, caller AuthContext, id uuid.UUID) (*models.User, error) {
	const op = "service.users.GetUser"

	if !caller.IsSelf(id) && !caller.Has(permissions.ReadUser) {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// ListUsers возвращает неудалённых незащищённых пользователей по фильтру.
func (s *Service) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	const op = "service.users.ListUsers"

	filter.IncludeProtected = false

	users, err := s.storage.ListUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// UpdateUser применяет patch администратора. Защищённого пользователя
// менять нельзя, роль супер-администратора не назначается.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, patch UserPatch) (*models.User, error) {
	const op = "service.users.UpdateUser"

	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.Protected {
		return nil, fmt.Errorf("%s: %w", op, ErrProtected)
	}

	applyNames(user, patch.FirstName, patch.LastName, patch.MiddleName)

	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if email != user.Email {
			if err := s.ensureUnique(ctx, email, "", user.ID); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			user.Email = email
		}
	}

	if patch.Phone != nil {
		if err := s.applyPhone(ctx, user, *patch.Phone); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if patch.RoleID != nil {
		role, err := s.assignableRole(ctx, *patch.RoleID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user.RoleID = role.ID
	}

	if patch.Active != nil {
		user.Active = *patch.Active
	}

	if err := s.saveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// DeleteUser мягко удаляет пользователя и отзывает его refresh-токены.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "service.users.DeleteUser"

	user, err := s.Profile(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.Protected {
		return fmt.Errorf("%s: %w", op, ErrProtected)
	}

	if err := s.softDelete(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// LookupUsers возвращает пользователей для выпадающих списков.
// Без USER_MANAGEMENT.READ_USER вызывающий видит только себя.
func (s *Service) LookupUsers(ctx context.Context, caller AuthContext, active *bool) ([]models.User, error) {
	const op = "service.users.LookupUsers"

	filter := models.UserFilter{Active: active}
	if !caller.Has(permissions.ReadUser) {
		filter.IDs = []uuid.UUID{caller.UserID()}
		filter.IncludeProtected = true
	}

	users, err := s.storage.ListUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}
