package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

// Principal: аутентифицированный пользователь запроса.
type Principal struct {
	User           *models.User
	Role           *models.Role
	TokenExpiresAt time.Time
}

// AuthContext: результат авторизации, передаётся обработчику явно.
type AuthContext struct {
	Principal Principal
	Effective permissions.Set
}

// UserID возвращает идентификатор вызывающего.
func (a AuthContext) UserID() uuid.UUID {
	if a.Principal.User == nil {
		return uuid.Nil
	}

	return a.Principal.User.ID
}

// IsSelf сообщает, является ли вызывающий владельцем ресурса id.
func (a AuthContext) IsSelf(id uuid.UUID) bool {
	return id != uuid.Nil && a.UserID() == id
}

// Has сообщает, входит ли право p в эффективный набор.
func (a AuthContext) Has(p string) bool {
	return a.Effective.Has(p)
}

// Authorize решает, допустим ли запрос с правами required.
// Пустой required пропускает любого аутентифицированного.
// Иначе эффективный набор: раскрытые нормализованные права роли плюс неявные
// ANY_WITH_AUTH и OWNER; достаточно одного совпадения из required.
// Роль не изменяется.
func Authorize(p Principal, required []string) (AuthContext, error) {
	const op = "service.authorize.Authorize"

	ac := AuthContext{Principal: p}

	if p.User == nil {
		return ac, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	if p.Role == nil || !p.Role.Active {
		if len(required) == 0 {
			ac.Effective = permissions.NewSet(permissions.AnyWithAuth, permissions.Owner)
			return ac, nil
		}

		return ac, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	// Полный набор детей модуля даёт и сам модуль.
	effective := permissions.ExpandAll(permissions.Normalize(p.Role.Permissions))
	effective.Add(permissions.AnyWithAuth, permissions.Owner)
	ac.Effective = effective

	if len(required) == 0 {
		return ac, nil
	}

	for _, r := range required {
		if effective.Has(r) {
			return ac, nil
		}
	}

	return ac, fmt.Errorf("%s: %w", op, ErrForbidden)
}

// Authenticate проверяет access-токен и загружает пользователя и его роль.
// Удалённый, неактивный или отсутствующий пользователь: ErrUnauthorized.
// Отсутствующая роль не ошибка аутентификации: решение принимает Authorize.
func (s *Service) Authenticate(ctx context.Context, raw string) (Principal, error) {
	const op = "service.authorize.Authenticate"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	vt, err := s.VerifyToken(ctx, raw, models.TokenAccess, uuid.Nil)
	if err != nil {
		return Principal{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	user, err := s.storage.UserByID(ctx, vt.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Principal{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		log.From(ctx).Error("authenticate_user_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return Principal{}, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Active {
		return Principal{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	p := Principal{User: user, TokenExpiresAt: vt.ExpiresAt}

	role, err := s.storage.RoleByID(ctx, user.RoleID)
	switch {
	case err == nil:
		p.Role = role
	case errors.Is(err, storage.ErrNotFound):
		log.From(ctx).Warn("principal_role_missing",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
		)
	default:
		log.From(ctx).Error("authenticate_role_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return Principal{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}
