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
	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

// ProfilePatch: изменяемые владельцем поля профиля. nil не меняется.
type ProfilePatch struct {
	FirstName  *string
	LastName   *string
	MiddleName *string
	Phone      *string
}

// Profile возвращает актуальную учётную запись вызывающего.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "service.profile.Profile"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateProfile меняет имя и телефон вызывающего.
// Смена телефона сбрасывает признак его подтверждения.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (*models.User, error) {
	const op = "service.profile.UpdateProfile"

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	applyNames(user, patch.FirstName, patch.LastName, patch.MiddleName)

	if patch.Phone != nil {
		if err := s.applyPhone(ctx, user, *patch.Phone); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.saveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// applyNames переносит непустые указатели имён в user.
func applyNames(user *models.User, first, last, middle *string) {
	if first != nil {
		user.FirstName = strings.TrimSpace(*first)
	}
	if last != nil {
		user.LastName = strings.TrimSpace(*last)
	}
	if middle != nil {
		user.MiddleName = strings.TrimSpace(*middle)
	}
}

// applyPhone нормализует и проверяет уникальность нового телефона.
// Пустая строка удаляет телефон.
func (s *Service) applyPhone(ctx context.Context, user *models.User, raw string) error {
	if strings.TrimSpace(raw) == "" {
		user.Phone = ""
		user.IsPhoneVerified = false
		return nil
	}

	phone, err := s.normalizePhone(raw)
	if err != nil {
		return err
	}

	if phone == user.Phone {
		return nil
	}

	if err := s.ensureUnique(ctx, "", phone, user.ID); err != nil {
		return err
	}

	user.Phone = phone
	user.IsPhoneVerified = false

	return nil
}

// saveUser сохраняет изменения пользователя с маппингом ошибок хранилища.
func (s *Service) saveUser(ctx context.Context, user *models.User) error {
	const op = "service.saveUser"

	user.UpdatedAt = s.now()

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, storage.ErrAlreadyExists):
			return ErrConflict
		}

		log.From(ctx).Error("update_user_failed",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
			slog.String("err", err.Error()),
		)
		return err
	}

	return nil
}

// RequestDeleteProfile выпускает DELETE_PROFILE и отправляет ссылку подтверждения.
// Защищённую учётную запись удалить нельзя.
func (s *Service) RequestDeleteProfile(ctx context.Context, userID uuid.UUID) error {
	const op = "service.profile.RequestDeleteProfile"

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.Protected {
		return fmt.Errorf("%s: %w", op, ErrProtected)
	}

	token, _, err := s.IssueToken(ctx, user.ID, models.TokenDeleteProfile, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.notify(ctx, user, mailer.KindDeleteProfile, mailer.Data{
		Link: s.link(pathVerifyDelete, token),
	})

	log.From(ctx).Info("profile_delete_requested",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return nil
}

// VerifyDeleteProfile погашает DELETE_PROFILE, помечает пользователя удалённым
// и отзывает его refresh-токены.
func (s *Service) VerifyDeleteProfile(ctx context.Context, raw string) error {
	const op = "service.profile.VerifyDeleteProfile"

	vt, err := s.ConsumeToken(ctx, raw, models.TokenDeleteProfile)
	if err != nil {
		return fmt.Errorf("%s: %w", op, tokenError(err))
	}

	user, err := s.Profile(ctx, vt.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.Protected {
		return fmt.Errorf("%s: %w", op, ErrProtected)
	}

	if err := s.softDelete(ctx, user.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// softDelete помечает пользователя удалённым и завершает все его сессии.
func (s *Service) softDelete(ctx context.Context, id uuid.UUID) error {
	const op = "service.softDelete"

	if err := s.storage.SoftDeleteUser(ctx, id, s.now()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}

		log.From(ctx).Error("soft_delete_failed",
			slog.String("op", op),
			slog.String("user_id", id.String()),
			slog.String("err", err.Error()),
		)
		return err
	}

	if _, err := s.RevokeAllForUser(ctx, id, models.TokenRefresh); err != nil {
		return err
	}

	log.From(ctx).Info("user_deleted",
		slog.String("op", op),
		slog.String("user_id", id.String()),
	)

	return nil
}
