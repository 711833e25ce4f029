package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

// ErrInvalidUpload: файл не прошёл ограничения по типу или размеру.
var ErrInvalidUpload = fmt.Errorf("invalid upload: %w", ErrValidation)

// canManageUploads сообщает, может ли caller управлять загрузками owner.
func canManageUploads(caller AuthContext, owner uuid.UUID) bool {
	return caller.IsSelf(owner) || caller.Has(permissions.UpdateUser)
}

// uploadFolder: каталог объектов владельца для категории.
func uploadFolder(owner uuid.UUID, category string) string {
	return "users/" + owner.String() + "/" + strings.ToLower(category)
}

// UploadProfileImage загружает фото профиля owner и заменяет им предыдущее:
// старые объекты категории удаляются из объектного хранилища и из базы.
func (s *Service) UploadProfileImage(ctx context.Context, caller AuthContext, owner uuid.UUID, file storage.Object) (*models.Upload, error) {
	const op = "service.uploads.UploadProfileImage"

	lg := log.From(ctx)

	if s.objects == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUploadsDisabled)
	}

	if !canManageUploads(caller, owner) {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	user, err := s.Profile(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stored, err := s.objects.Upload(ctx, uploadFolder(owner, models.UploadProfileImage), file)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidObject) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidUpload, err)
		}

		lg.Error("object_upload_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	upload := &models.Upload{
		ID:        uuid.New(),
		URL:       stored.URL,
		PublicID:  stored.PublicID,
		Category:  models.UploadProfileImage,
		OwnerID:   owner,
		CreatedBy: caller.UserID(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.SaveUpload(ctx, upload); err != nil {
		lg.Error("save_upload_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		if delErr := s.objects.Delete(ctx, []string{stored.PublicID}); delErr != nil {
			lg.Warn("orphan_object_left",
				slog.String("op", op),
				slog.String("public_id", stored.PublicID),
				slog.String("err", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	previous, err := s.storage.UploadsByOwner(ctx, owner, models.UploadProfileImage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	previous = slices.DeleteFunc(previous, func(u models.Upload) bool { return u.ID == upload.ID })

	if err := s.removeUploads(ctx, previous); err != nil {
		lg.Warn("previous_uploads_not_removed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	user.ProfileImg = upload.URL
	if err := s.saveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("profile_image_uploaded",
		slog.String("op", op),
		slog.String("owner_id", owner.String()),
		slog.String("upload_id", upload.ID.String()),
	)

	return upload, nil
}

// DeleteUpload удаляет одну загрузку owner.
func (s *Service) DeleteUpload(ctx context.Context, caller AuthContext, owner, uploadID uuid.UUID) error {
	const op = "service.uploads.DeleteUpload"

	if s.objects == nil {
		return fmt.Errorf("%s: %w", op, ErrUploadsDisabled)
	}

	if !canManageUploads(caller, owner) {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	upload, err := s.storage.UploadByID(ctx, owner, uploadID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.removeUploads(ctx, []models.Upload{*upload}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.clearProfileImage(ctx, owner, []models.Upload{*upload}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteUploads удаляет все загрузки owner в категории.
func (s *Service) DeleteUploads(ctx context.Context, caller AuthContext, owner uuid.UUID, category string) error {
	const op = "service.uploads.DeleteUploads"

	if s.objects == nil {
		return fmt.Errorf("%s: %w", op, ErrUploadsDisabled)
	}

	if !canManageUploads(caller, owner) {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	category = strings.ToUpper(strings.TrimSpace(category))
	if !slices.Contains(models.UploadCategories, category) {
		return fmt.Errorf("%s: unknown category %q: %w", op, category, ErrValidation)
	}

	uploads, err := s.storage.UploadsByOwner(ctx, owner, category)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.removeUploads(ctx, uploads); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.clearProfileImage(ctx, owner, uploads); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// removeUploads удаляет объекты, затем записи о них.
func (s *Service) removeUploads(ctx context.Context, uploads []models.Upload) error {
	if len(uploads) == 0 {
		return nil
	}

	publicIDs := make([]string, 0, len(uploads))
	ids := make([]uuid.UUID, 0, len(uploads))
	for _, u := range uploads {
		publicIDs = append(publicIDs, u.PublicID)
		ids = append(ids, u.ID)
	}

	if err := s.objects.Delete(ctx, publicIDs); err != nil {
		return err
	}

	return s.storage.DeleteUploads(ctx, ids)
}

// clearProfileImage сбрасывает ссылку на фото профиля, если она среди удалённых.
func (s *Service) clearProfileImage(ctx context.Context, owner uuid.UUID, removed []models.Upload) error {
	user, err := s.Profile(ctx, owner)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}

		return err
	}

	for _, u := range removed {
		if u.Category == models.UploadProfileImage && u.URL == user.ProfileImg {
			user.ProfileImg = ""
			return s.saveUser(ctx, user)
		}
	}

	return nil
}
