package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

// SaveUpload сохраняет метаданные файла.
func (s *Storage) SaveUpload(_ context.Context, upload *models.Upload) error {
	const op = "storage.memory.SaveUpload"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[upload.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	u := *upload
	s.uploads[upload.ID] = &u

	return nil
}

// UploadByID находит загрузку владельца по ID.
func (s *Storage) UploadByID(_ context.Context, ownerID, id uuid.UUID) (*models.Upload, error) {
	const op = "storage.memory.UploadByID"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.uploads[id]
	if !ok || u.OwnerID != ownerID {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	out := *u

	return &out, nil
}

// UploadsByOwner возвращает загрузки владельца, новые первыми.
func (s *Storage) UploadsByOwner(_ context.Context, ownerID uuid.UUID, category string) ([]models.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Upload
	for _, u := range s.uploads {
		if u.OwnerID != ownerID {
			continue
		}
		if category != "" && u.Category != category {
			continue
		}
		out = append(out, *u)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out, nil
}

// DeleteUploads удаляет загрузки по ID.
func (s *Storage) DeleteUploads(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.uploads, id)
	}

	return nil
}
