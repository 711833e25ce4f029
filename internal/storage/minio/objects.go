package minio

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

// allowedContentTypes: допустимые типы изображений и расширения ключей.
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// objectKey формирует ключ вида "<folder>/<uuid>.<ext>".
func objectKey(folder, contentType string) string {
	return path.Join(strings.Trim(folder, "/"), uuid.NewString()+allowedContentTypes[contentType])
}

// Upload проверяет тип и размер объекта и кладёт его в бакет.
func (s *ObjectStore) Upload(ctx context.Context, folder string, obj storage.Object) (*storage.StoredObject, error) {
	const op = "storage.minio.Upload"

	if obj.Size <= 0 || (s.cfg.MaxSizeBytes > 0 && obj.Size > s.cfg.MaxSizeBytes) {
		return nil, fmt.Errorf("%s: %w: size %d", op, storage.ErrInvalidObject, obj.Size)
	}

	if _, ok := allowedContentTypes[obj.ContentType]; !ok {
		return nil, fmt.Errorf("%s: %w: content type %q", op, storage.ErrInvalidObject, obj.ContentType)
	}

	key := objectKey(folder, obj.ContentType)

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, obj.Body, obj.Size, mclient.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.StoredObject{PublicID: key, URL: s.baseURL + "/" + key}, nil
}

// Delete удаляет объекты пачкой. Отсутствующие ключи пропускаются.
func (s *ObjectStore) Delete(ctx context.Context, publicIDs []string) error {
	const op = "storage.minio.Delete"

	if len(publicIDs) == 0 {
		return nil
	}

	objects := make(chan mclient.ObjectInfo, len(publicIDs))
	for _, id := range publicIDs {
		objects <- mclient.ObjectInfo{Key: id}
	}
	close(objects)

	var errs []error
	for rerr := range s.client.RemoveObjects(ctx, s.cfg.Bucket, objects, mclient.RemoveObjectsOptions{}) {
		resp := mclient.ToErrorResponse(rerr.Err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", rerr.ObjectName, rerr.Err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}

	return nil
}
