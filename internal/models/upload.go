package models

import (
	"time"

	"github.com/google/uuid"
)

// Категории загрузок.
const (
	UploadProfileImage = "PROFILE_IMG"
)

// UploadCategories: допустимые категории.
var UploadCategories = []string{UploadProfileImage}

// Upload: метаданные файла в объектном хранилище.
// PublicID: ключ объекта в бакете, URL: публичная ссылка.
type Upload struct {
	ID        uuid.UUID
	URL       string
	PublicID  string
	Category  string
	OwnerID   uuid.UUID
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}
