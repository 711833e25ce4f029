// Package storage задаёт контракты хранилищ access-сервиса.
// Реализации: mongo (основная), postgres, memory (local/тесты).
package storage

//go:generate mockgen -source=storage.go -destination=../../mocks/storage.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
)

var (
	// ErrNotFound: запись не найдена (пользователь/роль/токен/загрузка).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists: нарушение уникальности (email/phone/role/token).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
// Все методы чтения, кроме ListUsers с IncludeProtected, не видят
// мягко удалённых записей.
type UserStorage interface {
	// SaveUser создаёт пользователя. ErrAlreadyExists при занятом email/phone.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит неудалённого пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByIdentifier находит неудалённого пользователя по email или телефону.
	UserByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	// UpdateUser перезаписывает изменяемые поля пользователя (last-writer-wins).
	UpdateUser(ctx context.Context, user *models.User) error
	// RecordLogin выставляет last_login (success=true) или last_failed_login.
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, success bool) error
	// SoftDeleteUser помечает пользователя удалённым.
	SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error
	// ListUsers возвращает неудалённых пользователей по фильтру.
	ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	// CountUsersByRole считает неудалённых пользователей роли.
	CountUsersByRole(ctx context.Context, roleID uuid.UUID) (int64, error)
}

// RoleStorage выполняет операции над ролями.
type RoleStorage interface {
	// SaveRole создаёт роль. ErrAlreadyExists при занятом name/value.
	SaveRole(ctx context.Context, role *models.Role) error
	// RoleByID находит роль по ID.
	RoleByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	// RoleByValue находит роль по value.
	RoleByValue(ctx context.Context, value string) (*models.Role, error)
	// UpdateRole перезаписывает изменяемые поля роли.
	UpdateRole(ctx context.Context, role *models.Role) error
	// DeleteRole удаляет роль.
	DeleteRole(ctx context.Context, id uuid.UUID) error
	// ListRoles возвращает роли по фильтру, отсортированные по имени.
	ListRoles(ctx context.Context, filter models.RoleFilter) ([]models.Role, error)
}

// TokenStorage выполняет операции над сохраняемыми токенами.
// Токены ищутся по тройке (hash, type, user) и только среди неотозванных.
type TokenStorage interface {
	// SaveToken сохраняет токен. ErrAlreadyExists при коллизии хэша.
	SaveToken(ctx context.Context, token *models.Token) error
	// TokenByHash находит неотозванный токен.
	TokenByHash(ctx context.Context, hash string, typ models.TokenType, userID uuid.UUID) (*models.Token, error)
	// ConsumeToken атомарно находит и удаляет неотозванный токен.
	// Из двух конкурентных вызовов успешен ровно один, второй получает ErrNotFound.
	ConsumeToken(ctx context.Context, hash string, typ models.TokenType, userID uuid.UUID) (*models.Token, error)
	// RefreshTokenForSession находит неотозванный REFRESH-токен сессии.
	// Сначала ищется точное совпадение generated_auth_id с accessID, затем
	// ближайший по сроку токен с generated_auth_exp >= accessExp.
	RefreshTokenForSession(ctx context.Context, userID uuid.UUID, accessID string, accessExp time.Time) (*models.Token, error)
	// DeleteUserTokens удаляет все токены пользователя указанного типа.
	DeleteUserTokens(ctx context.Context, userID uuid.UUID, typ models.TokenType) (int64, error)
	// DeleteExpiredTokens удаляет все просроченные токены.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// UploadStorage выполняет операции над метаданными загрузок.
type UploadStorage interface {
	// SaveUpload сохраняет метаданные файла.
	SaveUpload(ctx context.Context, upload *models.Upload) error
	// UploadByID находит загрузку владельца по ID.
	UploadByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Upload, error)
	// UploadsByOwner возвращает загрузки владельца; пустая category: все.
	UploadsByOwner(ctx context.Context, ownerID uuid.UUID, category string) ([]models.Upload, error)
	// DeleteUploads удаляет загрузки по ID.
	DeleteUploads(ctx context.Context, ids []uuid.UUID) error
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	RoleStorage
	TokenStorage
	UploadStorage
	Close(ctx context.Context) error
}
