// Package memory: реализация storage.Storage в памяти процесса.
// Используется драйвером "memory" (локальный запуск) и в тестах сервисного слоя.
// Все операции сериализуются одним мьютексом, поэтому ConsumeToken атомарен.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

// Storage хранит сущности в map. Наружу отдаются копии.
type Storage struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	roles   map[uuid.UUID]*models.Role
	tokens  map[string]*models.Token
	uploads map[uuid.UUID]*models.Upload
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:   make(map[uuid.UUID]*models.User),
		roles:   make(map[uuid.UUID]*models.Role),
		tokens:  make(map[string]*models.Token),
		uploads: make(map[uuid.UUID]*models.Upload),
	}
}

// Close ничего не делает.
func (s *Storage) Close(context.Context) error { return nil }

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
