package storage

//go:generate mockgen -source=objects.go -destination=../../mocks/objects.go -package=mocks

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrObjectNotFound: объект (ключ) отсутствует в бакете.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidObject: нарушены ограничения объекта (тип/размер).
	ErrInvalidObject = errors.New("invalid object")
)

// Object: содержимое для загрузки в объектное хранилище.
type Object struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StoredObject описывает результат загрузки, то есть ключ в бакете и публичная ссылка.
type StoredObject struct {
	PublicID string
	URL      string
}

// ObjectStore: контракт объектного хранилища.
type ObjectStore interface {
	// Upload кладёт объект в каталог folder и возвращает его ключ и ссылку.
	Upload(ctx context.Context, folder string, obj Object) (*StoredObject, error)
	// Delete удаляет объекты по ключам. Отсутствующие ключи не считаются ошибкой.
	Delete(ctx context.Context, publicIDs []string) error
}
