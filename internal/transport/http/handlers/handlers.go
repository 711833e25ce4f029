// Package handlers: REST-обработчики access-сервиса поверх service.Service.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/service"
	apierrors "github.com/pribylovaa/go-access-service/internal/transport/http/errors"
	"github.com/pribylovaa/go-access-service/internal/transport/http/middleware"
)

// Ограничения запросов.
const (
	maxBodyBytes = 1 << 20
	defaultLimit = 50
	maxLimit     = 200
)

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc            *service.Service
	maxUploadBytes int64
}

// New создаёт обработчики. maxUploadBytes <= 0: лимит по умолчанию (5 МиБ).
func New(svc *service.Service, maxUploadBytes int64) *Handlers {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}

	return &Handlers{svc: svc, maxUploadBytes: maxUploadBytes}
}

// writeJSON: единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

type validatable interface {
	Validate() error
}

// decode: строгий JSON-декодер (неизвестные поля запрещены) с последующей
// проверкой формы запроса. Ошибка разбора: ErrInvalidArgument,
// ошибка валидации: validation.Errors с деталями по полям.
func decode(r *http.Request, value validatable) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrInvalidArgument, err)
	}

	return value.Validate()
}

// caller возвращает AuthContext, сохранённый RequireAuth.
func caller(r *http.Request) (service.AuthContext, error) {
	ac, ok := middleware.AuthFrom(r.Context())
	if !ok {
		return service.AuthContext{}, service.ErrUnauthorized
	}

	return ac, nil
}

// pathUUID разбирает параметр маршрута как UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", name, apierrors.ErrInvalidArgument)
	}

	return id, nil
}

// queryBool разбирает необязательный булев параметр строки запроса.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, apierrors.ErrInvalidArgument)
	}

	return &v, nil
}

// queryPage разбирает limit/offset: limit по умолчанию 50, не больше 200.
func queryPage(r *http.Request) (models.Page, error) {
	page := models.Page{Limit: defaultLimit}
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return page, fmt.Errorf("limit: %w", apierrors.ErrInvalidArgument)
		}
		page.Limit = min(v, maxLimit)
	}

	if raw := q.Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return page, fmt.Errorf("offset: %w", apierrors.ErrInvalidArgument)
		}
		page.Offset = v
	}

	return page, nil
}

// isNotFound: вспомогалка для маршрутов, скрывающих существование записи.
func isNotFound(err error) bool {
	return errors.Is(err, service.ErrNotFound)
}
