// service содержит бизнес-логику access-сервиса:
// выпуск/проверку токенов, аутентификацию и авторизацию запросов,
// жизненный цикл учётной записи, управление ролями, пользователями и загрузками.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования при потокобезопасном storage.Storage.
//   - Ошибки возвращаются обёрнутыми sentinel-значениями ниже и далее
//     маппятся транспортом на HTTP-коды (см. комментарии к переменным).
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-access-service/internal/config"
	"github.com/pribylovaa/go-access-service/internal/mailer"
	"github.com/pribylovaa/go-access-service/internal/metrics"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

var (
	// ErrNotFound: пользователь/роль/загрузка не найдены. HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials: пароль не совпал. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive: учётная запись не активирована или отключена. HTTP 403.
	ErrAccountInactive = errors.New("account inactive")

	// ErrActivationRequired: у заранее заведённой учётной записи нет пароля,
	// письмо активации отправлено повторно. HTTP 403.
	ErrActivationRequired = errors.New("activation required")

	// ErrAlreadyActive: учётная запись уже активирована. HTTP 409.
	ErrAlreadyActive = errors.New("account already active")

	// ErrUnauthorized: токен плохой, просрочен, подделан, уже использован
	// или принадлежит другому пользователю. HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden: аутентифицирован, но прав недостаточно. HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrUnknownPermission: строки права нет в каталоге. HTTP 400.
	ErrUnknownPermission = permissions.ErrUnknownPermission

	// ErrConflict: нарушение уникальности. HTTP 409.
	ErrConflict = errors.New("conflict")

	// ErrEmailTaken: e-mail занят.
	ErrEmailTaken = fmt.Errorf("email already taken: %w", ErrConflict)
	// ErrPhoneTaken: телефон занят.
	ErrPhoneTaken = fmt.Errorf("phone already taken: %w", ErrConflict)
	// ErrRoleTaken: имя или value роли заняты.
	ErrRoleTaken = fmt.Errorf("role name or value already taken: %w", ErrConflict)
	// ErrRoleInUse: роль назначена хотя бы одному пользователю.
	ErrRoleInUse = fmt.Errorf("role is assigned to users: %w", ErrConflict)

	// ErrValidation: некорректный ввод. HTTP 400.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidEmail: e-mail не проходит проверку формата.
	ErrInvalidEmail = fmt.Errorf("invalid email: %w", ErrValidation)
	// ErrInvalidPhone: номер не разбирается.
	ErrInvalidPhone = fmt.Errorf("invalid phone number: %w", ErrValidation)
	// ErrWeakPassword: пароль не удовлетворяет политике.
	ErrWeakPassword = fmt.Errorf("password is too weak: %w", ErrValidation)

	// ErrTokenExpiredOrInvalid: подпись/формат/срок токена не прошли проверку. HTTP 401.
	ErrTokenExpiredOrInvalid = errors.New("token expired or invalid")

	// ErrTokenNotFound: запись токена отсутствует (уже использован или не существовал). HTTP 401.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenCollision: исчерпаны попытки сохранить уникальный токен. HTTP 500.
	ErrTokenCollision = errors.New("token collision")

	// ErrProtected: операция запрещена для системной роли/учётной записи. HTTP 403.
	ErrProtected = errors.New("protected resource")

	// ErrUploadsDisabled: объектное хранилище не сконфигурировано. HTTP 503.
	ErrUploadsDisabled = errors.New("uploads are disabled")
)

// Service описывает бизнес-логику access-сервиса.
type Service struct {
	storage storage.Storage
	mail    mailer.Sender
	objects storage.ObjectStore // nil, если загрузки не сконфигурированы
	metrics *metrics.Metrics    // nil допустим
	cfg     *config.Config
	now     func() time.Time
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, mail mailer.Sender, cfg *config.Config) *Service {
	return &Service{
		storage: storage,
		mail:    mail,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetObjectStore подключает объектное хранилище для загрузок (опционально).
func (s *Service) SetObjectStore(o storage.ObjectStore) {
	s.objects = o
}

// SetMetrics подключает метрики (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}
