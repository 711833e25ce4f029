// errors стандартизирует ответы об ошибках HTTP-слоя access-сервиса.
// На вход он принимает ошибку сервисного слоя (обёрнутые sentinel-значения
// пакета service), а на выход даёт:
//   - корректный HTTP-статус;
//   - короткий стабильный код и безопасное message без утечки деталей.
//
// Источник истинности по маппингу: комментарии к sentinel-ошибкам service.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/pribylovaa/go-access-service/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrInvalidArgument: тело/параметры запроса не разобраны. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrResourceExhausted: превышен лимит запросов. HTTP 429.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// APIError: единый формат для фронта.
// Code: короткий стабильный код для машиночитаемой обработки на FE.
// Message: безопасное человекочитаемое описание.
// Details: ошибки по полям запроса (только для invalid_argument).
// RequestID: прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// ErrorResponse: корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// rule: строка таблицы маппинга.
type rule struct {
	target error
	status int
	code   string
	msg    string
}

// rules просматриваются сверху вниз: частные ошибки раньше общих
// (ErrEmailTaken оборачивает ErrConflict, ErrWeakPassword: ErrValidation).
var rules = []rule{
	{ErrInvalidArgument, http.StatusBadRequest, "invalid_argument", "invalid argument"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", "invalid email"},
	{service.ErrInvalidPhone, http.StatusBadRequest, "invalid_phone", "invalid phone number"},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password", "password must be 8-72 characters and contain a letter and a digit"},
	{service.ErrInvalidUpload, http.StatusBadRequest, "invalid_upload", "invalid upload"},
	{service.ErrUnknownPermission, http.StatusBadRequest, "unknown_permission", "unknown permission"},
	{service.ErrValidation, http.StatusBadRequest, "invalid_argument", "invalid argument"},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid credentials"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthenticated", "unauthenticated"},
	{service.ErrTokenExpiredOrInvalid, http.StatusUnauthorized, "unauthenticated", "unauthenticated"},
	{service.ErrTokenNotFound, http.StatusUnauthorized, "unauthenticated", "unauthenticated"},

	{service.ErrAccountInactive, http.StatusForbidden, "account_inactive", "account is not active"},
	{service.ErrActivationRequired, http.StatusForbidden, "activation_required", "account activation required, check your email"},
	{service.ErrProtected, http.StatusForbidden, "protected", "operation is not allowed on a system resource"},
	{service.ErrForbidden, http.StatusForbidden, "permission_denied", "permission denied"},

	{service.ErrNotFound, http.StatusNotFound, "not_found", "not found"},

	{service.ErrEmailTaken, http.StatusConflict, "email_taken", "email already taken"},
	{service.ErrPhoneTaken, http.StatusConflict, "phone_taken", "phone already taken"},
	{service.ErrRoleTaken, http.StatusConflict, "role_taken", "role name or value already taken"},
	{service.ErrRoleInUse, http.StatusConflict, "role_in_use", "role is assigned to users"},
	{service.ErrAlreadyActive, http.StatusConflict, "already_active", "account already active"},
	{service.ErrConflict, http.StatusConflict, "already_exists", "already exists"},

	{ErrResourceExhausted, http.StatusTooManyRequests, "resource_exhausted", "too many requests"},

	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
	{service.ErrUploadsDisabled, http.StatusServiceUnavailable, "unavailable", "uploads are disabled"},
}

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус
// и унифицированный ответ для фронта.
//
// Поведение:
//   - err == nil считается ошибкой вызова (500/internal);
//   - validation.Errors (ozzo): 400/invalid_argument с ошибками по полям;
//   - известная sentinel-ошибка: статус и код из таблицы rules;
//   - прочее: 500/internal без утечки деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			if ferr != nil {
				details[field] = ferr.Error()
			}
		}

		return http.StatusBadRequest, ErrorResponse{
			Error: APIError{
				Code:    "invalid_argument",
				Message: "invalid argument",
				Details: details,
			},
		}
	}

	for _, r := range rules {
		if errors.Is(err, r.target) {
			return r.status, ErrorResponse{
				Error: APIError{
					Code:    r.code,
					Message: r.msg,
				},
			}
		}
	}

	return internal()
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// WriteError: хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
