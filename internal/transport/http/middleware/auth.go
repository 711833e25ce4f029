package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/internal/service"
	apierrors "github.com/pribylovaa/go-access-service/internal/transport/http/errors"
)

type authKey struct{}

// Authenticator: проверка access-токена и загрузка принципала.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (service.Principal, error)
}

// BearerToken извлекает токен из заголовка Authorization: Bearer <token>.
// Возвращает "" при отсутствии заголовка или другой схеме.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}

// RequireAuth аутентифицирует запрос по Bearer-токену и проверяет,
// что роль вызывающего даёт хотя бы одно из required.
// Без required достаточно валидного токена активного пользователя.
// Результат кладётся в контекст (см. AuthFrom), user_id: в логгер запроса.
func RequireAuth(a Authenticator, required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := a.Authenticate(r.Context(), BearerToken(r))
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ac, err := service.Authorize(principal, required)
			ctx := log.With(r.Context(), slog.String("user_id", ac.UserID().String()))
			if err != nil {
				log.From(ctx).Info("access_denied",
					slog.String("path", r.URL.Path),
					slog.Any("required", required),
				)
				apierrors.WriteError(w, r, err)
				return
			}

			ctx = context.WithValue(ctx, authKey{}, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthFrom возвращает AuthContext, сохранённый RequireAuth.
func AuthFrom(ctx context.Context) (service.AuthContext, bool) {
	ac, ok := ctx.Value(authKey{}).(service.AuthContext)
	return ac, ok
}

// WithAuth кладёт AuthContext в контекст. Нужен тестам хендлеров.
func WithAuth(ctx context.Context, ac service.AuthContext) context.Context {
	return context.WithValue(ctx, authKey{}, ac)
}
