package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pribylovaa/go-access-service/internal/metrics"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/pribylovaa/go-access-service/internal/ratelimit"
	"github.com/pribylovaa/go-access-service/internal/service"
	"github.com/pribylovaa/go-access-service/internal/transport/http/handlers"
	"github.com/pribylovaa/go-access-service/internal/transport/http/middleware"
)

// Limiters: ограничители по группам маршрутов. nil отключает ограничение.
type Limiters struct {
	Auth   ratelimit.Limiter
	Upload ratelimit.Limiter
	Common ratelimit.Limiter
}

// Options: параметры сборки HTTP-роутера.
type Options struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Timeout        time.Duration
	BasePath       string // например, "/v1"; если пустой: роуты регистрируются на корне.
	Limiters       Limiters
	MaxUploadBytes int64
	TrustProxy     bool // брать IP клиента из X-Forwarded-For / X-Real-IP
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),             // безопасно ловим паники
		middleware.RequestID(),           // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),  // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics), // счётчики и гистограммы по шаблону маршрута
	)
	if opts.TrustProxy {
		root.Use(chimw.RealIP)
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}
	if opts.Limiters.Common != nil {
		root.Use(middleware.RateLimit(opts.Limiters.Common))
	}

	h := handlers.New(svc, opts.MaxUploadBytes)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, svc, h, opts.Limiters)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, svc, h, opts.Limiters)
	return root
}

// registerRoutes: единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, svc *service.Service, h *handlers.Handlers, l Limiters) {
	auth := func(perms ...string) func(http.Handler) http.Handler {
		return middleware.RequireAuth(svc, perms...)
	}
	authLimit := middleware.RateLimit(l.Auth)
	uploadLimit := middleware.RateLimit(l.Upload)

	// auth
	r.With(authLimit).Post("/auth/register", h.Register)
	r.Post("/auth/verify-registration", h.VerifyRegistration)
	r.With(auth(permissions.CreateUser)).Post("/auth/resend-registration", h.ResendRegistration)
	r.With(authLimit).Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)
	r.Post("/auth/refresh-token", h.RefreshToken)
	r.With(authLimit).Post("/auth/reset-password", h.ResetPassword)
	r.With(auth(permissions.AnyWithAuth)).Post("/auth/change-password", h.ChangePassword)

	// profile
	r.With(auth(permissions.AnyWithAuth)).Get("/auth/profile", h.GetProfile)
	r.With(auth(permissions.AnyWithAuth)).Patch("/auth/profile", h.UpdateProfile)
	r.With(auth(permissions.AnyWithAuth)).Delete("/auth/profile", h.RequestDeleteProfile)
	r.Post("/auth/profile/verify-delete", h.VerifyDeleteProfile)

	// users
	r.With(auth(permissions.CreateUser)).Post("/users", h.CreateUser)
	r.With(auth(permissions.ReadUser)).Get("/users", h.ListUsers)
	r.With(auth(permissions.Owner, permissions.ReadUser)).Get("/users/{id}", h.GetUser)
	r.With(auth(permissions.UpdateUser)).Patch("/users/{id}", h.UpdateUser)
	r.With(auth(permissions.DeleteUser)).Delete("/users/{id}", h.DeleteUser)

	// roles
	r.With(auth(permissions.CreateRole)).Post("/roles", h.CreateRole)
	r.With(auth(permissions.ReadRole)).Get("/roles", h.ListRoles)
	r.With(auth(permissions.AnyWithAuth)).Get("/roles/{id}", h.GetRole)
	r.With(auth(permissions.UpdateRole)).Patch("/roles/{id}", h.UpdateRole)
	r.With(auth(permissions.DeleteRole)).Delete("/roles/{id}", h.DeleteRole)
	r.With(auth(permissions.ReadRole)).Get("/permissions", h.Permissions)

	// lookups
	r.With(auth(permissions.AnyWithAuth)).Get("/lookups/roles", h.LookupRoles)
	r.With(auth(permissions.AnyWithAuth)).Get("/lookups/users", h.LookupUsers)

	// uploads
	r.With(uploadLimit, auth(permissions.Owner, permissions.UpdateUser)).Post("/uploads/profile-image", h.UploadProfileImage)
	r.With(auth(permissions.Owner, permissions.UpdateUser)).Delete("/uploads/{owner}/{uploadID}", h.DeleteUpload)
	r.With(auth(permissions.Owner, permissions.UpdateUser)).Delete("/uploads/{owner}/category/{category}", h.DeleteUploads)
}
