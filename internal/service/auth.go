package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/mailer"
	"github.com/pribylovaa/go-access-service/internal/metrics"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/internal/storage"
	"github.com/pribylovaa/go-access-service/pkg/redact"
)

// RegisterInput: данные самостоятельной регистрации.
type RegisterInput struct {
	FirstName  string
	LastName   string
	MiddleName string
	Email      string
	Phone      string
	Password   string
}

// Register создаёт неактивного пользователя с ролью "user",
// выпускает токен подтверждения регистрации и отправляет письмо.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "service.auth.Register"

	lg := log.From(ctx)

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var phone string
	if strings.TrimSpace(in.Phone) != "" {
		if phone, err = s.normalizePhone(in.Phone); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := validatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.ensureUnique(ctx, email, phone, uuid.Nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	role, err := s.storage.RoleByValue(ctx, models.RoleUser)
	if err != nil {
		lg.Error("default_role_missing",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: default role: %w", op, err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		MiddleName:   strings.TrimSpace(in.MiddleName),
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		RoleID:       role.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrConflict)
		}

		lg.Error("save_user_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(email)),
	)

	if err := s.sendRegistration(ctx, user, mailer.KindRegistration, ""); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// sendRegistration выпускает VERIFY_REGISTRATION и отправляет письмо вида kind.
func (s *Service) sendRegistration(ctx context.Context, user *models.User, kind mailer.Kind, password string) error {
	token, _, err := s.IssueToken(ctx, user.ID, models.TokenVerifyRegistration, nil)
	if err != nil {
		return err
	}

	s.notify(ctx, user, kind, mailer.Data{
		Link:     s.link(pathVerifyRegistration, token),
		Password: password,
	})

	return nil
}

// ensureUnique проверяет, что e-mail и телефон не заняты другим пользователем.
func (s *Service) ensureUnique(ctx context.Context, email, phone string, self uuid.UUID) error {
	check := func(identifier string, taken error) error {
		if identifier == "" {
			return nil
		}

		u, err := s.storage.UserByIdentifier(ctx, identifier)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil
		case err != nil:
			return err
		case u.ID != self:
			return taken
		}

		return nil
	}

	if err := check(email, ErrEmailTaken); err != nil {
		return err
	}

	return check(phone, ErrPhoneTaken)
}

// tokenError приводит ошибки токена к ErrUnauthorized, сохраняя исходный вид.
func tokenError(err error) error {
	if errors.Is(err, ErrTokenExpiredOrInvalid) || errors.Is(err, ErrTokenNotFound) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return err
}

// VerifyRegistration погашает токен регистрации и активирует учётную запись.
// expectedUserID == uuid.Nil отключает проверку владельца.
func (s *Service) VerifyRegistration(ctx context.Context, raw string, expectedUserID uuid.UUID) (*models.User, error) {
	const op = "service.auth.VerifyRegistration"

	if _, err := s.VerifyToken(ctx, raw, models.TokenVerifyRegistration, expectedUserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, tokenError(err))
	}

	vt, err := s.ConsumeToken(ctx, raw, models.TokenVerifyRegistration)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, tokenError(err))
	}

	user, err := s.storage.UserByID(ctx, vt.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user.Active = true
	user.IsEmailVerified = true
	user.UpdatedAt = s.now()

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		log.From(ctx).Error("activate_user_failed",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_activated",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return user, nil
}

// ResendRegistration повторно выпускает токен регистрации и письмо.
// Для уже активной учётной записи возвращает ErrAlreadyActive.
func (s *Service) ResendRegistration(ctx context.Context, userID uuid.UUID) error {
	const op = "service.auth.ResendRegistration"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if user.Active && user.IsEmailVerified {
		return fmt.Errorf("%s: %w", op, ErrAlreadyActive)
	}

	if err := s.sendRegistration(ctx, user, mailer.KindRegistration, ""); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Login выполняет вход по e-mail или телефону.
// Каждый исход обновляет ровно одну из отметок lastLogin/lastFailedLogin;
// сбой этой записи только логируется.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	user, err := s.storage.UserByIdentifier(ctx, s.normalizeIdentifier(identifier))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.LoginAttempt(metrics.LoginNotFound)
			return nil, nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		s.metrics.LoginAttempt(metrics.LoginError)
		lg.Error("login_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx = log.With(ctx, slog.String("user_id", user.ID.String()))

	switch {
	case user.PasswordHash == "":
		s.recordLogin(ctx, user.ID, false)
		if err := s.sendRegistration(ctx, user, mailer.KindRegistration, ""); err != nil {
			log.From(ctx).Error("activation_resend_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
		s.metrics.LoginAttempt(metrics.LoginActivationRequired)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrActivationRequired)

	case !user.Active || !user.IsEmailVerified:
		s.recordLogin(ctx, user.ID, false)
		s.metrics.LoginAttempt(metrics.LoginInactive)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrAccountInactive)

	case !passwordMatches(user.PasswordHash, password):
		s.recordLogin(ctx, user.ID, false)
		s.metrics.LoginAttempt(metrics.LoginInvalidCredentials)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	now := s.recordLogin(ctx, user.ID, true)
	user.LastLogin = &now

	pair, err := s.GenerateAuthTokenPair(ctx, user.ID)
	if err != nil {
		s.metrics.LoginAttempt(metrics.LoginError)
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.LoginAttempt(metrics.LoginSuccess)
	log.From(ctx).Info("user_logged_in",
		slog.String("op", op),
	)

	return pair, user, nil
}

// recordLogin записывает отметку входа и возвращает её время.
func (s *Service) recordLogin(ctx context.Context, id uuid.UUID, success bool) (at time.Time) {
	const op = "service.auth.recordLogin"

	at = s.now()
	if err := s.storage.RecordLogin(ctx, id, at, success); err != nil {
		log.From(ctx).Warn("record_login_failed",
			slog.String("op", op),
			slog.Bool("success", success),
			slog.String("err", err.Error()),
		)
	}

	return at
}

// Refresh ротирует refresh-токен: проверяет, погашает и выпускает новую пару.
// Любая ошибка токена или владельца: ErrUnauthorized.
func (s *Service) Refresh(ctx context.Context, raw string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	if _, err := s.VerifyToken(ctx, raw, models.TokenRefresh, uuid.Nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, tokenError(err))
	}

	vt, err := s.ConsumeToken(ctx, raw, models.TokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, tokenError(err))
	}

	user, err := s.storage.UserByID(ctx, vt.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.Active {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	pair, err := s.GenerateAuthTokenPair(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Logout завершает сессию по access-токену (в том числе просроченному):
// находит связанный refresh-токен по jti (иначе по generatedAuthExp) и погашает его.
// Результат вызывающему не сообщается, все сбои только логируются.
func (s *Service) Logout(ctx context.Context, accessToken string) {
	const op = "service.auth.Logout"

	lg := log.From(ctx)

	claims, uid, err := s.parse(strings.TrimSpace(accessToken), models.TokenAccess, jwt.WithoutClaimsValidation())
	if err != nil || claims.Issuer != s.cfg.Auth.Issuer || claims.ExpiresAt == nil {
		lg.Debug("logout_token_rejected",
			slog.String("op", op),
		)
		return
	}

	accessExp := claims.ExpiresAt.Time.UTC()

	record, err := s.storage.RefreshTokenForSession(ctx, uid, claims.ID, accessExp)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			lg.Warn("logout_lookup_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
		return
	}

	if _, err := s.storage.ConsumeToken(ctx, record.TokenHash, models.TokenRefresh, uid); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			lg.Warn("logout_consume_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
		return
	}

	lg.Info("user_logged_out",
		slog.String("op", op),
		slog.String("user_id", uid.String()),
	)
}

// ChangePassword меняет пароль после проверки текущего,
// сбрасывает firstTimeLogin и отзывает все refresh-токены пользователя.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	const op = "service.auth.ChangePassword"

	lg := log.From(ctx)

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !passwordMatches(user.PasswordHash, current) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := validatePassword(next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hashPassword(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user.PasswordHash = hash
	user.FirstTimeLogin = false
	user.UpdatedAt = s.now()

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		lg.Error("change_password_failed",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.RevokeAllForUser(ctx, userID, models.TokenRefresh)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("password_changed",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.Int64("revoked", n),
	)

	return nil
}

// ResetPassword генерирует временный пароль и отправляет его на почту.
// Пользователь обязан сменить его при следующем входе (firstTimeLogin).
func (s *Service) ResetPassword(ctx context.Context, identifier string) error {
	const op = "service.auth.ResetPassword"

	lg := log.From(ctx)

	user, err := s.storage.UserByIdentifier(ctx, s.normalizeIdentifier(identifier))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	temp, err := generateTempPassword()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hashPassword(temp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user.PasswordHash = hash
	user.FirstTimeLogin = true
	user.UpdatedAt = s.now()

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		lg.Error("reset_password_failed",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.notify(ctx, user, mailer.KindTempPassword, mailer.Data{
		Link:     s.link(pathLogin, ""),
		Password: temp,
	})

	lg.Info("password_reset",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return nil
}
