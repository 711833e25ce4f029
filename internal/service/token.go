package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/pkg/log"
	"github.com/pribylovaa/go-access-service/internal/storage"
)

// tokenClaims: полезная нагрузка всех токенов сервиса.
// Тип токена входит в подпись, поэтому токен одного типа нельзя
// предъявить вместо другого.
type tokenClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// VerifiedToken: результат успешной проверки токена.
// Record заполнен только для сохраняемых типов (всё, кроме ACCESS).
type VerifiedToken struct {
	UserID    uuid.UUID
	Type      models.TokenType
	ExpiresAt time.Time
	Record    *models.Token
}

// hashToken возвращает отпечаток токена, под которым он хранится.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ttlFor возвращает время жизни токена заданного типа.
func (s *Service) ttlFor(typ models.TokenType) time.Duration {
	a := s.cfg.Auth

	switch typ {
	case models.TokenAccess:
		return a.AccessTokenTTL
	case models.TokenRefresh:
		return a.RefreshTokenTTL
	case models.TokenVerifyRegistration:
		return a.RegistrationTokenTTL
	case models.TokenResetPassword:
		return a.ResetPasswordTokenTTL
	case models.TokenVerifyEmailChange:
		return a.VerifyEmailTokenTTL
	case models.TokenVerifyPhone:
		return a.VerifyPhoneTokenTTL
	case models.TokenDeleteProfile:
		return a.DeleteProfileTokenTTL
	}

	return 0
}

// sign подписывает claims секретом сервиса и возвращает токен и его jti.
func (s *Service) sign(userID uuid.UUID, typ models.TokenType, now, exp time.Time) (string, string, error) {
	jti := uuid.NewString()
	claims := tokenClaims{
		Type: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			Issuer:    s.cfg.Auth.Issuer,
			Audience:  jwt.ClaimStrings(s.cfg.Auth.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Auth.JWTSecret))
	if err != nil {
		return "", "", err
	}

	return signed, jti, nil
}

// issued: выпущенный токен.
type issued struct {
	raw string
	id  string
	exp time.Time
}

// IssueToken выпускает токен типа typ для пользователя.
// Все типы, кроме ACCESS, сохраняются; authExp задаётся только для REFRESH
// и связывает его с access-токеном той же сессии.
func (s *Service) IssueToken(ctx context.Context, userID uuid.UUID, typ models.TokenType, authExp *time.Time) (string, time.Time, error) {
	var access *issued
	if authExp != nil {
		access = &issued{exp: *authExp}
	}

	tok, err := s.issue(ctx, userID, typ, access)
	if err != nil {
		return "", time.Time{}, err
	}

	return tok.raw, tok.exp, nil
}

// issue выпускает токен; access задаётся только для REFRESH.
func (s *Service) issue(ctx context.Context, userID uuid.UUID, typ models.TokenType, access *issued) (*issued, error) {
	const (
		op          = "service.token.IssueToken"
		maxAttempts = 5
	)

	lg := log.From(ctx)

	if !typ.Valid() {
		return nil, fmt.Errorf("%s: unknown token type %q", op, typ)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		now := s.now()
		// Срок округляется до секунды: так он совпадает с exp внутри JWT,
		// и поиск сессии при logout сравнивает одинаковые значения.
		exp := now.Add(s.ttlFor(typ)).Truncate(time.Second)

		signed, jti, err := s.sign(userID, typ, now, exp)
		if err != nil {
			lg.Error("token_sign_failed",
				slog.String("op", op),
				slog.String("type", string(typ)),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		tok := &issued{raw: signed, id: jti, exp: exp}

		if !typ.Persisted() {
			return tok, nil
		}

		record := &models.Token{
			TokenHash: hashToken(signed),
			UserID:    userID,
			Type:      typ,
			ExpiresAt: exp,
			CreatedAt: now,
		}
		if access != nil {
			authExp := access.exp
			record.GeneratedAuthID = access.id
			record.GeneratedAuthExp = &authExp
		}

		if err := s.storage.SaveToken(ctx, record); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия: пробуем сгенерировать заново.
				continue
			}

			lg.Error("save_token_failed",
				slog.String("op", op),
				slog.String("type", string(typ)),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return tok, nil
	}

	lg.Error("token_collision_exceeded",
		slog.String("op", op),
		slog.String("type", string(typ)),
	)

	return nil, fmt.Errorf("%s: %w", op, ErrTokenCollision)
}

// parse проверяет подпись, срок, издателя, аудиторию и тип токена.
func (s *Service) parse(raw string, typ models.TokenType, opts ...jwt.ParserOption) (*tokenClaims, uuid.UUID, error) {
	opts = append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Auth.Issuer),
		jwt.WithAudience(s.cfg.Auth.Audience...),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}, opts...)

	token, err := jwt.ParseWithClaims(raw, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.Auth.JWTSecret), nil
		},
		opts...,
	)
	if err != nil {
		return nil, uuid.Nil, ErrTokenExpiredOrInvalid
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.Type != string(typ) {
		return nil, uuid.Nil, ErrTokenExpiredOrInvalid
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, ErrTokenExpiredOrInvalid
	}

	return claims, uid, nil
}

// VerifyToken проверяет токен:
//   - подпись и срок действия (ErrTokenExpiredOrInvalid);
//   - если expectedUserID не uuid.Nil: совпадение владельца (ErrUnauthorized);
//   - для сохраняемых типов: наличие активной записи (ErrTokenNotFound).
//
// ACCESS-токены проверяются без обращения к хранилищу.
func (s *Service) VerifyToken(ctx context.Context, raw string, typ models.TokenType, expectedUserID uuid.UUID) (*VerifiedToken, error) {
	const op = "service.token.VerifyToken"

	claims, uid, err := s.parse(raw, typ)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if expectedUserID != uuid.Nil && uid != expectedUserID {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	vt := &VerifiedToken{
		UserID:    uid,
		Type:      typ,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}

	if !typ.Persisted() {
		return vt, nil
	}

	record, err := s.storage.TokenByHash(ctx, hashToken(raw), typ, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		log.From(ctx).Error("token_lookup_failed",
			slog.String("op", op),
			slog.String("type", string(typ)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	vt.Record = record

	return vt, nil
}

// ConsumeToken повторно проверяет токен и атомарно удаляет его запись.
// Из двух конкурентных вызовов с одним токеном успешен ровно один,
// второй получает ErrTokenNotFound.
func (s *Service) ConsumeToken(ctx context.Context, raw string, typ models.TokenType) (*VerifiedToken, error) {
	const op = "service.token.ConsumeToken"

	if !typ.Persisted() {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenExpiredOrInvalid)
	}

	claims, uid, err := s.parse(raw, typ)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	record, err := s.storage.ConsumeToken(ctx, hashToken(raw), typ, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		log.From(ctx).Error("token_consume_failed",
			slog.String("op", op),
			slog.String("type", string(typ)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &VerifiedToken{
		UserID:    uid,
		Type:      typ,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		Record:    record,
	}, nil
}

// GenerateAuthTokenPair выпускает пару access/refresh.
// Сохраняется только refresh-токен; он хранит jti и срок access-токена.
func (s *Service) GenerateAuthTokenPair(ctx context.Context, userID uuid.UUID) (*models.TokenPair, error) {
	const op = "service.token.GenerateAuthTokenPair"

	access, err := s.issue(ctx, userID, models.TokenAccess, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.issue(ctx, userID, models.TokenRefresh, access)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      access.raw,
		AccessExpiresAt:  access.exp,
		RefreshToken:     refresh.raw,
		RefreshExpiresAt: refresh.exp,
	}, nil
}

// RevokeAllForUser удаляет все сохранённые токены типа typ пользователя.
func (s *Service) RevokeAllForUser(ctx context.Context, userID uuid.UUID, typ models.TokenType) (int64, error) {
	const op = "service.token.RevokeAllForUser"

	n, err := s.storage.DeleteUserTokens(ctx, userID, typ)
	if err != nil {
		log.From(ctx).Error("revoke_tokens_failed",
			slog.String("op", op),
			slog.String("type", string(typ)),
			slog.String("err", err.Error()),
		)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
