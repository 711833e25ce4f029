package service

import (
	"context"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/config"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/pribylovaa/go-access-service/internal/storage/memory"
	"github.com/pribylovaa/go-access-service/mocks"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testCfg() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "unit-secret",
			Issuer:                "access-service",
			Audience:              []string{"access-api"},
			AccessTokenTTL:        time.Hour,
			RefreshTokenTTL:       30 * 24 * time.Hour,
			RegistrationTokenTTL:  24 * time.Hour,
			ResetPasswordTokenTTL: 30 * time.Minute,
			VerifyEmailTokenTTL:   30 * time.Minute,
			VerifyPhoneTokenTTL:   10 * time.Minute,
			DeleteProfileTokenTTL: 30 * time.Minute,
			BcryptCost:            bcrypt.MinCost,
		},
		Bootstrap: config.BootstrapConfig{
			SuperAdminEmail:     "root@example.com",
			SuperAdminPhone:     "+254700000001",
			SuperAdminFirstName: "Super",
			SuperAdminLastName:  "Admin",
		},
		Links: config.LinksConfig{WebURL: "http://web.test"},
		Phone: config.PhoneConfig{DefaultRegion: "KE"},
	}
}

// clock: управляемые часы для проверки сроков и отметок входа.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

// letter: письмо, перехваченное inbox.
type letter struct {
	to, subject, body string
}

// inbox: отправитель, складывающий письма в память.
type inbox struct {
	mu      sync.Mutex
	letters []letter
}

func (i *inbox) Send(_ context.Context, to, subject, body string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.letters = append(i.letters, letter{to: to, subject: subject, body: body})

	return nil
}

func (i *inbox) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return len(i.letters)
}

var tokenRe = regexp.MustCompile(`token=([^"&]+)`)

// lastToken достаёт токен из ссылки последнего письма адресату.
func (i *inbox) lastToken(t *testing.T, to string) string {
	t.Helper()

	i.mu.Lock()
	defer i.mu.Unlock()

	for j := len(i.letters) - 1; j >= 0; j-- {
		if i.letters[j].to != to {
			continue
		}

		m := tokenRe.FindStringSubmatch(i.letters[j].body)
		require.Len(t, m, 2, "letter has no token link")

		tok, err := url.QueryUnescape(m[1])
		require.NoError(t, err)

		return tok
	}

	t.Fatalf("no letters to %s", to)
	return ""
}

var passwordRe = regexp.MustCompile(`<b>([^<]+)</b>`)

// lastPassword достаёт временный пароль из последнего письма адресату.
func (i *inbox) lastPassword(t *testing.T, to string) string {
	t.Helper()

	i.mu.Lock()
	defer i.mu.Unlock()

	for j := len(i.letters) - 1; j >= 0; j-- {
		if i.letters[j].to != to {
			continue
		}

		m := passwordRe.FindStringSubmatch(i.letters[j].body)
		require.Len(t, m, 2, "letter has no password")

		return m[1]
	}

	t.Fatalf("no letters to %s", to)
	return ""
}

// env: сервис поверх хранилища в памяти.
type env struct {
	svc   *Service
	st    *memory.Storage
	mail  *inbox
	clock *clock
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st := memory.New()
	mail := &inbox{}
	clk := newClock()

	svc := New(st, mail, testCfg())
	svc.now = clk.Now

	require.NoError(t, svc.Bootstrap(context.Background()))

	return &env{svc: svc, st: st, mail: mail, clock: clk}
}

// newMockSvc: сервис поверх gomock-хранилища.
func newMockSvc(t *testing.T) (*Service, *mocks.MockStorage, *mocks.MockSender, *gomock.Controller) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	mail := mocks.NewMockSender(ctrl)

	svc := New(st, mail, testCfg())
	clk := newClock()
	svc.now = clk.Now

	return svc, st, mail, ctrl
}

// role находит роль по value.
func (e *env) role(t *testing.T, value string) *models.Role {
	t.Helper()

	r, err := e.st.RoleByValue(context.Background(), value)
	require.NoError(t, err)

	return r
}

// activeUser заводит активного пользователя с паролем и ролью roleValue.
func (e *env) activeUser(t *testing.T, email, password, roleValue string) *models.User {
	t.Helper()

	hash, err := e.svc.hashPassword(password)
	require.NoError(t, err)

	now := e.clock.Now()
	u := &models.User{
		ID:              uuid.New(),
		FirstName:       "Test",
		LastName:        "User",
		Email:           email,
		PasswordHash:    hash,
		RoleID:          e.role(t, roleValue).ID,
		Active:          true,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, e.st.SaveUser(context.Background(), u))

	return u
}

// authContext строит AuthContext пользователя через Authenticate+Authorize.
func (e *env) authContext(t *testing.T, u *models.User) AuthContext {
	t.Helper()

	ctx := context.Background()

	pair, err := e.svc.GenerateAuthTokenPair(ctx, u.ID)
	require.NoError(t, err)

	p, err := e.svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)

	ac, err := Authorize(p, []string{permissions.AnyWithAuth})
	require.NoError(t, err)

	return ac
}
