package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-access-service/internal/config"
	"github.com/pribylovaa/go-access-service/internal/ratelimit"
	"github.com/pribylovaa/go-access-service/internal/service"
	"github.com/pribylovaa/go-access-service/internal/storage"
	"github.com/pribylovaa/go-access-service/internal/storage/memory"
	"github.com/pribylovaa/go-access-service/mocks"
)

const (
	adminEmail = "root@example.com"
	basePath   = "/v1"
)

func testCfg() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "router-secret",
			Issuer:                "access-service",
			Audience:              []string{"access-api"},
			AccessTokenTTL:        time.Hour,
			RefreshTokenTTL:       24 * time.Hour,
			RegistrationTokenTTL:  24 * time.Hour,
			ResetPasswordTokenTTL: 30 * time.Minute,
			VerifyEmailTokenTTL:   30 * time.Minute,
			VerifyPhoneTokenTTL:   10 * time.Minute,
			DeleteProfileTokenTTL: 30 * time.Minute,
			BcryptCost:            bcrypt.MinCost,
		},
		Bootstrap: config.BootstrapConfig{
			SuperAdminEmail:     adminEmail,
			SuperAdminPhone:     "+254700000001",
			SuperAdminFirstName: "Super",
			SuperAdminLastName:  "Admin",
		},
		Links: config.LinksConfig{WebURL: "http://web.test"},
		Phone: config.PhoneConfig{DefaultRegion: "KE"},
	}
}

// inbox: отправитель, складывающий письма в память.
type inbox struct {
	mu     sync.Mutex
	bodies map[string][]string
}

func (i *inbox) Send(_ context.Context, to, _, body string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bodies == nil {
		i.bodies = make(map[string][]string)
	}
	i.bodies[to] = append(i.bodies[to], body)

	return nil
}

var (
	tokenRe    = regexp.MustCompile(`token=([^"&]+)`)
	passwordRe = regexp.MustCompile(`<b>([^<]+)</b>`)
)

func (i *inbox) last(t *testing.T, to string, re *regexp.Regexp) string {
	t.Helper()

	i.mu.Lock()
	defer i.mu.Unlock()

	letters := i.bodies[to]
	require.NotEmpty(t, letters, "no letters to %s", to)

	m := re.FindStringSubmatch(letters[len(letters)-1])
	require.Len(t, m, 2)

	v, err := url.QueryUnescape(m[1])
	require.NoError(t, err)

	return v
}

type testServer struct {
	t    *testing.T
	h    http.Handler
	mail *inbox
	st   *memory.Storage
	svc  *service.Service
}

func newServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	st := memory.New()
	mail := &inbox{}
	svc := service.New(st, mail, testCfg())
	require.NoError(t, svc.Bootstrap(context.Background()))

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts.BasePath = basePath

	return &testServer{t: t, h: NewRouter(svc, opts), mail: mail, st: st, svc: svc}
}

type response struct {
	code int
	body []byte
	hdr  http.Header
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (r response) errCode(t *testing.T) string {
	t.Helper()

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	r.decode(t, &env)
	return env.Error.Code
}

func (s *testServer) do(method, path, token string, body any) response {
	s.t.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, basePath+path, rdr)
	req.RemoteAddr = "192.0.2.10:4000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)

	return response{code: rr.Code, body: rr.Body.Bytes(), hdr: rr.Header()}
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (s *testServer) login(identifier, password string) tokens {
	s.t.Helper()

	res := s.do(http.MethodPost, "/auth/login", "", map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	require.Equal(s.t, http.StatusOK, res.code, string(res.body))

	var out tokens
	res.decode(s.t, &out)
	return out
}

// adminLogin активирует bootstrap-администратора и входит им.
func (s *testServer) adminLogin() tokens {
	s.t.Helper()

	password := s.mail.last(s.t, adminEmail, passwordRe)
	token := s.mail.last(s.t, adminEmail, tokenRe)

	res := s.do(http.MethodPost, "/auth/verify-registration", "", map[string]string{"token": token})
	require.Equal(s.t, http.StatusOK, res.code, string(res.body))

	return s.login(adminEmail, password)
}

// registerActive регистрирует пользователя, подтверждает e-mail и входит.
func (s *testServer) registerActive(email, password string) tokens {
	s.t.Helper()

	res := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      email,
		"password":   password,
	})
	require.Equal(s.t, http.StatusCreated, res.code, string(res.body))

	res = s.do(http.MethodPost, "/auth/verify-registration", "", map[string]string{
		"token": s.mail.last(s.t, email, tokenRe),
	})
	require.Equal(s.t, http.StatusOK, res.code, string(res.body))

	return s.login(email, password)
}

func TestRouter_RegistrationLifecycle(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})

	res := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      "Jane@Example.com",
		"phone":      "0712345678",
		"password":   "secret123",
	})
	require.Equal(t, http.StatusCreated, res.code, string(res.body))

	var created struct {
		ID     string `json:"id"`
		Email  string `json:"email"`
		Phone  string `json:"phone"`
		Active bool   `json:"active"`
	}
	res.decode(t, &created)
	require.Equal(t, "jane@example.com", created.Email)
	require.Equal(t, "+254712345678", created.Phone)
	require.False(t, created.Active)
	require.NotContains(t, string(res.body), "password")

	// До подтверждения вход запрещён.
	res = s.do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "jane@example.com", "password": "secret123"})
	require.Equal(t, http.StatusForbidden, res.code)
	require.Equal(t, "account_inactive", res.errCode(t))

	token := s.mail.last(t, "jane@example.com", tokenRe)
	res = s.do(http.MethodPost, "/auth/verify-registration", "", map[string]string{"token": token, "user_id": created.ID})
	require.Equal(t, http.StatusOK, res.code, string(res.body))

	// Повторное погашение того же токена.
	res = s.do(http.MethodPost, "/auth/verify-registration", "", map[string]string{"token": token})
	require.Equal(t, http.StatusUnauthorized, res.code)

	// Вход по телефону в локальном формате.
	pair := s.login("0712345678", "secret123")
	require.NotEmpty(t, pair.AccessToken)
	require.Equal(t, created.ID, pair.User.ID)

	res = s.do(http.MethodGet, "/auth/profile", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.code)
}

func TestRouter_Register_Validation(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})

	tcs := []struct {
		name     string
		body     any
		wantCode string
	}{
		{"missing_fields", map[string]string{"email": "a@b.co"}, "invalid_argument"},
		{"bad_email", map[string]string{"first_name": "A", "last_name": "B", "email": "nope", "password": "secret123"}, "invalid_argument"},
		{"unknown_field", map[string]string{"first_name": "A", "last_name": "B", "email": "a@b.co", "password": "secret123", "role": "super_admin"}, "invalid_argument"},
		{"weak_password", map[string]string{"first_name": "A", "last_name": "B", "email": "a@b.co", "password": "short"}, "weak_password"},
		{"bad_phone", map[string]string{"first_name": "A", "last_name": "B", "email": "a@b.co", "phone": "12", "password": "secret123"}, "invalid_phone"},
		{"email_taken", map[string]string{"first_name": "A", "last_name": "B", "email": adminEmail, "password": "secret123"}, "email_taken"},
	}

	for _, tc := range tcs {
		res := s.do(http.MethodPost, "/auth/register", "", tc.body)
		require.NotEqual(t, http.StatusCreated, res.code, tc.name)
		require.Equal(t, tc.wantCode, res.errCode(t), tc.name)
	}
}

func TestRouter_Login_DoesNotRevealUnknownAccounts(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})
	s.registerActive("user@example.com", "secret123")

	unknown := s.do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "ghost@example.com", "password": "secret123"})
	wrong := s.do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "user@example.com", "password": "secret999"})

	require.Equal(t, http.StatusUnauthorized, unknown.code)
	require.Equal(t, http.StatusUnauthorized, wrong.code)
	require.Equal(t, "invalid_credentials", unknown.errCode(t))
	require.Equal(t, "invalid_credentials", wrong.errCode(t))
}

func TestRouter_RefreshAndLogout(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})
	pair := s.registerActive("user@example.com", "secret123")

	res := s.do(http.MethodPost, "/auth/refresh-token", "", map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, res.code, string(res.body))

	var rotated tokens
	res.decode(t, &rotated)

	// Старый refresh-токен погашен.
	res = s.do(http.MethodPost, "/auth/refresh-token", "", map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, res.code)

	res = s.do(http.MethodPost, "/auth/logout", rotated.AccessToken, nil)
	require.Equal(t, http.StatusAccepted, res.code)

	// Сессия завершена: refresh-токен этой пары больше не работает.
	res = s.do(http.MethodPost, "/auth/refresh-token", "", map[string]string{"refresh_token": rotated.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, res.code)

	// Logout без токена тоже 202.
	res = s.do(http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusAccepted, res.code)
}

func TestRouter_ChangeAndResetPassword(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})
	pair := s.registerActive("user@example.com", "secret123")

	res := s.do(http.MethodPost, "/auth/change-password", pair.AccessToken, map[string]string{
		"current_password": "wrong1234",
		"new_password":     "newsecret1",
	})
	require.Equal(t, http.StatusUnauthorized, res.code)
	require.Equal(t, "invalid_credentials", res.errCode(t))

	res = s.do(http.MethodPost, "/auth/change-password", pair.AccessToken, map[string]string{
		"current_password": "secret123",
		"new_password":     "newsecret1",
	})
	require.Equal(t, http.StatusNoContent, res.code, string(res.body))

	s.login("user@example.com", "newsecret1")

	// Неизвестный идентификатор не раскрывается.
	res = s.do(http.MethodPost, "/auth/reset-password", "", map[string]string{"identifier": "ghost@example.com"})
	require.Equal(t, http.StatusAccepted, res.code)

	res = s.do(http.MethodPost, "/auth/reset-password", "", map[string]string{"identifier": "user@example.com"})
	require.Equal(t, http.StatusAccepted, res.code)

	temp := s.mail.last(t, "user@example.com", passwordRe)
	s.login("user@example.com", temp)
}

func TestRouter_Permissions(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})
	user := s.registerActive("user@example.com", "secret123")

	// Без токена.
	res := s.do(http.MethodGet, "/auth/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, res.code)
	require.Equal(t, "unauthenticated", res.errCode(t))

	// Роль "user" без прав: только ANY_WITH_AUTH и OWNER.
	res = s.do(http.MethodGet, "/users", user.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, res.code)
	require.Equal(t, "permission_denied", res.errCode(t))

	res = s.do(http.MethodGet, "/users/"+user.User.ID, user.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.code)

	admin := s.adminLogin()

	res = s.do(http.MethodGet, "/users/"+admin.User.ID, user.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, res.code)

	res = s.do(http.MethodGet, "/permissions", user.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, res.code)

	res = s.do(http.MethodGet, "/permissions", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.code)

	var catalog []struct {
		Module      string   `json:"module"`
		Permissions []string `json:"permissions"`
	}
	res.decode(t, &catalog)
	require.NotEmpty(t, catalog)

	// Lookup без READ_USER возвращает только самого вызывающего.
	res = s.do(http.MethodGet, "/lookups/users", user.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.code)

	var items []struct {
		ID string `json:"id"`
	}
	res.decode(t, &items)
	require.Len(t, items, 1)
	require.Equal(t, user.User.ID, items[0].ID)
}

func TestRouter_RoleAndUserManagement(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})
	admin := s.adminLogin()

	res := s.do(http.MethodPost, "/roles", admin.AccessToken, map[string]any{
		"name":        "Manager",
		"permissions": []string{"USER_MANAGEMENT.READ_USER", "USER_MANAGEMENT.CREATE_USER", "USER_MANAGEMENT.UPDATE_USER", "USER_MANAGEMENT.DELETE_USER"},
	})
	require.Equal(t, http.StatusCreated, res.code, string(res.body))

	var role struct {
		ID          string   `json:"id"`
		Value       string   `json:"value"`
		Permissions []string `json:"permissions"`
		Active      bool     `json:"active"`
	}
	res.decode(t, &role)
	require.Equal(t, "manager", role.Value)
	require.Equal(t, []string{"USER_MANAGEMENT"}, role.Permissions)
	require.True(t, role.Active)

	res = s.do(http.MethodPost, "/roles", admin.AccessToken, map[string]any{
		"name":        "Broken",
		"permissions": []string{"NOPE.READ"},
	})
	require.Equal(t, http.StatusBadRequest, res.code)
	require.Equal(t, "unknown_permission", res.errCode(t))

	res = s.do(http.MethodPost, "/users", admin.AccessToken, map[string]string{
		"first_name": "Mark",
		"last_name":  "Manager",
		"email":      "manager@example.com",
		"role_id":    role.ID,
	})
	require.Equal(t, http.StatusCreated, res.code, string(res.body))

	var managerUser struct {
		ID string `json:"id"`
	}
	res.decode(t, &managerUser)

	// Активация по письму и вход временным паролем.
	temp := s.mail.last(t, "manager@example.com", passwordRe)
	res = s.do(http.MethodPost, "/auth/verify-registration", "", map[string]string{
		"token": s.mail.last(t, "manager@example.com", tokenRe),
	})
	require.Equal(t, http.StatusOK, res.code, string(res.body))
	manager := s.login("manager@example.com", temp)

	// Модуль роли раскрывается в гранулярные права.
	res = s.do(http.MethodGet, "/users", manager.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.code)

	var page struct {
		Items []struct {
			Email string `json:"email"`
		} `json:"items"`
		Limit int `json:"limit"`
	}
	res.decode(t, &page)
	require.Equal(t, 50, page.Limit)
	for _, it := range page.Items {
		require.NotEqual(t, adminEmail, it.Email, "protected users are hidden")
	}

	// Чужие роли менеджеру недоступны.
	res = s.do(http.MethodPost, "/roles", manager.AccessToken, map[string]any{"name": "X"})
	require.Equal(t, http.StatusForbidden, res.code)

	// Роль назначена: удалить нельзя.
	res = s.do(http.MethodDelete, "/roles/"+role.ID, admin.AccessToken, nil)
	require.Equal(t, http.StatusConflict, res.code)
	require.Equal(t, "role_in_use", res.errCode(t))

	// Защищённого пользователя не изменить.
	res = s.do(http.MethodPatch, "/users/"+admin.User.ID, manager.AccessToken, map[string]any{"first_name": "Hacker"})
	require.Equal(t, http.StatusForbidden, res.code)
	require.Equal(t, "protected", res.errCode(t))

	res = s.do(http.MethodDelete, "/users/"+managerUser.ID, admin.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, res.code)

	// Удалённый пользователь не аутентифицируется.
	res = s.do(http.MethodGet, "/auth/profile", manager.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, res.code)

	res = s.do(http.MethodDelete, "/roles/"+role.ID, admin.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, res.code)

	res = s.do(http.MethodGet, "/roles/"+role.ID, admin.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, res.code)

	res = s.do(http.MethodGet, "/roles/not-a-uuid", admin.AccessToken, nil)
	require.Equal(t, http.StatusBadRequest, res.code)
}

func TestRouter_DeleteProfile_TwoSteps(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})
	user := s.registerActive("user@example.com", "secret123")

	res := s.do(http.MethodDelete, "/auth/profile", user.AccessToken, nil)
	require.Equal(t, http.StatusAccepted, res.code)

	// До подтверждения профиль жив.
	res = s.do(http.MethodGet, "/auth/profile", user.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.code)

	res = s.do(http.MethodPost, "/auth/profile/verify-delete", "", map[string]string{
		"token": s.mail.last(t, "user@example.com", tokenRe),
	})
	require.Equal(t, http.StatusNoContent, res.code, string(res.body))

	res = s.do(http.MethodGet, "/auth/profile", user.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, res.code)

	// Защищённый профиль удалить нельзя.
	admin := s.adminLogin()
	res = s.do(http.MethodDelete, "/auth/profile", admin.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, res.code)
}

func TestRouter_AuthRateLimit_CountsFailuresOnly(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{Limiters: Limiters{
		Auth: ratelimit.NewLocal(ratelimit.Rule{Name: "auth", Requests: 3, Window: time.Hour, FailedOnly: true}),
	}})
	s.registerActive("user@example.com", "secret123")

	// Успешные входы не расходуют лимит.
	for i := 0; i < 5; i++ {
		s.login("user@example.com", "secret123")
	}

	for i := 0; i < 3; i++ {
		res := s.do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "user@example.com", "password": "wrong1234"})
		require.Equal(t, http.StatusUnauthorized, res.code)
	}

	res := s.do(http.MethodPost, "/auth/login", "", map[string]string{"identifier": "user@example.com", "password": "secret123"})
	require.Equal(t, http.StatusTooManyRequests, res.code)
	require.Equal(t, "resource_exhausted", res.errCode(t))
	require.NotEmpty(t, res.hdr.Get("Retry-After"))
}

func TestRouter_RequestIDInErrors(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})

	res := s.do(http.MethodGet, "/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, res.code)

	rid := res.hdr.Get("X-Request-Id")
	require.NotEmpty(t, rid)
	require.Contains(t, string(res.body), rid)
}

func multipartImage(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	fw, err := mw.CreateFormFile("file", "avatar.png")
	require.NoError(t, err)
	// Сигнатура PNG: DetectContentType вернёт image/png.
	_, err = fw.Write(append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestRouter_UploadProfileImage(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	objects := mocks.NewMockObjectStore(ctrl)

	s := newServer(t, Options{})
	s.svc.SetObjectStore(objects)

	user := s.registerActive("user@example.com", "secret123")
	other := s.registerActive("other@example.com", "secret123")

	objects.EXPECT().
		Upload(gomock.Any(), "users/"+user.User.ID+"/profile_img", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, obj storage.Object) (*storage.StoredObject, error) {
			require.Equal(t, "image/png", obj.ContentType)
			require.Equal(t, "avatar.png", obj.Name)
			return &storage.StoredObject{PublicID: "users/x/profile_img/1.png", URL: "http://cdn.test/1.png"}, nil
		})

	body, ctype := multipartImage(t, nil)
	req := httptest.NewRequest(http.MethodPost, basePath+"/uploads/profile-image", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+user.AccessToken)
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var up struct {
		ID       string `json:"id"`
		URL      string `json:"url"`
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &up))
	require.Equal(t, "PROFILE_IMG", up.Category)

	res := s.do(http.MethodGet, "/auth/profile", user.AccessToken, nil)
	require.True(t, strings.Contains(string(res.body), "http://cdn.test/1.png"))

	// Загрузка за другого пользователя без UPDATE_USER запрещена.
	body, ctype = multipartImage(t, map[string]string{"owner_id": user.User.ID})
	req = httptest.NewRequest(http.MethodPost, basePath+"/uploads/profile-image", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+other.AccessToken)
	rr = httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	objects.EXPECT().Delete(gomock.Any(), []string{"users/x/profile_img/1.png"}).Return(nil)

	res = s.do(http.MethodDelete, "/uploads/"+user.User.ID+"/"+up.ID, user.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, res.code, string(res.body))

	res = s.do(http.MethodDelete, "/uploads/"+user.User.ID+"/"+uuid.NewString(), user.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, res.code)
}

func TestRouter_UploadsDisabled(t *testing.T) {
	t.Parallel()

	s := newServer(t, Options{})
	user := s.registerActive("user@example.com", "secret123")

	res := s.do(http.MethodDelete, "/uploads/"+user.User.ID+"/category/profile_img", user.AccessToken, nil)
	require.Equal(t, http.StatusServiceUnavailable, res.code)
}
