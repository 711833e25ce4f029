package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты пакета postgres:
// - поднимают PostgreSQL через testcontainers-go (postgres:16-alpine);
// - применяют все миграции из ./migrations по порядку;
// - проверяют уникальность, атомарность ConsumeToken и выборки.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

var migrations = []string{
	"1_init_roles.up.sql",
	"2_init_users.up.sql",
	"3_init_tokens.up.sql",
	"4_init_uploads.up.sql",
}

// repoRootFromThisFile: корень репозитория относительно файла тестов.
func repoRootFromThisFile() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

// readMigration читает SQL-миграцию из ./migrations.
func readMigration(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(repoRootFromThisFile(), "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres поднимает временный PostgreSQL, применяет миграции
// и возвращает хранилище и функцию очистки.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	for _, m := range migrations {
		_, err = pool.Exec(ctx, readMigration(t, m))
		require.NoError(t, err, m)
	}

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		_ = st.Close(ctx)
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

func seedUser(t *testing.T, st *Storage, email, phone string, roleID uuid.UUID) *models.User {
	t.Helper()
	now := time.Now().UTC()
	u := &models.User{
		ID:        uuid.New(),
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     email,
		Phone:     phone,
		RoleID:    roleID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.SaveUser(context.Background(), u))
	return u
}

func TestIntegration_Users_UniqueEmailAndPhone(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	roleID := uuid.New()
	seedUser(t, st, "ann@example.com", "+254712345678", roleID)

	// Пустой телефон хранится как NULL и не конфликтует.
	seedUser(t, st, "a@example.com", "", roleID)
	seedUser(t, st, "b@example.com", "", roleID)

	dup := &models.User{ID: uuid.New(), FirstName: "X", LastName: "Y", Email: "ANN@example.com", RoleID: roleID}
	require.ErrorIs(t, st.SaveUser(ctx, dup), storage.ErrAlreadyExists)

	dup = &models.User{ID: uuid.New(), FirstName: "X", LastName: "Y", Email: "c@example.com", Phone: "+254712345678", RoleID: roleID}
	require.ErrorIs(t, st.SaveUser(ctx, dup), storage.ErrAlreadyExists)

	got, err := st.UserByIdentifier(ctx, "+254712345678")
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", got.Email)

	got, err = st.UserByIdentifier(ctx, "b@example.com")
	require.NoError(t, err)
	require.Empty(t, got.Phone)
}

func TestIntegration_Users_SoftDeleteHidesUser(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	roleID := uuid.New()
	u := seedUser(t, st, "ann@example.com", "", roleID)

	require.NoError(t, st.SoftDeleteUser(ctx, u.ID, time.Now().UTC()))

	_, err := st.UserByID(ctx, u.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	n, err := st.CountUsersByRole(ctx, roleID)
	require.NoError(t, err)
	require.Zero(t, n)

	require.ErrorIs(t, st.SoftDeleteUser(ctx, u.ID, time.Now()), storage.ErrNotFound)
}

func TestIntegration_Users_ListSearchAndPage(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	roleID := uuid.New()
	seedUser(t, st, "alpha@example.com", "", roleID)
	seedUser(t, st, "beta@example.com", "", roleID)
	seedUser(t, st, "gamma@example.com", "", uuid.New())

	users, err := st.ListUsers(ctx, models.UserFilter{RoleID: roleID})
	require.NoError(t, err)
	require.Len(t, users, 2)

	users, err = st.ListUsers(ctx, models.UserFilter{Search: "GAM"})
	require.NoError(t, err)
	require.Len(t, users, 1)

	users, err = st.ListUsers(ctx, models.UserFilter{Page: models.Page{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestIntegration_Tokens_ConsumeOnce(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	u := seedUser(t, st, "ann@example.com", "", uuid.New())
	now := time.Now().UTC()

	require.NoError(t, st.SaveToken(ctx, &models.Token{
		TokenHash: "hash-1", UserID: u.ID, Type: models.TokenVerifyRegistration,
		ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}))

	// Чужой тип не совпадает.
	_, err := st.ConsumeToken(ctx, "hash-1", models.TokenRefresh, u.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.ConsumeToken(ctx, "hash-1", models.TokenVerifyRegistration, u.ID); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())
}

func TestIntegration_Tokens_SessionLookupAndPurge(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	u := seedUser(t, st, "ann@example.com", "", uuid.New())
	now := time.Now().UTC().Truncate(time.Second)

	for i, h := range []string{"r1", "r2", "r3"} {
		exp := now.Add(time.Duration(min(i, 1)+1) * time.Hour)
		require.NoError(t, st.SaveToken(ctx, &models.Token{
			TokenHash: h, UserID: u.ID, Type: models.TokenRefresh,
			GeneratedAuthID: "jti-" + h, GeneratedAuthExp: &exp,
			ExpiresAt: now.Add(24 * time.Hour), CreatedAt: now,
		}))
	}
	require.NoError(t, st.SaveToken(ctx, &models.Token{
		TokenHash: "old", UserID: u.ID, Type: models.TokenDeleteProfile,
		ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour),
	}))

	got, err := st.RefreshTokenForSession(ctx, u.ID, "", now.Add(30*time.Minute))
	require.NoError(t, err)
	require.Equal(t, "r1", got.TokenHash)

	// r2 и r3 выпущены с одинаковым сроком access-токена.
	got, err = st.RefreshTokenForSession(ctx, u.ID, "jti-r3", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, "r3", got.TokenHash)
	require.Equal(t, "jti-r3", got.GeneratedAuthID)

	_, err = st.RefreshTokenForSession(ctx, u.ID, "", now.Add(3*time.Hour))
	require.ErrorIs(t, err, storage.ErrNotFound)

	n, err := st.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = st.DeleteUserTokens(ctx, u.ID, models.TokenRefresh)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestIntegration_Roles_CRUD(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	r := &models.Role{
		ID: uuid.New(), Name: "Manager", Value: "manager", Active: true,
		Permissions: []string{"USER_MANAGEMENT"}, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.SaveRole(ctx, r))

	dup := *r
	dup.ID = uuid.New()
	dup.Value = "other"
	dup.Name = "MANAGER"
	require.ErrorIs(t, st.SaveRole(ctx, &dup), storage.ErrAlreadyExists)

	got, err := st.RoleByValue(ctx, "manager")
	require.NoError(t, err)
	require.Equal(t, []string{"USER_MANAGEMENT"}, got.Permissions)

	got.Permissions = nil
	require.NoError(t, st.UpdateRole(ctx, got))

	got, err = st.RoleByID(ctx, r.ID)
	require.NoError(t, err)
	require.Empty(t, got.Permissions)

	require.NoError(t, st.DeleteRole(ctx, r.ID))
	require.ErrorIs(t, st.DeleteRole(ctx, r.ID), storage.ErrNotFound)
}

func TestIntegration_Uploads_ByOwner(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	u := seedUser(t, st, "ann@example.com", "", uuid.New())
	now := time.Now().UTC()

	up := &models.Upload{
		ID: uuid.New(), URL: "http://x/y.png", PublicID: "profile/y.png", Category: models.UploadProfileImage,
		OwnerID: u.ID, CreatedBy: u.ID, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, st.SaveUpload(ctx, up))

	list, err := st.UploadsByOwner(ctx, u.ID, models.UploadProfileImage)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = st.UploadByID(ctx, uuid.New(), up.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, st.DeleteUploads(ctx, []uuid.UUID{up.ID}))
	list, err = st.UploadsByOwner(ctx, u.ID, "")
	require.NoError(t, err)
	require.Empty(t, list)
}
