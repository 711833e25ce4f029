package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/stretchr/testify/require"
)

func principalWith(perms []string, active bool) Principal {
	return Principal{
		User: &models.User{ID: uuid.New(), Active: true},
		Role: &models.Role{ID: uuid.New(), Active: active, Permissions: perms},
	}
}

// everyPermission: все строки, которые может запросить маршрут.
func everyPermission() []string {
	return append(permissions.All(), permissions.AnyWithAuth, permissions.Owner)
}

func TestAuthorize_AllowIffInExpandedOrImplicit(t *testing.T) {
	t.Parallel()

	catalog := permissions.All()
	rng := rand.New(rand.NewSource(42))

	roles := [][]string{
		nil,
		{},
		{permissions.UserManagement},
		{permissions.RoleManagement, permissions.ReadUser},
		{permissions.CreateUser, permissions.ReadUser},
		permissions.Modules(),
	}
	for i := 0; i < 50; i++ {
		var perms []string
		for _, p := range catalog {
			if rng.Intn(3) == 0 {
				perms = append(perms, p)
			}
		}
		roles = append(roles, perms)
	}

	for _, perms := range roles {
		p := principalWith(perms, true)
		want := permissions.ExpandAll(permissions.Normalize(perms))
		want.Add(permissions.AnyWithAuth, permissions.Owner)

		for _, req := range everyPermission() {
			_, err := Authorize(p, []string{req})
			if want.Has(req) {
				require.NoError(t, err, "role %v, required %s", perms, req)
			} else {
				require.ErrorIs(t, err, ErrForbidden, "role %v, required %s", perms, req)
			}
		}
	}
}

func TestAuthorize_NormalizedRoleHasSameEffect(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	catalog := permissions.All()

	for i := 0; i < 50; i++ {
		var perms []string
		for _, p := range catalog {
			if rng.Intn(2) == 0 {
				perms = append(perms, p)
			}
		}

		raw := principalWith(perms, true)
		norm := principalWith(permissions.Normalize(perms), true)

		for _, req := range everyPermission() {
			_, errRaw := Authorize(raw, []string{req})
			_, errNorm := Authorize(norm, []string{req})
			require.Equal(t, errRaw == nil, errNorm == nil, "perms %v, required %s", perms, req)
		}
	}
}

func TestAuthorize_AllChildrenGrantModule(t *testing.T) {
	t.Parallel()

	children := permissions.Children(permissions.UserManagement)

	_, err := Authorize(principalWith(children, true), []string{permissions.UserManagement})
	require.NoError(t, err)

	_, err = Authorize(principalWith(children[1:], true), []string{permissions.UserManagement})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = Authorize(principalWith(children, true), []string{permissions.RoleManagement})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorize_AnyOfRequired(t *testing.T) {
	t.Parallel()

	p := principalWith([]string{permissions.ReadRole}, true)

	_, err := Authorize(p, []string{permissions.CreateUser, permissions.ReadRole})
	require.NoError(t, err)

	_, err = Authorize(p, []string{permissions.CreateUser, permissions.DeleteRole})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorize_EmptyRequiredAlwaysAllows(t *testing.T) {
	t.Parallel()

	for _, p := range []Principal{
		principalWith(nil, true),
		principalWith([]string{permissions.UserManagement}, false),
		{User: &models.User{ID: uuid.New()}},
	} {
		ac, err := Authorize(p, nil)
		require.NoError(t, err)
		require.True(t, ac.Has(permissions.AnyWithAuth))
	}
}

func TestAuthorize_MissingOrInactiveRole(t *testing.T) {
	t.Parallel()

	_, err := Authorize(principalWith([]string{permissions.UserManagement}, false), []string{permissions.ReadUser})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = Authorize(Principal{User: &models.User{ID: uuid.New()}}, []string{permissions.AnyWithAuth})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = Authorize(Principal{}, []string{permissions.AnyWithAuth})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthorize_DoesNotMutateRole(t *testing.T) {
	t.Parallel()

	perms := []string{permissions.UserManagement}
	p := principalWith(perms, true)

	ac, err := Authorize(p, []string{permissions.CreateUser})
	require.NoError(t, err)
	require.Equal(t, []string{permissions.UserManagement}, p.Role.Permissions)
	require.True(t, ac.Has(permissions.CreateUser))
	require.True(t, ac.Has(permissions.Owner))
}

func TestAuthContext_IsSelf(t *testing.T) {
	t.Parallel()

	p := principalWith(nil, true)
	ac, err := Authorize(p, nil)
	require.NoError(t, err)

	require.True(t, ac.IsSelf(p.User.ID))
	require.False(t, ac.IsSelf(uuid.New()))
	require.False(t, ac.IsSelf(uuid.Nil))
	require.False(t, AuthContext{}.IsSelf(uuid.Nil))
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	u := e.activeUser(t, "auth@example.com", "Passw0rd1", models.RoleUser)

	pair, err := e.svc.GenerateAuthTokenPair(ctx, u.ID)
	require.NoError(t, err)

	p, err := e.svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, p.User.ID)
	require.Equal(t, models.RoleUser, p.Role.Value)
	require.Equal(t, pair.AccessExpiresAt, p.TokenExpiresAt)

	// Роль "user" без прав всё равно проходит маршруты ANY_WITH_AUTH.
	_, err = Authorize(p, []string{permissions.AnyWithAuth})
	require.NoError(t, err)
	_, err = Authorize(p, []string{permissions.ReadUser})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = e.svc.Authenticate(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.svc.Authenticate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, e.st.SoftDeleteUser(ctx, u.ID, e.clock.Now()))
	_, err = e.svc.Authenticate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_ExpiredAccess(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	u := e.activeUser(t, "exp@example.com", "Passw0rd1", models.RoleUser)

	pair, err := e.svc.GenerateAuthTokenPair(ctx, u.ID)
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)

	_, err = e.svc.Authenticate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, ErrTokenExpiredOrInvalid)
}
