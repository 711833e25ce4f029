package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/stretchr/testify/require"
)

func TestCreateUser_TempPasswordAndActivation(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	role := e.role(t, models.RoleUser)

	u, err := e.svc.CreateUser(ctx, CreateUserInput{
		FirstName: "Staff",
		LastName:  "Member",
		Email:     "staff@example.com",
		Phone:     "+254711111111",
		RoleID:    role.ID,
	})
	require.NoError(t, err)
	require.False(t, u.Active)
	require.True(t, u.FirstTimeLogin)

	temp := e.mail.lastPassword(t, "staff@example.com")
	token := e.mail.lastToken(t, "staff@example.com")

	_, _, err = e.svc.Login(ctx, "staff@example.com", temp)
	require.ErrorIs(t, err, ErrAccountInactive)

	_, err = e.svc.VerifyRegistration(ctx, token, u.ID)
	require.NoError(t, err)

	_, user, err := e.svc.Login(ctx, "staff@example.com", temp)
	require.NoError(t, err)
	require.True(t, user.FirstTimeLogin)
}

func TestCreateUser_Rules(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateUser(ctx, CreateUserInput{Email: "x@example.com", RoleID: e.role(t, models.RoleSuperAdmin).ID})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = e.svc.CreateUser(ctx, CreateUserInput{Email: "x@example.com", RoleID: uuid.New()})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.CreateUser(ctx, CreateUserInput{Email: "root@example.com", RoleID: e.role(t, models.RoleUser).ID})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetUser_OwnerOrReadUser(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	viewer, err := e.svc.CreateRole(ctx, RoleInput{Name: "Viewer", Permissions: []string{permissions.ReadUser}, Active: true})
	require.NoError(t, err)

	alice := e.activeUser(t, "alice@example.com", "Passw0rd1", models.RoleUser)
	bob := e.activeUser(t, "bob@example.com", "Passw0rd1", viewer.Value)

	aliceCtx := e.authContext(t, alice)
	bobCtx := e.authContext(t, bob)

	got, err := e.svc.GetUser(ctx, aliceCtx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	_, err = e.svc.GetUser(ctx, aliceCtx, bob.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = e.svc.GetUser(ctx, bobCtx, alice.ID)
	require.NoError(t, err)

	_, err = e.svc.GetUser(ctx, bobCtx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListUsers_ExcludesProtectedAndDeleted(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	a := e.activeUser(t, "a@example.com", "Passw0rd1", models.RoleUser)
	b := e.activeUser(t, "b@example.com", "Passw0rd1", models.RoleUser)
	require.NoError(t, e.svc.DeleteUser(ctx, b.ID))

	users, err := e.svc.ListUsers(ctx, models.UserFilter{IncludeProtected: true})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, a.ID, users[0].ID)

	users, err = e.svc.ListUsers(ctx, models.UserFilter{Search: "nobody"})
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	a := e.activeUser(t, "upd@example.com", "Passw0rd1", models.RoleUser)
	e.activeUser(t, "taken@example.com", "Passw0rd1", models.RoleUser)

	name := "Renamed"
	off := false
	got, err := e.svc.UpdateUser(ctx, a.ID, UserPatch{FirstName: &name, Active: &off})
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.FirstName)
	require.False(t, got.Active)

	taken := "Taken@example.com"
	_, err = e.svc.UpdateUser(ctx, a.ID, UserPatch{Email: &taken})
	require.ErrorIs(t, err, ErrEmailTaken)

	super := e.role(t, models.RoleSuperAdmin).ID
	_, err = e.svc.UpdateUser(ctx, a.ID, UserPatch{RoleID: &super})
	require.ErrorIs(t, err, ErrForbidden)

	root, err := e.st.UserByIdentifier(ctx, "root@example.com")
	require.NoError(t, err)
	_, err = e.svc.UpdateUser(ctx, root.ID, UserPatch{FirstName: &name})
	require.ErrorIs(t, err, ErrProtected)
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	u := e.activeUser(t, "del@example.com", "Passw0rd1", models.RoleUser)
	pair, _, err := e.svc.Login(ctx, "del@example.com", "Passw0rd1")
	require.NoError(t, err)

	require.NoError(t, e.svc.DeleteUser(ctx, u.ID))

	_, err = e.svc.VerifyToken(ctx, pair.RefreshToken, models.TokenRefresh, u.ID)
	require.ErrorIs(t, err, ErrTokenNotFound)

	_, _, err = e.svc.Login(ctx, "del@example.com", "Passw0rd1")
	require.ErrorIs(t, err, ErrNotFound)

	err = e.svc.DeleteUser(ctx, u.ID)
	require.ErrorIs(t, err, ErrNotFound)

	root, err := e.st.UserByIdentifier(ctx, "root@example.com")
	require.NoError(t, err)
	require.ErrorIs(t, e.svc.DeleteUser(ctx, root.ID), ErrProtected)
}

func TestLookupUsers(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	viewer, err := e.svc.CreateRole(ctx, RoleInput{Name: "Viewer", Permissions: []string{permissions.UserManagement}, Active: true})
	require.NoError(t, err)

	plain := e.activeUser(t, "plain@example.com", "Passw0rd1", models.RoleUser)
	admin := e.activeUser(t, "mgr@example.com", "Passw0rd1", viewer.Value)

	own, err := e.svc.LookupUsers(ctx, e.authContext(t, plain), nil)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, plain.ID, own[0].ID)

	all, err := e.svc.LookupUsers(ctx, e.authContext(t, admin), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
