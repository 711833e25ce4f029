package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/permissions"
	"github.com/stretchr/testify/require"
)

func superAdmins(t *testing.T, e *env) []models.User {
	t.Helper()

	users, err := e.st.ListUsers(context.Background(), models.UserFilter{
		RoleID:           e.role(t, models.RoleSuperAdmin).ID,
		IncludeProtected: true,
	})
	require.NoError(t, err)

	return users
}

func TestBootstrap_SeedsRolesAndSuperAdmin(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	super := e.role(t, models.RoleSuperAdmin)
	require.True(t, super.Protected)
	require.True(t, super.Active)
	require.Equal(t, permissions.Modules(), super.Permissions)

	user := e.role(t, models.RoleUser)
	require.True(t, user.Protected)
	require.Empty(t, user.Permissions)

	admins := superAdmins(t, e)
	require.Len(t, admins, 1)
	require.Equal(t, "root@example.com", admins[0].Email)
	require.True(t, admins[0].Protected)
	require.True(t, admins[0].Active)
	require.Equal(t, "+254700000001", admins[0].Phone)

	// Письмо со ссылкой активации и временным паролем.
	require.NotEmpty(t, e.mail.lastToken(t, "root@example.com"))
	require.NotEmpty(t, e.mail.lastPassword(t, "root@example.com"))
}

func TestBootstrap_Idempotent(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	before := e.mail.count()
	first := superAdmins(t, e)[0]

	require.NoError(t, e.svc.Bootstrap(ctx))
	require.NoError(t, e.svc.Bootstrap(ctx))

	admins := superAdmins(t, e)
	require.Len(t, admins, 1)
	require.Equal(t, first.ID, admins[0].ID)
	require.Equal(t, before, e.mail.count())
}

func TestBootstrap_ReconcilesDuplicatesAndPermissions(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	super := e.role(t, models.RoleSuperAdmin)

	intruder := &models.User{
		ID:        uuid.New(),
		Email:     "intruder@example.com",
		RoleID:    super.ID,
		Active:    true,
		Protected: true,
	}
	require.NoError(t, e.st.SaveUser(ctx, intruder))

	super.Permissions = []string{permissions.ReadRole}
	require.NoError(t, e.st.UpdateRole(ctx, super))

	require.NoError(t, e.svc.Bootstrap(ctx))

	admins := superAdmins(t, e)
	require.Len(t, admins, 1)
	require.Equal(t, "root@example.com", admins[0].Email)

	_, err := e.st.UserByID(ctx, intruder.ID)
	require.Error(t, err)

	require.Equal(t, permissions.Modules(), e.role(t, models.RoleSuperAdmin).Permissions)
}

func TestBootstrap_PromotesExistingUser(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	// Новая конфигурация указывает на уже зарегистрированного пользователя.
	u := e.activeUser(t, "boss@example.com", "Passw0rd1", models.RoleUser)
	e.svc.cfg.Bootstrap.SuperAdminEmail = "Boss@Example.com"

	require.NoError(t, e.svc.Bootstrap(ctx))

	admins := superAdmins(t, e)
	require.Len(t, admins, 1)
	require.Equal(t, u.ID, admins[0].ID)
	require.True(t, admins[0].Protected)

	_, err := e.st.UserByIdentifier(ctx, "root@example.com")
	require.Error(t, err)
}
