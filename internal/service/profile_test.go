package service

import (
	"context"
	"testing"

	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	u := e.activeUser(t, "me@example.com", "Passw0rd1", models.RoleUser)
	other := e.activeUser(t, "other@example.com", "Passw0rd1", models.RoleUser)
	other.Phone = "+254722222222"
	require.NoError(t, e.st.UpdateUser(ctx, other))

	first := "Neo"
	phone := "0733 333 333"
	got, err := e.svc.UpdateProfile(ctx, u.ID, ProfilePatch{FirstName: &first, Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, "Neo", got.FirstName)
	require.Equal(t, "+254733333333", got.Phone)
	require.False(t, got.IsPhoneVerified)

	taken := "+254722222222"
	_, err = e.svc.UpdateProfile(ctx, u.ID, ProfilePatch{Phone: &taken})
	require.ErrorIs(t, err, ErrPhoneTaken)

	bad := "123"
	_, err = e.svc.UpdateProfile(ctx, u.ID, ProfilePatch{Phone: &bad})
	require.ErrorIs(t, err, ErrInvalidPhone)

	empty := ""
	got, err = e.svc.UpdateProfile(ctx, u.ID, ProfilePatch{Phone: &empty})
	require.NoError(t, err)
	require.Empty(t, got.Phone)
}

func TestDeleteProfile_TwoStep(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	u := e.activeUser(t, "bye@example.com", "Passw0rd1", models.RoleUser)
	pair, _, err := e.svc.Login(ctx, "bye@example.com", "Passw0rd1")
	require.NoError(t, err)

	require.NoError(t, e.svc.RequestDeleteProfile(ctx, u.ID))

	// Запрос сам по себе ничего не удаляет.
	_, err = e.svc.Profile(ctx, u.ID)
	require.NoError(t, err)

	token := e.mail.lastToken(t, "bye@example.com")
	require.NoError(t, e.svc.VerifyDeleteProfile(ctx, token))

	_, err = e.svc.Profile(ctx, u.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	err = e.svc.VerifyDeleteProfile(ctx, token)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDeleteProfile_RejectsForeignTokenType(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, registerInput("kind@example.com"))
	require.NoError(t, err)

	// Токен регистрации не подходит для удаления профиля.
	err = e.svc.VerifyDeleteProfile(ctx, e.mail.lastToken(t, "kind@example.com"))
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, ErrTokenExpiredOrInvalid)
}

func TestRequestDeleteProfile_Protected(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	root, err := e.st.UserByIdentifier(ctx, "root@example.com")
	require.NoError(t, err)

	require.ErrorIs(t, e.svc.RequestDeleteProfile(ctx, root.ID), ErrProtected)
}
