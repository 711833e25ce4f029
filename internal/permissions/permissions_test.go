package permissions

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAll_ContainsModulesAndChildren(t *testing.T) {
	t.Parallel()

	all := NewSet(All()...)
	for _, m := range Modules() {
		require.True(t, all.Has(m), m)
		for _, c := range Children(m) {
			require.True(t, all.Has(c), c)
		}
	}

	require.False(t, all.Has(AnyWithAuth))
	require.False(t, all.Has(Owner))
}

func TestExpand(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{CreateUser}, Expand(CreateUser).Slice())
	require.Equal(t,
		[]string{UserManagement, CreateUser, DeleteUser, ReadUser, UpdateUser},
		Expand(UserManagement).Slice(),
	)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate([]string{UserManagement, ReadRole}))
	require.NoError(t, Validate(nil))

	tcs := []string{
		"USER_MANAGEMENT.FLY",
		"NOPE",
		"NOPE.CREATE_USER",
		AnyWithAuth,
		Owner,
		"",
	}
	for _, p := range tcs {
		err := Validate([]string{ReadUser, p})
		require.ErrorIs(t, err, ErrUnknownPermission, p)
	}
}

func TestNormalize_CollapsesFullModule(t *testing.T) {
	t.Parallel()

	got := Normalize([]string{CreateUser, ReadUser, UpdateUser, DeleteUser})
	require.Equal(t, []string{UserManagement}, got)
}

func TestNormalize_KeepsPartialModule(t *testing.T) {
	t.Parallel()

	got := Normalize([]string{ReadUser, CreateUser, ReadUser})
	require.Equal(t, []string{CreateUser, ReadUser}, got)
}

func TestNormalize_DropsChildrenOfPresentModule(t *testing.T) {
	t.Parallel()

	got := Normalize([]string{RoleManagement, ReadRole, ReadUser})
	require.Equal(t, []string{RoleManagement, ReadUser}, got)
}

func TestNormalize_Empty(t *testing.T) {
	t.Parallel()

	require.Empty(t, Normalize(nil))
}

// randomSubset выбирает случайное подмножество каталога.
func randomSubset(r *rand.Rand) []string {
	all := All()
	var out []string
	for _, p := range all {
		if r.Intn(2) == 0 {
			out = append(out, p)
		}
	}

	return out
}

func TestNormalize_Properties(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		s := randomSubset(r)

		n := Normalize(s)
		require.Equal(t, n, Normalize(n), "idempotent for %v", s)

		expanded := ExpandAll(n)
		for _, p := range s {
			require.True(t, expanded.Has(p), "coverage lost: %q from %v", p, s)
		}

		require.Equal(t, granular(ExpandAll(s)), granular(expanded), "same effect for %v", s)
	}
}

// granular оставляет только гранулярные права.
func granular(s Set) []string {
	var out []string
	for _, p := range s.Slice() {
		if !IsModule(p) {
			out = append(out, p)
		}
	}

	return out
}
