package tenant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	platformauth "github.com/optoplus-health/optoplus/platform/go/auth"
)

type fakeLookup struct {
	spaces map[string]Space
}

func (f fakeLookup) SpaceByKey(_ context.Context, key string) (Space, error) {
	space, ok := f.spaces[key]
	if !ok {
		return Space{}, errors.New("clinic not found")
	}
	return space, nil
}

func newLookup(spaces ...Space) fakeLookup {
	l := fakeLookup{spaces: make(map[string]Space)}
	for _, s := range spaces {
		l.spaces[s.DatabaseKey] = s
	}
	return l
}

func ctxWithUser(role, clinicKey string) context.Context {
	return platformauth.WithUser(context.Background(), &platformauth.UserCredentials{
		UserID:    7,
		Username:  "tester",
		Role:      role,
		ClinicKey: clinicKey,
	})
}

func TestSingleTenantResolve(t *testing.T) {
	fixed := Space{ClinicID: 1, DatabaseKey: "optometry_fixed"}
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	space, err := SingleTenant{Space: fixed}.Resolve(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, fixed, space)
}

func TestClinicBoundResolve(t *testing.T) {
	bound := ClinicBound{Lookup: newLookup(Space{ClinicID: 3, DatabaseKey: "optometry_pars"})}
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	t.Run("resolves from session claim", func(t *testing.T) {
		space, err := bound.Resolve(ctxWithUser(platformauth.RoleSeller, "optometry_pars"), r)
		require.NoError(t, err)
		require.Equal(t, int64(3), space.ClinicID)
	})

	t.Run("missing clinic claim rejected", func(t *testing.T) {
		_, err := bound.Resolve(ctxWithUser(platformauth.RoleSeller, ""), r)
		require.ErrorIs(t, err, ErrClinicRequired)
	})

	t.Run("unauthenticated rejected", func(t *testing.T) {
		_, err := bound.Resolve(context.Background(), r)
		require.ErrorIs(t, err, ErrClinicRequired)
	})

	t.Run("unknown clinic propagates lookup error", func(t *testing.T) {
		_, err := bound.Resolve(ctxWithUser(platformauth.RoleSeller, "optometry_ghost"), r)
		require.Error(t, err)
	})
}

func TestSuperAdminOverrideResolve(t *testing.T) {
	lookup := newLookup(
		Space{ClinicID: 3, DatabaseKey: "optometry_pars"},
		Space{ClinicID: 9, DatabaseKey: "optometry_lakeside"},
	)
	resolver := SuperAdminOverride{Lookup: lookup, Fallback: ClinicBound{Lookup: lookup}}

	t.Run("no header falls back to session binding", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		space, err := resolver.Resolve(ctxWithUser(platformauth.RoleManager, "optometry_pars"), r)
		require.NoError(t, err)
		require.Equal(t, int64(3), space.ClinicID)
	})

	t.Run("admin override targets any clinic", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(OverrideHeader, "optometry_lakeside")
		space, err := resolver.Resolve(ctxWithUser(platformauth.RoleAdmin, ""), r)
		require.NoError(t, err)
		require.Equal(t, int64(9), space.ClinicID)
	})

	t.Run("override header is normalized before lookup", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(OverrideHeader, "Lakeside")
		space, err := resolver.Resolve(ctxWithUser(platformauth.RoleAdmin, ""), r)
		require.NoError(t, err)
		require.Equal(t, int64(9), space.ClinicID)
	})

	t.Run("non-admin override denied", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(OverrideHeader, "optometry_lakeside")
		_, err := resolver.Resolve(ctxWithUser(platformauth.RoleSeller, "optometry_pars"), r)
		require.ErrorIs(t, err, ErrOverrideDenied)
	})

	t.Run("anonymous override denied", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(OverrideHeader, "optometry_lakeside")
		_, err := resolver.Resolve(context.Background(), r)
		require.ErrorIs(t, err, ErrOverrideDenied)
	})
}

func TestSpaceContextRoundTrip(t *testing.T) {
	space := Space{ClinicID: 4, DatabaseKey: "optometry_pars", DisplayName: "Pars Optic"}
	ctx := WithSpace(context.Background(), space)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, space, got)

	_, ok = FromContext(context.Background())
	require.False(t, ok)
}
