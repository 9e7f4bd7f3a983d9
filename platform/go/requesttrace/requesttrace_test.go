package requesttrace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	platformauth "github.com/optoplus-health/optoplus/platform/go/auth"
)

func TestFromCredentials(t *testing.T) {
	t.Run("clinic staff", func(t *testing.T) {
		audit, err := FromCredentials(&platformauth.UserCredentials{
			UserID:    12,
			Username:  "sara",
			Role:      platformauth.RoleSeller,
			ClinicKey: "optometry_pars",
		}, "req-1")
		require.NoError(t, err)
		require.Equal(t, ActorKindUser, audit.ActorKind)
		require.NotNil(t, audit.UserID)
		require.Equal(t, "12", *audit.UserID)
		require.Equal(t, "optometry_pars", audit.ClinicKey)
		require.Equal(t, "req-1", audit.RequestID)
	})

	t.Run("platform admin", func(t *testing.T) {
		audit, err := FromCredentials(&platformauth.UserCredentials{
			UserID:   1,
			Username: "root",
			Role:     platformauth.RoleAdmin,
		}, "req-2")
		require.NoError(t, err)
		require.Equal(t, ActorKindAdmin, audit.ActorKind)
		require.Empty(t, audit.ClinicKey)
	})

	t.Run("nil credentials rejected", func(t *testing.T) {
		_, err := FromCredentials(nil, "req-3")
		require.Error(t, err)
	})

	t.Run("zero user id rejected", func(t *testing.T) {
		_, err := FromCredentials(&platformauth.UserCredentials{Role: platformauth.RoleSeller}, "req-4")
		require.Error(t, err)
	})
}

func TestContextRoundTrip(t *testing.T) {
	audit := Anonymous("req-9")
	ctx := IntoContext(context.Background(), audit)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, audit, got)

	_, ok = FromContext(context.Background())
	require.False(t, ok)

	fallback := FromContextOrAnonymous(context.Background())
	require.Equal(t, ActorKindAnonymous, fallback.ActorKind)
}
