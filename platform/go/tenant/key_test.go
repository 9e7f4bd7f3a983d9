package tenant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDatabaseKey(t *testing.T) {
	tests := []struct {
		name    string
		seed    string
		want    string
		wantErr bool
	}{
		{
			"plain word",
			"visioncare",
			"optometry_visioncare",
			false,
		},
		{
			"mixed case with spaces and punctuation",
			"Pars Optic-2",
			"optometry_pars_optic_2",
			false,
		},
		{
			"leading digit gets marker",
			"2020 Vision",
			"optometry_db_2020_vision",
			false,
		},
		{
			"already namespaced stays put",
			"optometry_downtown",
			"optometry_downtown",
			false,
		},
		{
			"runs of punctuation collapse",
			"eye---care!!clinic",
			"optometry_eye_care_clinic",
			false,
		},
		{
			"surrounding whitespace trimmed",
			"  Lakeside  ",
			"optometry_lakeside",
			false,
		},
		{
			"empty seed rejected",
			"",
			"",
			true,
		},
		{
			"whitespace only rejected",
			"   ",
			"",
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDatabaseKey(tt.seed)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.True(t, ValidDatabaseKey(got), "normalized key must be canonical")
		})
	}
}

func TestNormalizeDatabaseKeyDeterministic(t *testing.T) {
	first, err := NormalizeDatabaseKey("City Eye Clinic")
	require.NoError(t, err)

	second, err := NormalizeDatabaseKey("City Eye Clinic")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDeriveDatabaseKey(t *testing.T) {
	now := time.UnixMilli(1700000123456)

	key := DeriveDatabaseKey("City Eye Clinic", now)
	require.Equal(t, "optometry_city_eye_clinic_123456", key)
	require.True(t, ValidDatabaseKey(key))

	// Unicode display names reduce to the suffix-only fallback base.
	key = DeriveDatabaseKey("مطب چشم", now)
	require.Equal(t, "optometry_clinic_123456", key)
	require.True(t, ValidDatabaseKey(key))
}

func TestValidDatabaseKey(t *testing.T) {
	require.True(t, ValidDatabaseKey("optometry_pars_optic"))
	require.False(t, ValidDatabaseKey("1optometry"))
	require.False(t, ValidDatabaseKey("optometry-pars"))
	require.False(t, ValidDatabaseKey("Optometry_Pars"))
	require.False(t, ValidDatabaseKey(""))
	require.False(t, ValidDatabaseKey(`optometry"; DROP DATABASE x`))
}
