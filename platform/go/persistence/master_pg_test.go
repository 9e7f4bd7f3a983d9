package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMasterStoreEnsureDatabaseIdempotent(t *testing.T) {
	t.Parallel()
	ctx, registry := startServer(t)

	store := NewMasterStore(registry, zaptest.NewLogger(t))
	require.NoError(t, store.EnsureDatabase(ctx))
	// Re-running on an initialized server is a no-op.
	require.NoError(t, store.EnsureDatabase(ctx))

	pool := registry.MasterPool()
	for _, table := range []string{"clinics", "admin_users"} {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
			table).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists, "table %s missing", table)
	}
}

func TestClinicStoreLifecycle(t *testing.T) {
	t.Parallel()
	ctx, registry := startServer(t)

	require.NoError(t, NewMasterStore(registry, zaptest.NewLogger(t)).EnsureDatabase(ctx))

	store, err := NewClinicStore(registry)
	require.NoError(t, err)

	phone := "021-1234"
	id, err := store.Insert(ctx, ClinicRecord{
		Name:     "Pars Optic",
		DBName:   "optometry_pars_optic",
		Phone:    &phone,
		IsActive: true,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	byKey, err := store.FindByKey(ctx, "optometry_pars_optic")
	require.NoError(t, err)
	require.Equal(t, id, byKey.ID)
	require.Equal(t, "Pars Optic", byKey.Name)
	require.True(t, byKey.IsActive)

	byID, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, byKey.DBName, byID.DBName)

	// Duplicate db_name collides on the unique constraint.
	_, err = store.Insert(ctx, ClinicRecord{Name: "Other", DBName: "optometry_pars_optic", IsActive: true})
	var insErr *RegistryInsertError
	require.ErrorAs(t, err, &insErr)
	require.True(t, insErr.Duplicate)
	require.ErrorIs(t, err, ErrDuplicateTenantName)

	newName := "Pars Optic II"
	ok, err := store.Update(ctx, id, ClinicUpdate{Name: &newName})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.UpdateStatus(ctx, id, false)
	require.NoError(t, err)
	require.True(t, ok)

	activeOnly := true
	list, err := store.List(ctx, &activeOnly)
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = store.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, newName, list[0].Name)
	require.False(t, list[0].IsActive)

	_, err = store.FindByID(ctx, id+999)
	require.ErrorIs(t, err, ErrClinicNotFound)
	ok, err = store.UpdateStatus(ctx, id+999, true)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAdminStoreLifecycle(t *testing.T) {
	t.Parallel()
	ctx, registry := startServer(t)

	require.NoError(t, NewMasterStore(registry, zaptest.NewLogger(t)).EnsureDatabase(ctx))

	store, err := NewAdminStore(registry)
	require.NoError(t, err)

	id, err := store.Insert(ctx, AdminRecord{
		Username:     "root",
		Email:        "root@example.test",
		PasswordHash: "$2a$10$fakehashfortest",
		FirstName:    "Root",
		LastName:     "Admin",
		IsActive:     true,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	byName, err := store.FindByUsername(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, id, byName.ID)
	require.Equal(t, "root@example.test", byName.Email)

	byID, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	require.True(t, byID.IsActive)

	ok, err := store.SetActive(ctx, id, false)
	require.NoError(t, err)
	require.True(t, ok)

	byID, err = store.FindByID(ctx, id)
	require.NoError(t, err)
	require.False(t, byID.IsActive)

	_, err = store.FindByUsername(ctx, "ghost")
	require.ErrorIs(t, err, ErrAdminNotFound)
}
