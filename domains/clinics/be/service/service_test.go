package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/optoplus-health/optoplus/domains/clinics/be/repo"
	"github.com/optoplus-health/optoplus/domains/clinics/be/service"
)

type fakeProvisioner struct {
	createErr error
	schemaErr error

	created []string
	applied []string
}

func (f *fakeProvisioner) CreateDatabase(_ context.Context, key string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, key)
	return nil
}

func (f *fakeProvisioner) ApplySchema(_ context.Context, key string) error {
	if f.schemaErr != nil {
		return f.schemaErr
	}
	f.applied = append(f.applied, key)
	return nil
}

func newService(t *testing.T) (*service.Service, *repo.MemoryRepository, *fakeProvisioner) {
	t.Helper()
	r := repo.NewMemoryRepository()
	p := &fakeProvisioner{}
	return service.New(r, p), r, p
}

func TestProvisionWithSeed(t *testing.T) {
	svc, _, prov := newService(t)

	clinic, err := svc.Provision(context.Background(), service.CreateInput{
		Name:        "پارس اپتیک",
		EnglishName: "Pars Optic",
	})
	require.NoError(t, err)
	require.Equal(t, "optometry_pars_optic", clinic.DBName)
	require.True(t, clinic.Active)
	require.NotZero(t, clinic.ID)

	require.Equal(t, []string{"optometry_pars_optic"}, prov.created)
	require.Equal(t, []string{"optometry_pars_optic"}, prov.applied)
}

func TestProvisionDerivesKeyWithoutSeed(t *testing.T) {
	svc, _, _ := newService(t)

	clinic, err := svc.Provision(context.Background(), service.CreateInput{
		Name: "City Eye Clinic",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(clinic.DBName, "optometry_city_eye_clinic_"))
}

func TestProvisionDuplicateSeed(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Provision(context.Background(), service.CreateInput{Name: "A", EnglishName: "Pars Optic"})
	require.NoError(t, err)

	_, err = svc.Provision(context.Background(), service.CreateInput{Name: "B", EnglishName: "pars optic"})
	require.ErrorIs(t, err, service.ErrDuplicateName)

	var provErr *service.ProvisionError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, service.StepUniqueness, provErr.Step)
	require.Equal(t, "optometry_pars_optic", provErr.DBName)
}

func TestProvisionStepFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		mutate   func(p *fakeProvisioner)
		input    service.CreateInput
		wantStep service.ProvisionStep
	}{
		{
			"invalid seed",
			func(p *fakeProvisioner) {},
			service.CreateInput{Name: "X", EnglishName: "   "},
			service.StepDeriveKey,
		},
		{
			"database creation fails",
			func(p *fakeProvisioner) { p.createErr = boom },
			service.CreateInput{Name: "X", EnglishName: "visioncare"},
			service.StepCreateDatabase,
		},
		{
			"schema application fails",
			func(p *fakeProvisioner) { p.schemaErr = boom },
			service.CreateInput{Name: "X", EnglishName: "visioncare"},
			service.StepApplySchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, prov := newService(t)
			tt.mutate(prov)

			_, err := svc.Provision(context.Background(), tt.input)
			var provErr *service.ProvisionError
			require.ErrorAs(t, err, &provErr)
			require.Equal(t, tt.wantStep, provErr.Step)
		})
	}
}

// insertFailRepo passes the uniqueness pre-check but fails at insert time,
// simulating a concurrent registration winning the race.
type insertFailRepo struct {
	*repo.MemoryRepository
	insertErr error
}

func (r *insertFailRepo) Insert(_ context.Context, _ service.Clinic) (int64, error) {
	return 0, r.insertErr
}

func TestProvisionRegistryInsertIsLastStep(t *testing.T) {
	raceLoser := &insertFailRepo{
		MemoryRepository: repo.NewMemoryRepository(),
		insertErr:        service.ErrDuplicateName,
	}
	prov := &fakeProvisioner{}
	svc := service.New(raceLoser, prov)

	_, err := svc.Provision(context.Background(), service.CreateInput{Name: "X", EnglishName: "visioncare"})
	var provErr *service.ProvisionError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, service.StepRegistryInsert, provErr.Step)
	require.ErrorIs(t, err, service.ErrDuplicateName)

	// Insert runs last: the physical database and schema already exist
	// when the registry row collides.
	require.Equal(t, []string{"optometry_visioncare"}, prov.created)
	require.Equal(t, []string{"optometry_visioncare"}, prov.applied)
}

func TestProvisionDuplicatePreCheckSkipsDatabaseWork(t *testing.T) {
	svc, r, prov := newService(t)

	_, err := r.Insert(context.Background(), service.Clinic{Name: "Taken", DBName: "optometry_visioncare", Active: true})
	require.NoError(t, err)

	_, err = svc.Provision(context.Background(), service.CreateInput{Name: "X", EnglishName: "visioncare"})
	var provErr *service.ProvisionError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, service.StepUniqueness, provErr.Step)

	require.Empty(t, prov.created)
	require.Empty(t, prov.applied)
}

func TestLifecycle(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	clinic, err := svc.Provision(ctx, service.CreateInput{Name: "Pars Optic", EnglishName: "pars optic"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, clinic.ID)
	require.NoError(t, err)
	require.Equal(t, clinic.DBName, got.DBName)

	newName := "Pars Optic II"
	updated, err := svc.Update(ctx, clinic.ID, service.UpdateInput{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, newName, updated.Name)

	require.NoError(t, svc.Deactivate(ctx, clinic.ID))

	active := true
	list, err := svc.List(ctx, &active)
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.ErrorIs(t, svc.Deactivate(ctx, 999), service.ErrNotFound)
	_, err = svc.Get(ctx, 999)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestSpaceByKey(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	clinic, err := svc.Provision(ctx, service.CreateInput{Name: "Pars Optic", EnglishName: "pars optic"})
	require.NoError(t, err)

	space, err := svc.SpaceByKey(ctx, clinic.DBName)
	require.NoError(t, err)
	require.Equal(t, clinic.ID, space.ClinicID)
	require.Equal(t, clinic.DBName, space.DatabaseKey)
	require.Equal(t, clinic.Name, space.DisplayName)

	require.NoError(t, svc.Deactivate(ctx, clinic.ID))
	_, err = svc.SpaceByKey(ctx, clinic.DBName)
	require.ErrorIs(t, err, service.ErrDeactivated)

	_, err = svc.SpaceByKey(ctx, "optometry_ghost")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Provision(ctx, service.CreateInput{Name: "First", EnglishName: "first"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := svc.Provision(ctx, service.CreateInput{Name: "Second", EnglishName: "second"})
	require.NoError(t, err)

	list, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}
