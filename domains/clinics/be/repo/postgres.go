package repo

import (
	"context"
	"errors"

	"github.com/optoplus-health/optoplus/domains/clinics/be/service"
	"github.com/optoplus-health/optoplus/platform/go/persistence"
)

// PostgresRepository implements the clinic repository over the master
// registry store.
type PostgresRepository struct {
	store *persistence.ClinicStore
}

// NewPostgresRepository constructs a repository backed by ClinicStore.
func NewPostgresRepository(store *persistence.ClinicStore) *PostgresRepository {
	if store == nil {
		panic("clinic store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Insert(ctx context.Context, c service.Clinic) (int64, error) {
	id, err := r.store.Insert(ctx, toRecord(c))
	if err != nil {
		var insertErr *persistence.RegistryInsertError
		if errors.As(err, &insertErr) && insertErr.Duplicate {
			return 0, service.ErrDuplicateName
		}
		return 0, err
	}
	return id, nil
}

func (r *PostgresRepository) FindByKey(ctx context.Context, dbName string) (service.Clinic, error) {
	rec, err := r.store.FindByKey(ctx, dbName)
	if err != nil {
		return service.Clinic{}, mapNotFound(err)
	}
	return toClinic(rec), nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (service.Clinic, error) {
	rec, err := r.store.FindByID(ctx, id)
	if err != nil {
		return service.Clinic{}, mapNotFound(err)
	}
	return toClinic(rec), nil
}

func (r *PostgresRepository) List(ctx context.Context, active *bool) ([]service.Clinic, error) {
	records, err := r.store.List(ctx, active)
	if err != nil {
		return nil, err
	}

	clinics := make([]service.Clinic, 0, len(records))
	for _, rec := range records {
		clinics = append(clinics, toClinic(rec))
	}
	return clinics, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, active bool) (bool, error) {
	return r.store.UpdateStatus(ctx, id, active)
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, input service.UpdateInput) (bool, error) {
	return r.store.Update(ctx, id, persistence.ClinicUpdate{
		Name:              input.Name,
		Address:           input.Address,
		Phone:             input.Phone,
		ManagerName:       input.ManagerName,
		EstablishmentYear: input.EstablishmentYear,
		LogoURL:           input.LogoURL,
		ManagerID:         input.ManagerID,
	})
}

func mapNotFound(err error) error {
	if errors.Is(err, persistence.ErrClinicNotFound) {
		return service.ErrNotFound
	}
	return err
}

func toRecord(c service.Clinic) persistence.ClinicRecord {
	return persistence.ClinicRecord{
		ID:                c.ID,
		Name:              c.Name,
		DBName:            c.DBName,
		Address:           c.Address,
		Phone:             c.Phone,
		ManagerName:       c.ManagerName,
		EstablishmentYear: c.EstablishmentYear,
		LogoURL:           c.LogoURL,
		ManagerID:         c.ManagerID,
		IsActive:          c.Active,
	}
}

func toClinic(rec persistence.ClinicRecord) service.Clinic {
	return service.Clinic{
		ID:                rec.ID,
		Name:              rec.Name,
		DBName:            rec.DBName,
		Address:           rec.Address,
		Phone:             rec.Phone,
		ManagerName:       rec.ManagerName,
		EstablishmentYear: rec.EstablishmentYear,
		LogoURL:           rec.LogoURL,
		ManagerID:         rec.ManagerID,
		Active:            rec.IsActive,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}
