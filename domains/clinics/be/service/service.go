package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/optoplus-health/optoplus/platform/go/tenant"
)

// Errors returned by the service layer.
var (
	ErrNotFound      = errors.New("clinic not found")
	ErrDuplicateName = errors.New("clinic database name already taken")
	ErrDeactivated   = errors.New("clinic deactivated")
)

// Clinic represents the domain model for a clinic registry entry.
type Clinic struct {
	ID                int64
	Name              string
	DBName            string
	Address           *string
	Phone             *string
	ManagerName       *string
	EstablishmentYear *string
	LogoURL           *string
	ManagerID         *int64
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateInput represents the request to provision a clinic. EnglishName is
// the optional database-key seed; when empty a key is derived from Name with
// a uniqueness suffix.
type CreateInput struct {
	Name              string
	EnglishName       string
	Address           *string
	Phone             *string
	ManagerName       *string
	EstablishmentYear *string
	LogoURL           *string
	ManagerID         *int64
}

// UpdateInput carries mutable metadata fields; nil leaves a field untouched.
type UpdateInput struct {
	Name              *string
	Address           *string
	Phone             *string
	ManagerName       *string
	EstablishmentYear *string
	LogoURL           *string
	ManagerID         *int64
}

// Repository abstracts the master registry persistence.
type Repository interface {
	Insert(ctx context.Context, c Clinic) (int64, error)
	FindByKey(ctx context.Context, dbName string) (Clinic, error)
	FindByID(ctx context.Context, id int64) (Clinic, error)
	List(ctx context.Context, active *bool) ([]Clinic, error)
	UpdateStatus(ctx context.Context, id int64, active bool) (bool, error)
	Update(ctx context.Context, id int64, input UpdateInput) (bool, error)
}

// DatabaseProvisioner creates the physical clinic database and applies the
// schema script to it. Both operations are idempotent per key.
type DatabaseProvisioner interface {
	CreateDatabase(ctx context.Context, key string) error
	ApplySchema(ctx context.Context, key string) error
}

// Service provides clinic registry and provisioning operations.
type Service struct {
	repo Repository
	prov DatabaseProvisioner
	now  func() time.Time
}

// New constructs a Service with required dependencies.
func New(repo Repository, prov DatabaseProvisioner) *Service {
	if repo == nil {
		panic("clinics repo is required")
	}
	if prov == nil {
		panic("database provisioner is required")
	}
	return &Service{repo: repo, prov: prov, now: time.Now}
}

// Provision turns a clinic name into a registered, schema-initialized
// tenant. The steps run as a saga, not a transaction: a failure reports the
// exact step and leaves earlier steps in place. A half-provisioned database
// with no registry row is the failure signature; retrying the same key
// converges because database creation and the schema script are idempotent.
func (s *Service) Provision(ctx context.Context, input CreateInput) (Clinic, error) {
	var key string
	if input.EnglishName != "" {
		normalized, err := tenant.NormalizeDatabaseKey(input.EnglishName)
		if err != nil {
			return Clinic{}, &ProvisionError{Step: StepDeriveKey, DBName: input.EnglishName, Err: err}
		}
		key = normalized

		// Pre-check is a courtesy, not a guarantee: concurrent calls with
		// the same seed can both pass. The registry's unique constraint on
		// db_name converts the collision at insert time into the same error.
		_, err = s.repo.FindByKey(ctx, key)
		switch {
		case err == nil:
			return Clinic{}, &ProvisionError{Step: StepUniqueness, DBName: key, Err: ErrDuplicateName}
		case !errors.Is(err, ErrNotFound):
			return Clinic{}, &ProvisionError{Step: StepUniqueness, DBName: key, Err: err}
		}
	} else {
		key = tenant.DeriveDatabaseKey(input.Name, s.now())
	}

	if err := s.prov.CreateDatabase(ctx, key); err != nil {
		return Clinic{}, &ProvisionError{Step: StepCreateDatabase, DBName: key, Err: err}
	}

	if err := s.prov.ApplySchema(ctx, key); err != nil {
		return Clinic{}, &ProvisionError{Step: StepApplySchema, DBName: key, Err: err}
	}

	clinic := Clinic{
		Name:              input.Name,
		DBName:            key,
		Address:           input.Address,
		Phone:             input.Phone,
		ManagerName:       input.ManagerName,
		EstablishmentYear: input.EstablishmentYear,
		LogoURL:           input.LogoURL,
		ManagerID:         input.ManagerID,
		Active:            true,
	}

	id, err := s.repo.Insert(ctx, clinic)
	if err != nil {
		return Clinic{}, &ProvisionError{Step: StepRegistryInsert, DBName: key, Err: err}
	}
	clinic.ID = id

	return clinic, nil
}

// List returns clinics newest-first with an optional active filter.
func (s *Service) List(ctx context.Context, active *bool) ([]Clinic, error) {
	return s.repo.List(ctx, active)
}

// Get returns a clinic by registry id.
func (s *Service) Get(ctx context.Context, id int64) (Clinic, error) {
	return s.repo.FindByID(ctx, id)
}

// Update modifies mutable metadata of a clinic.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Clinic, error) {
	ok, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return Clinic{}, err
	}
	if !ok {
		return Clinic{}, ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// Deactivate soft-deletes a clinic. The physical database and its pool stay;
// the key is never reused.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	ok, err := s.repo.UpdateStatus(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// SpaceByKey resolves a clinic Space for request routing. Deactivated
// clinics do not resolve.
func (s *Service) SpaceByKey(ctx context.Context, databaseKey string) (tenant.Space, error) {
	c, err := s.repo.FindByKey(ctx, databaseKey)
	if err != nil {
		return tenant.Space{}, err
	}
	if !c.Active {
		return tenant.Space{}, fmt.Errorf("%w: %s", ErrDeactivated, databaseKey)
	}
	return tenant.Space{ClinicID: c.ID, DatabaseKey: c.DBName, DisplayName: c.Name}, nil
}
