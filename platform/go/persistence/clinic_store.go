package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// ClinicsTable is the registry table in the master database.
const ClinicsTable = "clinics"

// ClinicRecord represents one row of the clinic registry.
type ClinicRecord struct {
	ID                int64
	Name              string
	DBName            string
	Address           *string
	Phone             *string
	ManagerName       *string
	EstablishmentYear *string
	LogoURL           *string
	ManagerID         *int64
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ClinicUpdate carries a partial metadata update; nil fields are left untouched.
type ClinicUpdate struct {
	Name              *string
	Address           *string
	Phone             *string
	ManagerName       *string
	EstablishmentYear *string
	LogoURL           *string
	ManagerID         *int64
}

const clinicColumns = `id, name, db_name, address, phone, manager_name,
    establishment_year, logo_url, manager_id, is_active, created_at, updated_at`

// ClinicStore provides access to the clinics registry in the master database.
type ClinicStore struct {
	registry *PoolRegistry
}

// NewClinicStore creates a store; assumes EnsureDatabase already ran.
func NewClinicStore(registry *PoolRegistry) (*ClinicStore, error) {
	if registry == nil {
		return nil, errors.New("pool registry is required")
	}
	return &ClinicStore{registry: registry}, nil
}

// Insert adds a clinic row and returns the generated id. The unique
// constraint on db_name is the backstop for provisioning races; collisions
// surface as a duplicate-flagged RegistryInsertError.
func (s *ClinicStore) Insert(ctx context.Context, rec ClinicRecord) (int64, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (
            name, db_name, address, phone, manager_name,
            establishment_year, logo_url, manager_id
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id
    `, ClinicsTable)

	var id int64
	err := s.registry.MasterPool().QueryRow(ctx, query,
		rec.Name, rec.DBName, rec.Address, rec.Phone, rec.ManagerName,
		rec.EstablishmentYear, rec.LogoURL, rec.ManagerID,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &RegistryInsertError{Duplicate: true, Err: err}
		}
		return 0, &RegistryInsertError{Err: wrapDataAccess(err)}
	}

	return id, nil
}

// FindByKey returns the clinic registered under the given database key.
func (s *ClinicStore) FindByKey(ctx context.Context, dbName string) (ClinicRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE db_name = $1`, clinicColumns, ClinicsTable)
	return scanClinicRecord(s.registry.MasterPool().QueryRow(ctx, query, dbName))
}

// FindByID returns the clinic by registry id.
func (s *ClinicStore) FindByID(ctx context.Context, id int64) (ClinicRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, clinicColumns, ClinicsTable)
	return scanClinicRecord(s.registry.MasterPool().QueryRow(ctx, query, id))
}

// List returns clinics newest-first, optionally filtered by active status.
func (s *ClinicStore) List(ctx context.Context, active *bool) ([]ClinicRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, clinicColumns, ClinicsTable)
	args := []any{}
	if active != nil {
		query += " WHERE is_active = $1"
		args = append(args, *active)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.registry.MasterPool().Query(ctx, query, args...)
	if err != nil {
		return nil, wrapDataAccess(err)
	}
	defer rows.Close()

	var records []ClinicRecord
	for rows.Next() {
		rec, err := scanClinicRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDataAccess(err)
	}

	return records, nil
}

// UpdateStatus flips the soft-delete flag. The physical database and its
// pool are never dropped; deactivation only touches this row.
func (s *ClinicStore) UpdateStatus(ctx context.Context, id int64, active bool) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET is_active = $1, updated_at = now() WHERE id = $2`, ClinicsTable)
	tag, err := s.registry.MasterPool().Exec(ctx, query, active, id)
	if err != nil {
		return false, wrapDataAccess(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Update modifies only the fields present in the partial update.
func (s *ClinicStore) Update(ctx context.Context, id int64, upd ClinicUpdate) (bool, error) {
	sets := []string{}
	args := []any{}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Name != nil {
		appendSet("name", *upd.Name)
	}
	if upd.Address != nil {
		appendSet("address", *upd.Address)
	}
	if upd.Phone != nil {
		appendSet("phone", *upd.Phone)
	}
	if upd.ManagerName != nil {
		appendSet("manager_name", *upd.ManagerName)
	}
	if upd.EstablishmentYear != nil {
		appendSet("establishment_year", *upd.EstablishmentYear)
	}
	if upd.LogoURL != nil {
		appendSet("logo_url", *upd.LogoURL)
	}
	if upd.ManagerID != nil {
		appendSet("manager_id", *upd.ManagerID)
	}

	if len(sets) == 0 {
		return false, nil
	}

	appendSet("updated_at", time.Now().UTC())
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		ClinicsTable, strings.Join(sets, ", "), len(args))

	tag, err := s.registry.MasterPool().Exec(ctx, query, args...)
	if err != nil {
		return false, wrapDataAccess(err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanClinicRecord(row pgx.Row) (ClinicRecord, error) {
	var rec ClinicRecord
	err := row.Scan(&rec.ID, &rec.Name, &rec.DBName, &rec.Address, &rec.Phone,
		&rec.ManagerName, &rec.EstablishmentYear, &rec.LogoURL, &rec.ManagerID,
		&rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ClinicRecord{}, ErrClinicNotFound
		}
		return ClinicRecord{}, wrapDataAccess(err)
	}
	return rec, nil
}
