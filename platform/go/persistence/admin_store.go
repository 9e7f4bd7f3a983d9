package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// AdminUsersTable holds the platform-level principals in the master database.
const AdminUsersTable = "admin_users"

// AdminRecord represents one platform admin principal.
type AdminRecord struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const adminColumns = `id, username, email, password, first_name, last_name,
    phone_number, is_active, created_at, updated_at`

// AdminStore provides access to the admin_users table.
type AdminStore struct {
	registry *PoolRegistry
}

// NewAdminStore creates a store; assumes EnsureDatabase already ran.
func NewAdminStore(registry *PoolRegistry) (*AdminStore, error) {
	if registry == nil {
		return nil, errors.New("pool registry is required")
	}
	return &AdminStore{registry: registry}, nil
}

// Insert adds an admin principal. Username and email are unique.
func (s *AdminStore) Insert(ctx context.Context, rec AdminRecord) (int64, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (username, email, password, first_name, last_name, phone_number)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id
    `, AdminUsersTable)

	var id int64
	err := s.registry.MasterPool().QueryRow(ctx, query,
		rec.Username, rec.Email, rec.PasswordHash, rec.FirstName, rec.LastName, rec.PhoneNumber,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("admin username or email already taken: %w", err)
		}
		return 0, wrapDataAccess(err)
	}

	return id, nil
}

// FindByUsername returns the active admin with the given username.
func (s *AdminStore) FindByUsername(ctx context.Context, username string) (AdminRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE username = $1`, adminColumns, AdminUsersTable)
	return scanAdminRecord(s.registry.MasterPool().QueryRow(ctx, query, username))
}

// FindByID returns an admin principal by id.
func (s *AdminStore) FindByID(ctx context.Context, id int64) (AdminRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, adminColumns, AdminUsersTable)
	return scanAdminRecord(s.registry.MasterPool().QueryRow(ctx, query, id))
}

// SetActive flips an admin's status.
func (s *AdminStore) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET is_active = $1, updated_at = now() WHERE id = $2`, AdminUsersTable)
	tag, err := s.registry.MasterPool().Exec(ctx, query, active, id)
	if err != nil {
		return false, wrapDataAccess(err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanAdminRecord(row pgx.Row) (AdminRecord, error) {
	var rec AdminRecord
	err := row.Scan(&rec.ID, &rec.Username, &rec.Email, &rec.PasswordHash,
		&rec.FirstName, &rec.LastName, &rec.PhoneNumber, &rec.IsActive,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminRecord{}, ErrAdminNotFound
		}
		return AdminRecord{}, wrapDataAccess(err)
	}
	return rec, nil
}
