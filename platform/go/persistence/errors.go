package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes this layer cares about.
const (
	pgCodeUniqueViolation    = "23505"
	pgCodeInvalidCatalogName = "3D000"
	pgCodeDuplicateDatabase  = "42P04"
)

var (
	// ErrDuplicateTenantName means the requested database key is already
	// registered; user-correctable by picking another name.
	ErrDuplicateTenantName = errors.New("clinic database name already registered")

	// ErrInvalidKeyFormat means a database key failed normalization
	// invariants. Keys are always normalized before reaching this layer, so
	// hitting this indicates a bug in key derivation, not bad user input.
	ErrInvalidKeyFormat = errors.New("invalid clinic database key")

	// ErrUnknownDatabase means the clinic's physical database does not exist
	// yet. The Router recovers from this once before surfacing it.
	ErrUnknownDatabase = errors.New("clinic database does not exist")

	// ErrClinicNotFound is returned when a clinic record is not in the registry.
	ErrClinicNotFound = errors.New("clinic not found")

	// ErrAdminNotFound is returned when an admin principal is not in the registry.
	ErrAdminNotFound = errors.New("admin user not found")
)

// SchemaApplicationError reports the first schema script statement that
// failed against a freshly created clinic database. The database may be left
// partially initialized; the script's CREATE TABLE IF NOT EXISTS statements
// let a retry of the same key converge.
type SchemaApplicationError struct {
	Statement string
	Err       error
}

func (e *SchemaApplicationError) Error() string {
	return fmt.Sprintf("apply clinic schema: statement %q: %v", e.Statement, e.Err)
}

func (e *SchemaApplicationError) Unwrap() error { return e.Err }

// RegistryInsertError wraps a failed insert into the clinics registry.
// Duplicate marks a unique-constraint collision on db_name, the backstop for
// races past the provisioner's pre-check.
type RegistryInsertError struct {
	Duplicate bool
	Err       error
}

func (e *RegistryInsertError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("insert clinic registry row: duplicate database key: %v", e.Err)
	}
	return fmt.Sprintf("insert clinic registry row: %v", e.Err)
}

func (e *RegistryInsertError) Unwrap() error {
	if e.Duplicate {
		return ErrDuplicateTenantName
	}
	return e.Err
}

// DataAccessError is the catch-all for statement execution failures. Code
// carries the server's SQLSTATE when available.
type DataAccessError struct {
	Code string
	Err  error
}

func (e *DataAccessError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("data access failed (SQLSTATE %s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("data access failed: %v", e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func wrapDataAccess(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgCodeInvalidCatalogName {
			return fmt.Errorf("%w: %w", ErrUnknownDatabase, err)
		}
		return &DataAccessError{Code: pgErr.Code, Err: err}
	}
	return &DataAccessError{Err: err}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgCodeUniqueViolation
}

func isUnknownDatabase(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgCodeInvalidCatalogName
}

func isDuplicateDatabase(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgCodeDuplicateDatabase
}
