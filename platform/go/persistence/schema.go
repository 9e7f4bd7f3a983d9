package persistence

import (
	"context"
	"strings"
)

// splitStatements breaks a schema script into executable statements on the
// `;` delimiter, dropping blanks. Statement order is preserved.
func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		stmt := strings.TrimSpace(part)
		if stmt == "" {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}

// ApplyClinicSchema runs the clinic schema script statement by statement
// against the clinic's database. Application is not transactional: the first
// failing statement aborts the rest but already-applied statements stay.
// The script uses IF NOT EXISTS throughout, so re-running it on a partially
// initialized database converges rather than failing.
func (r *PoolRegistry) ApplyClinicSchema(ctx context.Context, key string, script string) error {
	pool, err := r.GetPool(key)
	if err != nil {
		return err
	}

	for _, stmt := range splitStatements(script) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return &SchemaApplicationError{Statement: stmt, Err: err}
		}
	}

	return nil
}
