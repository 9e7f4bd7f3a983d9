package persistence

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestWrapDataAccess(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		require.NoError(t, wrapDataAccess(nil))
	})

	t.Run("invalid catalog maps to unknown database", func(t *testing.T) {
		cause := &pgconn.PgError{Code: pgCodeInvalidCatalogName, Message: "database does not exist"}
		err := wrapDataAccess(cause)
		require.ErrorIs(t, err, ErrUnknownDatabase)
	})

	t.Run("pg error carries sqlstate", func(t *testing.T) {
		cause := &pgconn.PgError{Code: "42601", Message: "syntax error"}
		err := wrapDataAccess(cause)

		var dae *DataAccessError
		require.ErrorAs(t, err, &dae)
		require.Equal(t, "42601", dae.Code)
	})

	t.Run("non-pg error has empty code", func(t *testing.T) {
		err := wrapDataAccess(errors.New("connection refused"))

		var dae *DataAccessError
		require.ErrorAs(t, err, &dae)
		require.Empty(t, dae.Code)
	})
}

func TestRegistryInsertErrorUnwrap(t *testing.T) {
	dup := &RegistryInsertError{Duplicate: true, Err: errors.New("23505")}
	require.ErrorIs(t, dup, ErrDuplicateTenantName)

	other := &RegistryInsertError{Err: errors.New("connection reset")}
	require.NotErrorIs(t, other, ErrDuplicateTenantName)
}

func TestSchemaApplicationErrorReportsStatement(t *testing.T) {
	err := &SchemaApplicationError{
		Statement: "CREATE TABLE patients (id BIGSERIAL)",
		Err:       errors.New("out of disk"),
	}
	require.Contains(t, err.Error(), "CREATE TABLE patients")
	require.ErrorContains(t, err, "out of disk")
}

func TestSQLStateClassifiers(t *testing.T) {
	require.True(t, isUniqueViolation(&pgconn.PgError{Code: pgCodeUniqueViolation}))
	require.False(t, isUniqueViolation(errors.New("plain")))

	require.True(t, isUnknownDatabase(&pgconn.PgError{Code: pgCodeInvalidCatalogName}))
	require.False(t, isUnknownDatabase(&pgconn.PgError{Code: pgCodeUniqueViolation}))

	require.True(t, isDuplicateDatabase(&pgconn.PgError{Code: pgCodeDuplicateDatabase}))
	require.False(t, isDuplicateDatabase(nil))
}

func TestSplitStatements(t *testing.T) {
	script := `
CREATE TABLE a (id INT);

CREATE TABLE b (id INT);
;
  `
	stmts := splitStatements(script)
	require.Len(t, stmts, 2)
	require.Equal(t, "CREATE TABLE a (id INT)", stmts[0])
	require.Equal(t, "CREATE TABLE b (id INT)", stmts[1])

	require.Empty(t, splitStatements("  ;; \n ;"))
}

func TestIsCreateDatabaseStatement(t *testing.T) {
	require.True(t, isCreateDatabaseStatement("CREATE DATABASE optometry_x"))
	require.True(t, isCreateDatabaseStatement("create database optometry_x"))
	require.False(t, isCreateDatabaseStatement("CREATE TABLE patients (id INT)"))
	require.False(t, isCreateDatabaseStatement("SELECT 1"))
}
