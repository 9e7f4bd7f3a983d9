package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	sqlassets "github.com/optoplus-health/optoplus/database"
)

// MasterStore manages the master registry database: the clinics table and
// the platform admin principals. It is created once at process start.
type MasterStore struct {
	registry *PoolRegistry
	logger   *zap.Logger
}

// NewMasterStore wires the store to the shared pool registry.
func NewMasterStore(registry *PoolRegistry, logger *zap.Logger) *MasterStore {
	if registry == nil {
		panic("master store requires pool registry")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MasterStore{registry: registry, logger: logger}
}

// EnsureDatabase creates the master registry database if absent and applies
// the registry DDL. Both halves are idempotent, so calling this on every
// boot is safe. Callers log failures and continue; individual operations
// fail later if the server never becomes reachable.
func (s *MasterStore) EnsureDatabase(ctx context.Context) error {
	masterDB := s.registry.server.MasterDB

	if err := s.registry.CreateDatabase(ctx, masterDB); err != nil {
		return fmt.Errorf("ensure master database: %w", err)
	}

	pool := s.registry.MasterPool()
	var statements []string
	statements = append(statements, splitStatements(sqlassets.ClinicsSQL)...)
	statements = append(statements, splitStatements(sqlassets.AdminUsersSQL)...)

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply master ddl: %w", wrapDataAccess(err))
		}
	}

	s.logger.Info("master registry initialized", zap.String("db_name", masterDB))
	return nil
}
