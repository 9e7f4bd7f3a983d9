package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/optoplus-health/optoplus/platform/go/tenant"
)

// PoolRegistry owns every connection pool in the process: the master
// registry pool, a maintenance pool bound to the server's default database
// for CREATE DATABASE statements, and one lazily created pool per clinic.
// The clinic map is append-only; pools live for the process lifetime.
type PoolRegistry struct {
	server  ServerConfig
	logger  *zap.Logger
	metrics *Metrics

	master      *pgxpool.Pool
	maintenance *pgxpool.Pool

	mu      sync.RWMutex
	clinics map[string]*pgxpool.Pool
}

// NewPoolRegistry constructs the registry and its two well-known pools.
// Pool construction never performs I/O, so an unreachable server surfaces on
// first query rather than here.
func NewPoolRegistry(server ServerConfig, logger *zap.Logger, metrics *Metrics) (*PoolRegistry, error) {
	if server.MasterDB == "" {
		return nil, fmt.Errorf("master database name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	master, err := NewLazyPool(server.ConnString(server.MasterDB), MasterPoolMaxConns)
	if err != nil {
		return nil, fmt.Errorf("build master pool: %w", err)
	}

	maintenance, err := NewLazyPool(server.ConnString(server.adminDB()), MaintenancePoolMaxConns)
	if err != nil {
		ClosePool(master)
		return nil, fmt.Errorf("build maintenance pool: %w", err)
	}

	return &PoolRegistry{
		server:      server,
		logger:      logger,
		metrics:     metrics,
		master:      master,
		maintenance: maintenance,
		clinics:     make(map[string]*pgxpool.Pool),
	}, nil
}

// GetPool returns the pool bound to the clinic's database, creating and
// caching it on first reference.
func (r *PoolRegistry) GetPool(key string) (*pgxpool.Pool, error) {
	if !tenant.ValidDatabaseKey(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKeyFormat, key)
	}

	r.mu.RLock()
	pool, ok := r.clinics[key]
	r.mu.RUnlock()
	if ok {
		return pool, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if pool, ok := r.clinics[key]; ok {
		return pool, nil
	}

	pool, err := NewLazyPool(r.server.ConnString(key), ClinicPoolMaxConns)
	if err != nil {
		return nil, fmt.Errorf("build clinic pool %q: %w", key, err)
	}

	r.clinics[key] = pool
	r.logger.Info("clinic pool created", zap.String("db_name", key))
	if r.metrics != nil {
		r.metrics.PoolsCreated.Inc()
		r.metrics.ClinicPools.Set(float64(len(r.clinics)))
	}

	return pool, nil
}

// MasterPool returns the single pool bound to the master registry database.
func (r *PoolRegistry) MasterPool() *pgxpool.Pool {
	return r.master
}

// CreateDatabase issues CREATE DATABASE for the given key through the
// maintenance pool. An already-existing database is success, which makes the
// call idempotent. The key is interpolated as an identifier; it must already
// be in canonical normalized form.
func (r *PoolRegistry) CreateDatabase(ctx context.Context, key string) error {
	if !tenant.ValidDatabaseKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKeyFormat, key)
	}

	stmt := fmt.Sprintf(`CREATE DATABASE %s ENCODING 'UTF8' TEMPLATE template0`, key)
	if _, err := r.maintenance.Exec(ctx, stmt); err != nil {
		if isDuplicateDatabase(err) {
			return nil
		}
		return fmt.Errorf("create database %q: %w", key, err)
	}

	r.logger.Info("clinic database created", zap.String("db_name", key))
	return nil
}

// Close releases every pool. Normal operation never calls this; it exists
// for tests and orderly shutdown of the apps.
func (r *PoolRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pool := range r.clinics {
		ClosePool(pool)
	}
	r.clinics = make(map[string]*pgxpool.Pool)
	ClosePool(r.master)
	ClosePool(r.maintenance)
}
