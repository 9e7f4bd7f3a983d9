package persistence

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing. Clinic pools stay small because every clinic gets its own;
// the master registry pool is shared by every request and gets more headroom.
// Acquire requests queue without an artificial cap in both cases.
const (
	ClinicPoolMaxConns      = 5
	MasterPoolMaxConns      = 10
	MaintenancePoolMaxConns = 5
)

// ServerConfig holds the shared database server credentials. Every pool,
// master and clinic alike, connects with the same identity; clinics are
// distinguished purely by database name.
type ServerConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// MasterDB is the master registry database name.
	MasterDB string
	// AdminDB is the server's always-present database used for CREATE
	// DATABASE statements, "postgres" unless overridden.
	AdminDB string
}

// ConnString builds a DSN for the given database on the shared server.
func (c ServerConfig) ConnString(database string) string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), host, port, database)
}

func (c ServerConfig) adminDB() string {
	if c.AdminDB != "" {
		return c.AdminDB
	}
	return "postgres"
}

// NewLazyPool builds a pgxpool.Pool without touching the network. MinConns
// stays at zero so construction is side-effect-free until the first acquire;
// a pool bound to a database that does not exist yet only fails on first query.
func NewLazyPool(connString string, maxConns int32) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, fmt.Errorf("conn string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}

	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// ClosePool shuts down the pool gracefully; safe to call with nil.
func ClosePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
