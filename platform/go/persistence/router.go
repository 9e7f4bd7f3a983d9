package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Router executes parameterized statements against the correct clinic
// database, self-healing when the physical database is missing. Some
// historical flows create clinic databases lazily on first query; the
// recovery path masks that ordering gap so callers never special-case it.
type Router struct {
	registry *PoolRegistry
	logger   *zap.Logger
	metrics  *Metrics
}

// NewRouter wires the router to the shared pool registry.
func NewRouter(registry *PoolRegistry, logger *zap.Logger, metrics *Metrics) *Router {
	if registry == nil {
		panic("router requires pool registry")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{registry: registry, logger: logger, metrics: metrics}
}

// Query runs a statement against the clinic's database and returns rows.
// Values must be bound parameters; only normalized database keys are ever
// interpolated as identifiers, and never here.
func (r *Router) Query(ctx context.Context, key, sql string, args ...any) (pgx.Rows, error) {
	pool, err := r.registry.GetPool(key)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err == nil {
		r.observe("query", nil)
		return rows, nil
	}

	if healed, healErr := r.heal(ctx, key, sql, err); healed {
		rows, err = pool.Query(ctx, sql, args...)
		if err != nil {
			r.observe("query", err)
			return nil, wrapDataAccess(err)
		}
		r.observe("query", nil)
		return rows, nil
	} else if healErr != nil {
		r.observe("query", healErr)
		return nil, healErr
	}

	r.observe("query", err)
	return nil, wrapDataAccess(err)
}

// QueryRow runs a single-row query against the clinic's database. It rides
// on Query so it carries the same self-healing and error taxonomy; errors
// deferred to Scan come back wrapped like every other router entry point.
func (r *Router) QueryRow(ctx context.Context, key, sql string, args ...any) (pgx.Row, error) {
	rows, err := r.Query(ctx, key, sql, args...)
	if err != nil {
		return nil, err
	}
	return routedRow{rows: rows}, nil
}

// routedRow adapts pgx.Rows to pgx.Row semantics: Scan consumes the first
// row, closes the set, and wraps any deferred execution error.
type routedRow struct {
	rows pgx.Rows
}

func (r routedRow) Scan(dest ...any) error {
	defer r.rows.Close()

	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return wrapDataAccess(err)
		}
		return pgx.ErrNoRows
	}
	if err := r.rows.Scan(dest...); err != nil {
		return wrapDataAccess(err)
	}
	r.rows.Close()
	return wrapDataAccess(r.rows.Err())
}

// Exec runs a statement against the clinic's database with the same
// self-healing behavior as Query.
func (r *Router) Exec(ctx context.Context, key, sql string, args ...any) (pgconn.CommandTag, error) {
	pool, err := r.registry.GetPool(key)
	if err != nil {
		return pgconn.CommandTag{}, err
	}

	tag, err := pool.Exec(ctx, sql, args...)
	if err == nil {
		r.observe("exec", nil)
		return tag, nil
	}

	if healed, healErr := r.heal(ctx, key, sql, err); healed {
		tag, err = pool.Exec(ctx, sql, args...)
		if err != nil {
			r.observe("exec", err)
			return pgconn.CommandTag{}, wrapDataAccess(err)
		}
		r.observe("exec", nil)
		return tag, nil
	} else if healErr != nil {
		r.observe("exec", healErr)
		return pgconn.CommandTag{}, healErr
	}

	r.observe("exec", err)
	return pgconn.CommandTag{}, wrapDataAccess(err)
}

// QueryMaster runs a statement against the master registry database.
func (r *Router) QueryMaster(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := r.registry.MasterPool().Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDataAccess(err)
	}
	return rows, nil
}

// ExecMaster runs a statement against the master registry database.
func (r *Router) ExecMaster(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tag, err := r.registry.MasterPool().Exec(ctx, sql, args...)
	if err != nil {
		return pgconn.CommandTag{}, wrapDataAccess(err)
	}
	return tag, nil
}

// Transact runs fn inside a transaction on the clinic's database. Any error
// from fn rolls the whole transaction back; the connection is released on
// every exit path. This is the only explicit transaction boundary the
// routing layer offers; provisioning is deliberately non-transactional.
func (r *Router) Transact(ctx context.Context, key string, fn func(tx pgx.Tx) error) error {
	pool, err := r.registry.GetPool(key)
	if err != nil {
		return err
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		if healed, healErr := r.heal(ctx, key, "", err); healed {
			tx, err = pool.BeginTx(ctx, pgx.TxOptions{})
			if err != nil {
				return wrapDataAccess(err)
			}
		} else if healErr != nil {
			return healErr
		} else {
			return wrapDataAccess(err)
		}
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDataAccess(err)
	}
	return nil
}

// heal recovers from a missing clinic database exactly once. It refuses to
// recurse when the failing statement is itself a database-creation statement.
// Returns (true, nil) when the caller should retry, (false, err) when the
// recovery itself failed, and (false, nil) when the error is not healable.
func (r *Router) heal(ctx context.Context, key, sql string, cause error) (bool, error) {
	if !isUnknownDatabase(cause) || isCreateDatabaseStatement(sql) {
		return false, nil
	}

	r.logger.Warn("clinic database missing, creating before retry",
		zap.String("db_name", key), zap.Error(cause))
	if r.metrics != nil {
		r.metrics.SelfHeals.Inc()
	}

	if err := r.registry.CreateDatabase(ctx, key); err != nil {
		return false, fmt.Errorf("self-heal %q: %w", key, err)
	}
	return true, nil
}

func isCreateDatabaseStatement(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "CREATE DATABASE")
}

func (r *Router) observe(op string, err error) {
	if r.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.metrics.QueriesTotal.WithLabelValues(op, outcome).Inc()
}
