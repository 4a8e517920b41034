// Package postgres implements store.Store on top of database/sql and
// github.com/lib/pq. It issues plain parameterized SQL — the domain has no
// need for server-side procedures — but keeps a timeout-wrapped Query/Exec
// shape and transaction-per-multi-step-write discipline (ClearGame).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/avfomichev/slovobot/store"
)

// Postgres is a store.Store backed by a *sql.DB using the "postgres" driver
// registered by github.com/lib/pq.
type Postgres struct {
	db          *sql.DB
	queryPeriod time.Duration
}

// Config creates a Postgres store.
type Config struct {
	// DriverName is passed to sql.Open; "postgres" in production, a test
	// double's registered name in tests.
	DriverName string
	// DataSourceName is the connection string.
	DataSourceName string
	// QueryPeriod bounds every query/exec/transaction.
	QueryPeriod time.Duration
}

// NewStore opens the database connection and wraps it as a store.Store.
func (cfg Config) NewStore() (*Postgres, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("creating postgres store: validation: %w", err)
	}
	db, err := sql.Open(cfg.DriverName, cfg.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	p := &Postgres{
		db:          db,
		queryPeriod: cfg.QueryPeriod,
	}
	return p, nil
}

func (cfg Config) validate() error {
	switch {
	case len(cfg.DriverName) == 0:
		return fmt.Errorf("driver name required")
	case len(cfg.DataSourceName) == 0:
		return fmt.Errorf("data source name required")
	case cfg.QueryPeriod <= 0:
		return fmt.Errorf("positive query period required")
	}
	return nil
}

func secondsToDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Setup runs the embedded schema, creating every table this package reads
// and writes. It is not a migration tool (schema evolution is an external
// concern); it is idempotent so tests and local runs can call it freely.
func (p *Postgres) Setup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.queryPeriod)
	defer cancel()
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("running schema setup: %w", translateErr(err))
	}
	return nil
}

// query runs a single-row query with the store's query-period timeout.
func (p *Postgres) query(ctx context.Context, q string, args ...interface{}) (*sql.Row, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, p.queryPeriod)
	return p.db.QueryRowContext(ctx, q, args...), cancel
}

// queryRows runs a multi-row query with the store's query-period timeout.
// The caller must close the returned rows and call the cancel func after.
func (p *Postgres) queryRows(ctx context.Context, q string, args ...interface{}) (*sql.Rows, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryPeriod)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		cancel()
		return nil, nil, translateErr(err)
	}
	return rows, cancel, nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error, for writes that touch more than one table.
func (p *Postgres) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.queryPeriod)
	defer cancel()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", translateErr(err))
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", translateErr(err))
	}
	return nil
}

// translateErr maps database/sql and lib/pq errors onto the typed store
// sentinels so engine code can branch with errors.Is instead of inspecting
// driver-specific error codes itself.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w", store.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%s: %w", pqErr.Message, store.ErrUniqueViolation)
		case "foreign_key_violation":
			return fmt.Errorf("%s: %w", pqErr.Message, store.ErrFKViolation)
		case "serialization_failure", "deadlock_detected", "connection_exception":
			return fmt.Errorf("%s: %w", pqErr.Message, store.ErrTransient)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w", store.ErrTransient)
	}
	return err
}
