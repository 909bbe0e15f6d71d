package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"github.com/kozaktomas/frame-finder/internal/config"
	"github.com/kozaktomas/frame-finder/internal/database"
	"github.com/kozaktomas/frame-finder/internal/logging"
	"github.com/kozaktomas/frame-finder/internal/metrics"
)

const backendName = "postgres"

// pingTimeout bounds a single connection attempt.
const pingTimeout = 5 * time.Second

// Pool wraps the PostgreSQL handle shared by the frame, analysis and try-on
// repositories.
type Pool struct {
	db *sql.DB
}

var (
	active   *Pool
	activeMu sync.RWMutex
)

// NewPool opens a connection pool and waits until the server answers. With a
// non-zero ConnectTimeout the ping is retried with exponential backoff, which
// covers compose setups where the API starts before the database.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := waitForServer(db, cfg.ConnectTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Pool{db: db}, nil
}

func waitForServer(db *sql.DB, budget time.Duration) error {
	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		return db.PingContext(ctx)
	}
	if budget <= 0 {
		return ping()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = budget

	return backoff.RetryNotify(ping, b, func(err error, wait time.Duration) {
		logging.Warn().Err(err).Dur("retry_in", wait).Msg("database not ready")
	})
}

// Close releases every connection held by the pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}

// activate makes p the pool behind the postgres repositories in the
// database registry.
func activate(p *Pool) {
	activeMu.Lock()
	active = p
	activeMu.Unlock()

	database.RegisterPostgresBackend(
		func() database.FrameWriter { return NewFrameRepository(p) },
		func() database.AnalysisWriter { return NewAnalysisRepository(p) },
		func() database.TryOnWriter { return NewTryOnRepository(p) },
	)
}

// GetGlobalPool returns the pool registered by Initialize, or nil.
func GetGlobalPool() *Pool {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// QueryRow runs a query expected to return at most one row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Query runs a query returning rows. The caller closes them.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

// Exec runs a statement that returns no rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

// BeginTx starts a transaction used for batched catalog upserts.
func (p *Pool) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}

// observe records the duration and outcome of one repository operation.
// Use it deferred with a pointer to the named error result.
func observe(operation string, start time.Time, err *error) {
	metrics.RecordDBQuery(backendName, operation, time.Since(start), *err)
}

// Initialize connects to PostgreSQL, applies migrations and registers the
// repositories as the writable storage backend.
func Initialize(cfg *config.DatabaseConfig) error {
	pool, err := NewPool(cfg)
	if err != nil {
		return fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := pool.Migrate(ctx); err != nil {
		_ = pool.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	activate(pool)
	return nil
}
