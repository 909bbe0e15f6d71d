package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/frame-finder/internal/database"
)

const backendName = "mariadb"

// Pool holds a small read-only connection pool to the storefront catalog.
// The storefront owns this database; nothing here writes to it.
type Pool struct {
	db *sql.DB
}

// storefrontConfig parses dsn and fills in the driver settings the catalog
// queries rely on.
func storefrontConfig(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}

	cfg.ParseTime = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	// Sessions refuse writes even if the account is allowed to make them.
	cfg.Params["transaction_read_only"] = "1"
	return cfg, nil
}

// NewPool connects to the storefront database described by dsn.
func NewPool(dsn string) (*Pool, error) {
	cfg, err := storefrontConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB at %s: %w", cfg.Addr, err)
	}
	return &Pool{db: db}, nil
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Initialize connects to the storefront database and registers it as the
// "mariadb" catalog backend.
func Initialize(dsn string) (*Pool, error) {
	pool, err := NewPool(dsn)
	if err != nil {
		return nil, err
	}
	database.RegisterFrameReader(backendName, func() database.FrameReader {
		return NewFrameRepository(pool)
	})
	return pool, nil
}
