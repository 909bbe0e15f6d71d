package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/frame-finder/internal/ai"
	"github.com/kozaktomas/frame-finder/internal/cache"
	"github.com/kozaktomas/frame-finder/internal/config"
	"github.com/kozaktomas/frame-finder/internal/database"
	"github.com/kozaktomas/frame-finder/internal/database/mariadb"
	"github.com/kozaktomas/frame-finder/internal/database/postgres"
)

// connectPostgres opens the primary database, applies pending migrations and
// registers the PostgreSQL repositories. The returned func closes the pool.
func connectPostgres(cfg *config.Config) (func(), error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return func() { _ = postgres.GetGlobalPool().Close() }, nil
}

// openCatalog returns the frame reader selected by CATALOG_BACKEND. connectPostgres
// must have been called first; the MariaDB storefront is connected here on demand.
func openCatalog(ctx context.Context, cfg *config.Config) (database.FrameReader, func(), error) {
	closer := func() {}
	if cfg.Catalog.Backend == config.CatalogMariaDB {
		pool, err := mariadb.Initialize(cfg.Catalog.MariaDBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MariaDB catalog: %w", err)
		}
		closer = func() { _ = pool.Close() }
	}

	frames, err := database.GetFrameReader(ctx, cfg.Catalog.Backend)
	if err != nil {
		closer()
		return nil, nil, fmt.Errorf("failed to get frame reader: %w", err)
	}
	return frames, closer, nil
}

// newExtractor builds the configured AI provider behind the caching, retrying extractor.
// The caller owns the returned cache.
func newExtractor(ctx context.Context, cfg *config.Config) (*ai.Extractor, cache.Cache, error) {
	provider, err := ai.NewProvider(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AI provider: %w", err)
	}
	c := cache.New(ctx, cfg.Cache.RedisURL)
	return ai.NewExtractor(provider, c, cfg.Extractor, cfg.Cache.TTL), c, nil
}
