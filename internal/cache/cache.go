// Package cache stores extraction results keyed by image fingerprint.
//
// Redis is used when REDIS_URL is configured; otherwise, or when Redis cannot be
// reached at startup, an in-process MemoryCache takes over.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kozaktomas/frame-finder/internal/logging"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Backend names the implementation for logs and metrics.
	Backend() string
	Close() error
}

// New returns a Redis cache for redisURL, or a MemoryCache when redisURL is empty
// or the Redis server does not answer.
func New(ctx context.Context, redisURL string) Cache {
	if redisURL == "" {
		return NewMemoryCache()
	}

	rc, err := NewRedisCache(ctx, redisURL)
	if err != nil {
		logging.Warn().Err(err).Msg("redis unavailable, using in-memory analysis cache")
		return NewMemoryCache()
	}
	return rc
}
