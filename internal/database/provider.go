package database

import (
	"context"
	"fmt"
	"sync"
)

var (
	registryMu             sync.RWMutex
	frameReaders           = map[string]func() FrameReader{}
	postgresFrameWriter    func() FrameWriter
	postgresAnalysisWriter func() AnalysisWriter
	postgresTryOnWriter    func() TryOnWriter
	postgresInitialized    bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	frameWriter func() FrameWriter,
	analysisWriter func() AnalysisWriter,
	tryOnWriter func() TryOnWriter,
) {
	registryMu.Lock()
	defer registryMu.Unlock()
	postgresFrameWriter = frameWriter
	postgresAnalysisWriter = analysisWriter
	postgresTryOnWriter = tryOnWriter
	frameReaders["postgres"] = func() FrameReader { return frameWriter() }
	postgresInitialized = true
}

// RegisterFrameReader registers an additional read-only catalog backend, such as mariadb.
func RegisterFrameReader(backend string, reader func() FrameReader) {
	registryMu.Lock()
	defer registryMu.Unlock()
	frameReaders[backend] = reader
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return postgresInitialized
}

// GetFrameReader returns the catalog reader for the given backend name
func GetFrameReader(ctx context.Context, backend string) (FrameReader, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reader, ok := frameReaders[backend]
	if !ok {
		return nil, fmt.Errorf("catalog backend %q not initialized", backend)
	}
	return reader(), nil
}

// GetFrameWriter returns a FrameWriter from the PostgreSQL backend
func GetFrameWriter(ctx context.Context) (FrameWriter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresFrameWriter == nil {
		return nil, fmt.Errorf("PostgreSQL frame writer not registered")
	}
	return postgresFrameWriter(), nil
}

// GetAnalysisWriter returns an AnalysisWriter from the PostgreSQL backend
func GetAnalysisWriter(ctx context.Context) (AnalysisWriter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresAnalysisWriter == nil {
		return nil, fmt.Errorf("PostgreSQL analysis writer not registered")
	}
	return postgresAnalysisWriter(), nil
}

// GetTryOnWriter returns a TryOnWriter from the PostgreSQL backend
func GetTryOnWriter(ctx context.Context) (TryOnWriter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresTryOnWriter == nil {
		return nil, fmt.Errorf("PostgreSQL try-on writer not registered")
	}
	return postgresTryOnWriter(), nil
}
