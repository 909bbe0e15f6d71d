package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/frame-finder/internal/database"
)

// TryOnRepository records try-on jobs in PostgreSQL
type TryOnRepository struct {
	pool *Pool
}

// NewTryOnRepository creates a new PostgreSQL try-on repository
func NewTryOnRepository(pool *Pool) *TryOnRepository {
	return &TryOnRepository{pool: pool}
}

// Create stores a new try-on row
func (r *TryOnRepository) Create(ctx context.Context, t *database.StoredTryOn) (err error) {
	defer observe("create try-on", time.Now(), &err)

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = database.TryOnPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO try_ons (id, session_id, frame_id, provider, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.SessionID, t.FrameID, t.Provider, string(t.Status), t.Error, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create try-on: %w", err)
	}
	return nil
}

// Finish records the final status of a try-on
func (r *TryOnRepository) Finish(ctx context.Context, id string, status database.TryOnStatus, errMsg string) (err error) {
	defer observe("finish try-on", time.Now(), &err)

	_, err = r.pool.Exec(ctx, `
		UPDATE try_ons SET status = $2, error = $3, completed_at = NOW()
		WHERE id = $1
	`, id, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("finish try-on: %w", err)
	}
	return nil
}

// Get retrieves a try-on by ID, returns nil if not found
func (r *TryOnRepository) Get(ctx context.Context, id string) (_ *database.StoredTryOn, err error) {
	defer observe("get try-on", time.Now(), &err)

	if _, parseErr := uuid.Parse(id); parseErr != nil {
		return nil, nil
	}

	var (
		t           database.StoredTryOn
		status      string
		completedAt sql.NullTime
	)
	err = r.pool.QueryRow(ctx, `
		SELECT id, session_id, frame_id, provider, status, error, created_at, completed_at
		FROM try_ons WHERE id = $1
	`, id).Scan(&t.ID, &t.SessionID, &t.FrameID, &t.Provider, &status, &t.Error, &t.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get try-on: %w", err)
	}

	t.Status = database.TryOnStatus(status)
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}
