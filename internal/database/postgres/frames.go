package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kozaktomas/frame-finder/internal/catalog"
)

const frameColumns = `id, name, brand, price_cents, image_url, style, color, size,
	suitable_face_shapes, stock_status, stock_count, is_active`

// FrameRepository provides PostgreSQL-backed frame catalog storage
type FrameRepository struct {
	pool *Pool
}

// NewFrameRepository creates a new PostgreSQL frame repository
func NewFrameRepository(pool *Pool) *FrameRepository {
	return &FrameRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanFrame reads one frame row. Tokens outside the vocabularies are kept as Unknown.
func scanFrame(row rowScanner) (*catalog.FrameProduct, error) {
	var (
		f                          catalog.FrameProduct
		style, color, size, status string
		shapes                     []string
		stockCount                 sql.NullInt64
	)
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Brand,
		&f.PriceCents,
		&f.ImageURL,
		&style,
		&color,
		&size,
		pq.Array(&shapes),
		&status,
		&stockCount,
		&f.IsActive,
	)
	if err != nil {
		return nil, err
	}

	f.Style = catalog.ParseStyle(style)
	f.Color = catalog.ParseColor(color)
	f.Size = catalog.ParseSize(size)
	f.StockStatus = catalog.ParseStockStatus(status)
	f.SuitableFaceShapes = catalog.ParseFaceShapes(shapes)
	if stockCount.Valid {
		f.StockCount = catalog.IntPtr(int(stockCount.Int64))
	}
	return &f, nil
}

func (r *FrameRepository) list(ctx context.Context, operation, query string) (frames []catalog.FrameProduct, err error) {
	defer observe(operation, time.Now(), &err)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer rows.Close()

	frames = []catalog.FrameProduct{}
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		frames = append(frames, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// ListActive returns every active frame ordered by ingestion sequence
func (r *FrameRepository) ListActive(ctx context.Context) ([]catalog.FrameProduct, error) {
	return r.list(ctx, "list active frames",
		`SELECT `+frameColumns+` FROM frames WHERE is_active ORDER BY seq`)
}

// ListAll returns every frame ordered by ingestion sequence
func (r *FrameRepository) ListAll(ctx context.Context) ([]catalog.FrameProduct, error) {
	return r.list(ctx, "list frames",
		`SELECT `+frameColumns+` FROM frames ORDER BY seq`)
}

// Get retrieves a frame by ID, returns nil if not found
func (r *FrameRepository) Get(ctx context.Context, id string) (_ *catalog.FrameProduct, err error) {
	defer observe("get frame", time.Now(), &err)

	f, err := scanFrame(r.pool.QueryRow(ctx, `SELECT `+frameColumns+` FROM frames WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get frame: %w", err)
	}
	return f, nil
}

// Upsert inserts or updates frames in a single transaction
func (r *FrameRepository) Upsert(ctx context.Context, frames []catalog.FrameProduct) (err error) {
	defer observe("upsert frames", time.Now(), &err)

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO frames (`+frameColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			price_cents = EXCLUDED.price_cents,
			image_url = EXCLUDED.image_url,
			style = EXCLUDED.style,
			color = EXCLUDED.color,
			size = EXCLUDED.size,
			suitable_face_shapes = EXCLUDED.suitable_face_shapes,
			stock_status = EXCLUDED.stock_status,
			stock_count = EXCLUDED.stock_count,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range frames {
		var stockCount any
		if f.StockCount != nil {
			stockCount = *f.StockCount
		}
		_, err = stmt.ExecContext(ctx,
			f.ID,
			f.Name,
			f.Brand,
			f.PriceCents,
			f.ImageURL,
			string(f.Style),
			string(f.Color),
			string(f.Size),
			pq.Array(catalog.Strings(f.SuitableFaceShapes)),
			string(f.StockStatus),
			stockCount,
			f.IsActive,
		)
		if err != nil {
			return fmt.Errorf("upsert frame %s: %w", f.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// SetActive toggles a frame's visibility, returns false if the frame does not exist
func (r *FrameRepository) SetActive(ctx context.Context, id string, active bool) (found bool, err error) {
	defer observe("set frame active", time.Now(), &err)

	result, err := r.pool.Exec(ctx,
		`UPDATE frames SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return false, fmt.Errorf("set frame active: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n > 0, nil
}
