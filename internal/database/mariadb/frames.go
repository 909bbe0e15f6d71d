package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/metrics"
)

// The storefront keeps eyewear in its own table; face shapes are a SET column
// that the driver returns as a comma-separated string.
const frameQuery = `
	SELECT sku, name, brand, price_cents, COALESCE(image_url, ''), frame_style, frame_color,
		frame_size, COALESCE(face_shapes, ''), stock_status, stock_qty, is_active
	FROM eyewear_frames`

// FrameRepository reads frames from the storefront catalog. It is read-only.
type FrameRepository struct {
	pool *Pool
}

// NewFrameRepository creates a new MariaDB frame repository
func NewFrameRepository(pool *Pool) *FrameRepository {
	return &FrameRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFrame(row rowScanner) (*catalog.FrameProduct, error) {
	var (
		f                          catalog.FrameProduct
		style, color, size, status string
		shapes                     string
		stockQty                   sql.NullInt64
	)
	err := row.Scan(&f.ID, &f.Name, &f.Brand, &f.PriceCents, &f.ImageURL,
		&style, &color, &size, &shapes, &status, &stockQty, &f.IsActive)
	if err != nil {
		return nil, err
	}

	f.Style = catalog.ParseStyle(style)
	f.Color = catalog.ParseColor(color)
	f.Size = catalog.ParseSize(size)
	f.StockStatus = catalog.ParseStockStatus(status)
	f.SuitableFaceShapes = catalog.ParseFaceShapes(splitSet(shapes))
	if stockQty.Valid {
		f.StockCount = catalog.IntPtr(int(stockQty.Int64))
	}
	return &f, nil
}

// observe records the duration and outcome of one repository operation.
// Use it deferred with a pointer to the named error result.
func observe(operation string, start time.Time, err *error) {
	metrics.RecordDBQuery(backendName, operation, time.Since(start), *err)
}

// splitSet splits a MariaDB SET value ("oval,round") into its members.
func splitSet(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ListActive returns active frames in storefront position order
func (r *FrameRepository) ListActive(ctx context.Context) (_ []catalog.FrameProduct, err error) {
	defer observe("list active frames", time.Now(), &err)

	rows, err := r.pool.db.QueryContext(ctx, frameQuery+` WHERE is_active = 1 ORDER BY position, sku`)
	if err != nil {
		return nil, fmt.Errorf("list active frames: %w", err)
	}
	defer rows.Close()

	frames := []catalog.FrameProduct{}
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

// Get retrieves a frame by SKU, returns nil if not found
func (r *FrameRepository) Get(ctx context.Context, id string) (_ *catalog.FrameProduct, err error) {
	defer observe("get frame", time.Now(), &err)

	f, err := scanFrame(r.pool.db.QueryRowContext(ctx, frameQuery+` WHERE sku = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get frame: %w", err)
	}
	return f, nil
}
