package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/database"
)

const analysisColumns = `id, session_id, provider, face_shape, recommended_sizes, recommended_colors,
	recommended_styles, confidence, fallback, image_phash, created_at`

// AnalysisRepository provides PostgreSQL-backed storage for the face analysis log
type AnalysisRepository struct {
	pool *Pool
}

// NewAnalysisRepository creates a new PostgreSQL analysis repository
func NewAnalysisRepository(pool *Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

func scanAnalysis(row rowScanner) (*database.StoredAnalysis, error) {
	var (
		a                     database.StoredAnalysis
		shape                 string
		sizes, colors, styles []string
	)
	err := row.Scan(
		&a.ID,
		&a.SessionID,
		&a.Provider,
		&shape,
		pq.Array(&sizes),
		pq.Array(&colors),
		pq.Array(&styles),
		&a.Attributes.Confidence,
		&a.Fallback,
		&a.ImagePHash,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Attributes.FaceShape = catalog.ParseFaceShape(shape)
	a.Attributes.RecommendedSizes = catalog.ParseSizes(sizes)
	a.Attributes.RecommendedColors = catalog.ParseColors(colors)
	a.Attributes.RecommendedStyles = catalog.ParseStyles(styles)
	return &a, nil
}

// Save appends an analysis to the log
func (r *AnalysisRepository) Save(ctx context.Context, a *database.StoredAnalysis) (err error) {
	defer observe("save analysis", time.Now(), &err)

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	attrs := a.Attributes
	_, err = r.pool.Exec(ctx, `
		INSERT INTO face_analyses (`+analysisColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		a.ID,
		a.SessionID,
		a.Provider,
		string(attrs.FaceShape),
		pq.Array(catalog.Strings(attrs.RecommendedSizes)),
		pq.Array(catalog.Strings(attrs.RecommendedColors)),
		pq.Array(catalog.Strings(attrs.RecommendedStyles)),
		attrs.Confidence,
		a.Fallback,
		a.ImagePHash,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// Get retrieves an analysis by ID, returns nil if not found
func (r *AnalysisRepository) Get(ctx context.Context, id string) (_ *database.StoredAnalysis, err error) {
	defer observe("get analysis", time.Now(), &err)

	if _, parseErr := uuid.Parse(id); parseErr != nil {
		return nil, nil
	}

	a, err := scanAnalysis(r.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM face_analyses WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

// ListBySession returns a session's analyses, oldest first
func (r *AnalysisRepository) ListBySession(ctx context.Context, sessionID string) (_ []database.StoredAnalysis, err error) {
	defer observe("list analyses", time.Now(), &err)

	rows, err := r.pool.Query(ctx,
		`SELECT `+analysisColumns+` FROM face_analyses WHERE session_id = $1 ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	analyses := []database.StoredAnalysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		analyses = append(analyses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return analyses, nil
}
