package database

import (
	"context"

	"github.com/kozaktomas/frame-finder/internal/catalog"
)

// FrameReader provides read-only access to the frame catalog
type FrameReader interface {
	// ListActive returns every active frame in ingestion order
	ListActive(ctx context.Context) ([]catalog.FrameProduct, error)
	// Get retrieves a frame by ID, returns nil if not found
	Get(ctx context.Context, id string) (*catalog.FrameProduct, error)
}

// FrameWriter provides write access to the frame catalog
type FrameWriter interface {
	FrameReader

	// ListAll returns every frame, active or not, in ingestion order
	ListAll(ctx context.Context) ([]catalog.FrameProduct, error)
	// Upsert inserts new frames and updates existing ones by ID.
	// New frames are appended to the ingestion order; updated frames keep their position.
	Upsert(ctx context.Context, frames []catalog.FrameProduct) error
	// SetActive toggles a frame's visibility, returns false if the frame does not exist
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

// AnalysisReader provides read-only access to the face analysis log
type AnalysisReader interface {
	// Get retrieves an analysis by ID, returns nil if not found
	Get(ctx context.Context, id string) (*StoredAnalysis, error)
	// ListBySession returns a session's analyses, oldest first
	ListBySession(ctx context.Context, sessionID string) ([]StoredAnalysis, error)
}

// AnalysisWriter provides write access to the face analysis log
type AnalysisWriter interface {
	AnalysisReader

	// Save appends an analysis; ID and CreatedAt are filled in when empty
	Save(ctx context.Context, analysis *StoredAnalysis) error
}

// TryOnWriter records virtual try-on jobs
type TryOnWriter interface {
	// Get retrieves a try-on by ID, returns nil if not found
	Get(ctx context.Context, id string) (*StoredTryOn, error)
	// Create stores a new pending try-on
	Create(ctx context.Context, tryOn *StoredTryOn) error
	// Finish records the final status and error message of a try-on
	Finish(ctx context.Context, id string, status TryOnStatus, errMsg string) error
}
