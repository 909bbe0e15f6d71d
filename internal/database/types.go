package database

import (
	"time"

	"github.com/kozaktomas/frame-finder/internal/catalog"
)

// StoredAnalysis is one extraction result written to the analysis log
type StoredAnalysis struct {
	ID         string
	SessionID  string
	Provider   string
	Attributes catalog.FacialAttributes
	Fallback   bool
	ImagePHash string // hex pHash of the uploaded photo, empty if unknown
	CreatedAt  time.Time
}

// TryOnStatus is the lifecycle state of a try-on
type TryOnStatus string

const (
	TryOnPending   TryOnStatus = "pending"
	TryOnRunning   TryOnStatus = "running"
	TryOnCompleted TryOnStatus = "completed"
	TryOnFailed    TryOnStatus = "failed"
	TryOnCancelled TryOnStatus = "cancelled"
)

// StoredTryOn represents a try-on job row
type StoredTryOn struct {
	ID          string
	SessionID   string
	FrameID     string
	Provider    string
	Status      TryOnStatus
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}
