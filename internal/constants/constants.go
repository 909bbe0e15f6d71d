// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Matching constants
const (
	// MaxMatchLimit caps the number of recommendations a single request may ask for
	MaxMatchLimit = 50
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) sent to an AI provider
	MaxImageSize = 800

	// ImportBatchSize is the number of frames upserted per transaction by catalog import
	ImportBatchSize = 100
)

// Handler constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100

	// MaxTryOnJobs is the number of finished try-on jobs kept in memory
	MaxTryOnJobs = 200
)

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (20MB)
	MaxUploadSize = 20 << 20
)
