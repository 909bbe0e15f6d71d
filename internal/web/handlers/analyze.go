package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/frame-finder/internal/ai"
	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/constants"
	"github.com/kozaktomas/frame-finder/internal/database"
	"github.com/kozaktomas/frame-finder/internal/logging"
	"github.com/kozaktomas/frame-finder/internal/matcher"
	"github.com/kozaktomas/frame-finder/internal/metrics"
	"github.com/kozaktomas/frame-finder/internal/validation"
)

// AnalyzeHandler turns an uploaded face photo into frame recommendations.
type AnalyzeHandler struct {
	extractor *ai.Extractor
	frames    database.FrameReader
	analyses  database.AnalysisWriter
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(extractor *ai.Extractor, frames database.FrameReader, analyses database.AnalysisWriter) *AnalyzeHandler {
	return &AnalyzeHandler{
		extractor: extractor,
		frames:    frames,
		analyses:  analyses,
	}
}

// uploadForm holds the non-file multipart fields shared by /analyze and /tryon.
type uploadForm struct {
	SessionID string `json:"session_id" validate:"omitempty,max=64,printascii"`
	FrameID   string `json:"frame_id" validate:"omitempty,max=64"`
}

// AnalyzeResponse is returned by POST /analyze.
type AnalyzeResponse struct {
	SessionID  string                   `json:"session_id"`
	AnalysisID string                   `json:"analysis_id,omitempty"`
	Provider   string                   `json:"provider"`
	Attributes catalog.FacialAttributes `json:"attributes"`
	Fallback   bool                     `json:"fallback"`
	Cached     bool                     `json:"cached"`
	Frames     []catalog.FrameProduct   `json:"frames"`
}

// readUpload reads the "image" part of a multipart request and validates the other fields.
// On failure it writes the response and returns ok=false.
func readUpload(w http.ResponseWriter, r *http.Request) (data []byte, form uploadForm, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("image exceeds %d bytes", constants.MaxUploadSize))
			return nil, form, false
		}
		respondError(w, http.StatusBadRequest, "expected multipart/form-data with an image field")
		return nil, form, false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image is required")
		return nil, form, false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return nil, form, false
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "image is empty")
		return nil, form, false
	}

	form = uploadForm{
		SessionID: r.FormValue("session_id"),
		FrameID:   r.FormValue("frame_id"),
	}
	if err := validation.ValidateStruct(&form); err != nil {
		respondValidationError(w, err)
		return nil, form, false
	}
	return data, form, true
}

// respondExtractionError maps extractor errors to HTTP statuses.
func respondExtractionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ai.ErrInvalidImage):
		respondError(w, http.StatusBadRequest, "the uploaded file is not a supported image")
	case errors.Is(err, ai.ErrNoFaceDetected):
		respondError(w, http.StatusUnprocessableEntity, "no face detected in the photo")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, errTryAgain)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("attribute extraction failed")
		respondError(w, http.StatusBadGateway, errTryAgain)
	}
}

// Analyze handles POST /analyze: extract, log the analysis, then match the active catalog.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, form, ok := readUpload(w, r)
	if !ok {
		return
	}
	if v := r.FormValue("limit"); v != "" {
		if limit, err = parseLimit(v); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	sessionID := form.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx := r.Context()
	log := logging.Ctx(ctx)

	extraction, err := h.extractor.Extract(ctx, data)
	if err != nil {
		respondExtractionError(w, r, err)
		return
	}

	stored := &database.StoredAnalysis{
		SessionID:  sessionID,
		Provider:   extraction.Provider,
		Attributes: extraction.Attributes,
		Fallback:   extraction.Fallback,
		ImagePHash: extraction.PHash,
	}
	if err := h.analyses.Save(ctx, stored); err != nil {
		log.Warn().Err(err).Str("session_id", sanitizeForLog(sessionID)).Msg("failed to record analysis")
		stored.ID = ""
	}

	frames, err := matchCatalog(ctx, h.frames, extraction.Attributes, limit)
	if err != nil {
		log.Error().Err(err).Msg("catalog fetch failed")
		respondError(w, http.StatusInternalServerError, errTryAgain)
		return
	}

	log.Info().
		Str("session_id", sanitizeForLog(sessionID)).
		Str("face_shape", string(extraction.Attributes.FaceShape)).
		Bool("fallback", extraction.Fallback).
		Bool("cached", extraction.Cached).
		Int("frames", len(frames)).
		Msg("analysis complete")

	respondJSON(w, http.StatusOK, AnalyzeResponse{
		SessionID:  sessionID,
		AnalysisID: stored.ID,
		Provider:   extraction.Provider,
		Attributes: extraction.Attributes,
		Fallback:   extraction.Fallback,
		Cached:     extraction.Cached,
		Frames:     frames,
	})
}

// matchCatalog fetches the active catalog and ranks it.
func matchCatalog(ctx context.Context, reader database.FrameReader, attrs catalog.FacialAttributes, limit int) ([]catalog.FrameProduct, error) {
	frames, err := reader.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active frames: %w", err)
	}

	start := time.Now()
	matched, err := matcher.Match(attrs, frames, limit)
	if err != nil {
		return nil, err
	}
	metrics.RecordMatch(len(frames), len(matched), time.Since(start))
	return matched, nil
}
