package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/database"
	"github.com/kozaktomas/frame-finder/internal/logging"
	"github.com/kozaktomas/frame-finder/internal/matcher"
	"github.com/kozaktomas/frame-finder/internal/validation"
)

// FramesHandler serves the catalog and attribute-only matching.
type FramesHandler struct {
	frames database.FrameReader
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(frames database.FrameReader) *FramesHandler {
	return &FramesHandler{frames: frames}
}

// MatchRequest is the body of POST /frames/match.
type MatchRequest struct {
	Attributes catalog.FacialAttributes `json:"attributes"`
	Limit      *int                     `json:"limit,omitempty" validate:"omitempty,gte=1,lte=50"`
}

// MatchResponse is returned by POST /frames/match.
type MatchResponse struct {
	Frames []catalog.FrameProduct `json:"frames"`
}

// List returns the active catalog in ingestion order.
func (h *FramesHandler) List(w http.ResponseWriter, r *http.Request) {
	frames, err := h.frames.ListActive(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to list frames")
		respondError(w, http.StatusInternalServerError, errTryAgain)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"frames": frames,
		"count":  len(frames),
	})
}

// Get returns a single frame, active or not.
func (h *FramesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing frame ID")
		return
	}

	frame, err := h.frames.Get(r.Context(), id)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("frame_id", sanitizeForLog(id)).Msg("failed to get frame")
		respondError(w, http.StatusInternalServerError, errTryAgain)
		return
	}
	if frame == nil {
		respondError(w, http.StatusNotFound, "frame not found")
		return
	}

	respondJSON(w, http.StatusOK, frame)
}

// Match ranks the active catalog against attributes supplied by the client.
func (h *FramesHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	limit := matcher.DefaultLimit
	if req.Limit != nil {
		var err error
		if limit, err = checkLimit(*req.Limit); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	frames, err := matchCatalog(r.Context(), h.frames, req.Attributes, limit)
	if err != nil {
		if errors.Is(err, matcher.ErrInvalidLimit) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("catalog fetch failed")
		respondError(w, http.StatusInternalServerError, errTryAgain)
		return
	}

	respondJSON(w, http.StatusOK, MatchResponse{Frames: frames})
}
