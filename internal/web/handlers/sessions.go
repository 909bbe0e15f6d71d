package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/database"
	"github.com/kozaktomas/frame-finder/internal/logging"
)

// SessionsHandler exposes the analysis log of a session.
type SessionsHandler struct {
	analyses database.AnalysisReader
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(analyses database.AnalysisReader) *SessionsHandler {
	return &SessionsHandler{analyses: analyses}
}

// AnalysisResponse is one analysis log entry.
type AnalysisResponse struct {
	ID         string                   `json:"id"`
	SessionID  string                   `json:"session_id"`
	Provider   string                   `json:"provider"`
	Attributes catalog.FacialAttributes `json:"attributes"`
	Fallback   bool                     `json:"fallback"`
	ImagePHash string                   `json:"image_phash,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
}

func analysisToResponse(a database.StoredAnalysis) AnalysisResponse {
	return AnalysisResponse{
		ID:         a.ID,
		SessionID:  a.SessionID,
		Provider:   a.Provider,
		Attributes: a.Attributes,
		Fallback:   a.Fallback,
		ImagePHash: a.ImagePHash,
		CreatedAt:  a.CreatedAt,
	}
}

// Analyses returns every analysis recorded for the session, oldest first.
// An unknown session yields an empty list.
func (h *SessionsHandler) Analyses(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing session ID")
		return
	}

	analyses, err := h.analyses.ListBySession(r.Context(), sessionID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("session_id", sanitizeForLog(sessionID)).Msg("failed to list analyses")
		respondError(w, http.StatusInternalServerError, errTryAgain)
		return
	}

	out := make([]AnalysisResponse, len(analyses))
	for i, a := range analyses {
		out[i] = analysisToResponse(a)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"analyses":   out,
	})
}
