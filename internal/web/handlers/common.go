package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/frame-finder/internal/constants"
	"github.com/kozaktomas/frame-finder/internal/matcher"
	"github.com/kozaktomas/frame-finder/internal/validation"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// errTryAgain is the generic message for upstream and storage failures; details only go to the log.
const errTryAgain = "temporarily unavailable, please try again"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondValidationError sends a 400 with per-field details when err is a validation error.
func respondValidationError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
		return
	}
	respondError(w, http.StatusBadRequest, err.Error())
}

// parseLimit reads an optional result limit. Empty means matcher.DefaultLimit.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return matcher.DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, matcher.ErrInvalidLimit
	}
	return checkLimit(n)
}

// checkLimit bounds a limit the caller supplied explicitly. Zero is an error
// like any other non-positive value; only an absent limit gets the default.
func checkLimit(n int) (int, error) {
	switch {
	case n <= 0:
		return 0, matcher.ErrInvalidLimit
	case n > constants.MaxMatchLimit:
		return 0, fmt.Errorf("%w: at most %d frames per request", matcher.ErrInvalidLimit, constants.MaxMatchLimit)
	}
	return n, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
