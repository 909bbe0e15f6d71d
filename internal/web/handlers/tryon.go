package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/frame-finder/internal/ai"
	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/database"
	"github.com/kozaktomas/frame-finder/internal/logging"
	"github.com/kozaktomas/frame-finder/internal/metrics"
)

const (
	// tryOnTimeout bounds a single image generation call.
	tryOnTimeout = 3 * time.Minute
	// recordTimeout bounds the write that mirrors the final job state into try_ons.
	recordTimeout = 5 * time.Second
)

// TryOnHandler runs virtual try-on jobs.
type TryOnHandler struct {
	provider   ai.Provider
	frames     database.FrameReader
	tryOns     database.TryOnWriter
	jobManager *JobManager
	timeout    time.Duration
}

// NewTryOnHandler creates a new try-on handler.
func NewTryOnHandler(provider ai.Provider, frames database.FrameReader, tryOns database.TryOnWriter, jm *JobManager) *TryOnHandler {
	return &TryOnHandler{
		provider:   provider,
		frames:     frames,
		tryOns:     tryOns,
		jobManager: jm,
		timeout:    tryOnTimeout,
	}
}

// Start handles POST /tryon: multipart image plus frame_id. Responds 202 with the job.
func (h *TryOnHandler) Start(w http.ResponseWriter, r *http.Request) {
	data, form, ok := readUpload(w, r)
	if !ok {
		return
	}
	if form.FrameID == "" {
		respondError(w, http.StatusBadRequest, "frame_id is required")
		return
	}

	ctx := r.Context()
	log := logging.Ctx(ctx)

	frame, err := h.frames.Get(ctx, form.FrameID)
	if err != nil {
		log.Error().Err(err).Str("frame_id", sanitizeForLog(form.FrameID)).Msg("failed to get frame")
		respondError(w, http.StatusInternalServerError, errTryAgain)
		return
	}
	if frame == nil || !frame.IsActive {
		respondError(w, http.StatusNotFound, "frame not found")
		return
	}

	record := &database.StoredTryOn{
		ID:        uuid.NewString(),
		SessionID: form.SessionID,
		FrameID:   frame.ID,
		Provider:  h.provider.Name(),
		Status:    database.TryOnPending,
	}
	if err := h.tryOns.Create(ctx, record); err != nil {
		log.Error().Err(err).Msg("failed to record try-on")
		respondError(w, http.StatusInternalServerError, errTryAgain)
		return
	}

	job := h.jobManager.CreateJob(record.ID, form.SessionID, frame.ID, frame.Name, h.provider.Name(), data)
	go h.runTryOnJob(job, *frame)

	log.Info().Str("job_id", job.ID).Str("frame_id", frame.ID).Msg("try-on job started")
	respondJSON(w, http.StatusAccepted, job.View())
}

// Status returns the status of a try-on job.
func (h *TryOnHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	respondJSON(w, http.StatusOK, job.View())
}

// Events streams job progress as server-sent events.
func (h *TryOnHandler) Events(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	streamJob(w, r, job, func() any { return job.View() })
}

// Image serves the generated try-on image once the job has completed.
func (h *TryOnHandler) Image(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}

	img := job.Image()
	if img == nil {
		respondError(w, http.StatusConflict, "try-on image not ready")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(img))
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// Cancel handles DELETE /tryon/{jobId}: a running job is cancelled, and the job is dropped from memory.
func (h *TryOnHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}

	cancelled := job.Cancel()
	h.jobManager.DeleteJob(job.ID)
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func (h *TryOnHandler) lookup(w http.ResponseWriter, r *http.Request) *TryOnJob {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return nil
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return job
}

// runTryOnJob runs the try-on job in the background.
func (h *TryOnHandler) runTryOnJob(job *TryOnJob, frame catalog.FrameProduct) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	job.setCancel(cancel)
	defer cancel()

	log := logging.Logger().With().Str("job_id", job.ID).Str("frame_id", frame.ID).Logger()

	if !job.setStatus(JobStatusRunning, "") {
		// Cancelled before it started.
		h.finish(job, log)
		return
	}
	metrics.TryOnJobsActive.Inc()
	defer metrics.TryOnJobsActive.Dec()
	job.SendEvent(JobEvent{Type: "started", Message: "Generating try-on image"})

	job.mu.RLock()
	input := job.input
	job.mu.RUnlock()

	img, err := h.provider.GenerateTryOn(ctx, input, frame)
	switch {
	case err == nil && len(img) == 0:
		h.failJob(job, "provider returned no image")
	case err == nil:
		if job.complete(img) {
			job.SendEvent(JobEvent{Type: "completed", Message: "Try-on image ready", Data: job.View()})
		}
	case errors.Is(err, context.Canceled):
		// No-op when the API already cancelled the job.
		job.Cancel()
	case errors.Is(err, ai.ErrTryOnUnsupported):
		h.failJob(job, "the configured AI provider cannot generate try-on images")
	case errors.Is(err, context.DeadlineExceeded):
		h.failJob(job, "try-on generation timed out")
	default:
		log.Error().Err(err).Msg("try-on generation failed")
		h.failJob(job, "try-on generation failed")
	}

	h.finish(job, log)
}

// failJob marks the job failed and notifies listeners.
func (h *TryOnHandler) failJob(job *TryOnJob, message string) {
	if job.setStatus(JobStatusFailed, message) {
		job.SendEvent(JobEvent{Type: "job_error", Message: message})
	}
}

// finish mirrors the terminal state into try_ons and metrics.
func (h *TryOnHandler) finish(job *TryOnJob, log zerolog.Logger) {
	view := job.View()
	metrics.TryOnJobs.WithLabelValues(string(view.Status)).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := h.tryOns.Finish(ctx, job.ID, database.TryOnStatus(view.Status), view.Error); err != nil {
		log.Warn().Err(err).Msg("failed to record try-on status")
	}
	log.Info().Str("status", string(view.Status)).Msg("try-on job finished")
}
