package handlers

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/frame-finder/internal/constants"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// TryOnJob renders one frame onto one uploaded face photo in the background.
// The generated image lives only in memory and is dropped with the job.
type TryOnJob struct {
	EventBroadcaster

	ID          string
	SessionID   string
	FrameID     string
	FrameName   string
	Provider    string
	Status      JobStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	input []byte
	image []byte
}

// TryOnJobView is the JSON shape of a job.
type TryOnJobView struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id,omitempty"`
	FrameID     string     `json:"frame_id"`
	FrameName   string     `json:"frame_name"`
	Provider    string     `json:"provider"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
}

// GetStatus returns the current job status (implements SSEJob).
func (j *TryOnJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// View returns a consistent copy of the job for serialization.
func (j *TryOnJob) View() TryOnJobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	v := TryOnJobView{
		ID:          j.ID,
		SessionID:   j.SessionID,
		FrameID:     j.FrameID,
		FrameName:   j.FrameName,
		Provider:    j.Provider,
		Status:      j.Status,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
	if j.Status == JobStatusCompleted {
		v.ImageURL = "/api/v1/tryon/" + j.ID + "/image"
	}
	return v
}

// Image returns the generated image, or nil until the job has completed.
func (j *TryOnJob) Image() []byte {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.image
}

// setStatus moves the job to status unless it already reached a terminal state.
// It reports whether the transition happened.
func (j *TryOnJob) setStatus(status JobStatus, errMsg string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if isJobTerminal(j.Status) {
		return false
	}
	j.Status = status
	j.Error = errMsg
	if isJobTerminal(status) {
		now := time.Now()
		j.CompletedAt = &now
		j.input = nil
	}
	return true
}

// complete stores the generated image and marks the job completed.
func (j *TryOnJob) complete(image []byte) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if isJobTerminal(j.Status) {
		return false
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.image = image
	j.input = nil
	return true
}

// Cancel cancels the try-on job. It reports false when the job had already finished.
func (j *TryOnJob) Cancel() bool {
	if !j.setStatus(JobStatusCancelled, "") {
		return false
	}
	j.EventBroadcaster.Cancel()
	return true
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// setCancel installs the function that aborts the job's work.
func (b *EventBroadcaster) setCancel(cancel context.CancelFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel = cancel
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// JobManager keeps try-on jobs in memory. Once more than limit jobs are held,
// the oldest finished ones are evicted.
type JobManager struct {
	jobs  map[string]*TryOnJob
	limit int
	mu    sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:  make(map[string]*TryOnJob),
		limit: constants.MaxTryOnJobs,
	}
}

// CreateJob registers a new pending try-on job.
func (m *JobManager) CreateJob(id, sessionID, frameID, frameName, provider string, input []byte) *TryOnJob {
	job := &TryOnJob{
		ID:        id,
		SessionID: sessionID,
		FrameID:   frameID,
		FrameName: frameName,
		Provider:  provider,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		input:     input,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.evictLocked()
	m.mu.Unlock()

	return job
}

// evictLocked drops the oldest finished jobs above the limit. Running jobs are never evicted.
func (m *JobManager) evictLocked() {
	excess := len(m.jobs) - m.limit
	if excess <= 0 {
		return
	}

	finished := make([]*TryOnJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		if isJobTerminal(job.GetStatus()) {
			finished = append(finished, job)
		}
	}
	slices.SortFunc(finished, func(a, b *TryOnJob) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	for _, job := range finished[:min(excess, len(finished))] {
		delete(m.jobs, job.ID)
	}
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *TryOnJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs, oldest first.
func (m *JobManager) ListJobs() []*TryOnJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*TryOnJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	slices.SortFunc(jobs, func(a, b *TryOnJob) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return jobs
}

// CancelAll cancels every unfinished job. Used on shutdown.
func (m *JobManager) CancelAll() int {
	n := 0
	for _, job := range m.ListJobs() {
		if job.Cancel() {
			n++
		}
	}
	return n
}
