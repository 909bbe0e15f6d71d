// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/database"
)

// MockFrameWriter is a mock implementation of database.FrameWriter.
// Frames keep the order in which they were first added.
type MockFrameWriter struct {
	mu     sync.RWMutex
	frames []catalog.FrameProduct

	// Track calls
	UpsertCalls    [][]catalog.FrameProduct
	SetActiveCalls []SetActiveCall

	// Error injection
	ListActiveError error
	ListAllError    error
	GetError        error
	UpsertError     error
	SetActiveError  error
}

// SetActiveCall tracks a SetActive call
type SetActiveCall struct {
	ID     string
	Active bool
}

// NewMockFrameWriter creates a new mock frame writer seeded with frames
func NewMockFrameWriter(frames ...catalog.FrameProduct) *MockFrameWriter {
	m := &MockFrameWriter{}
	m.AddFrames(frames...)
	return m
}

// AddFrames adds or replaces frames in the mock store
func (m *MockFrameWriter) AddFrames(frames ...catalog.FrameProduct) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range frames {
		f = cloneFrame(f)
		if i := m.index(f.ID); i >= 0 {
			m.frames[i] = f
		} else {
			m.frames = append(m.frames, f)
		}
	}
}

func (m *MockFrameWriter) index(id string) int {
	return slices.IndexFunc(m.frames, func(f catalog.FrameProduct) bool { return f.ID == id })
}

func cloneFrame(f catalog.FrameProduct) catalog.FrameProduct {
	f.SuitableFaceShapes = slices.Clone(f.SuitableFaceShapes)
	if f.StockCount != nil {
		f.StockCount = catalog.IntPtr(*f.StockCount)
	}
	return f
}

// ListActive returns active frames in insertion order
func (m *MockFrameWriter) ListActive(ctx context.Context) ([]catalog.FrameProduct, error) {
	if m.ListActiveError != nil {
		return nil, m.ListActiveError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []catalog.FrameProduct{}
	for _, f := range m.frames {
		if f.IsActive {
			out = append(out, cloneFrame(f))
		}
	}
	return out, nil
}

// ListAll returns every frame in insertion order
func (m *MockFrameWriter) ListAll(ctx context.Context) ([]catalog.FrameProduct, error) {
	if m.ListAllError != nil {
		return nil, m.ListAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]catalog.FrameProduct, 0, len(m.frames))
	for _, f := range m.frames {
		out = append(out, cloneFrame(f))
	}
	return out, nil
}

// Get retrieves a frame by ID
func (m *MockFrameWriter) Get(ctx context.Context, id string) (*catalog.FrameProduct, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.index(id); i >= 0 {
		f := cloneFrame(m.frames[i])
		return &f, nil
	}
	return nil, nil
}

// Upsert stores frames
func (m *MockFrameWriter) Upsert(ctx context.Context, frames []catalog.FrameProduct) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	m.UpsertCalls = append(m.UpsertCalls, slices.Clone(frames))
	m.mu.Unlock()
	m.AddFrames(frames...)
	return nil
}

// SetActive toggles a frame's visibility
func (m *MockFrameWriter) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	if m.SetActiveError != nil {
		return false, m.SetActiveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetActiveCalls = append(m.SetActiveCalls, SetActiveCall{ID: id, Active: active})

	i := m.index(id)
	if i < 0 {
		return false, nil
	}
	m.frames[i].IsActive = active
	return true, nil
}

// MockAnalysisWriter is a mock implementation of database.AnalysisWriter
type MockAnalysisWriter struct {
	mu       sync.RWMutex
	analyses []database.StoredAnalysis
	nextID   int

	// Error injection
	SaveError error
	GetError  error
	ListError error
}

// NewMockAnalysisWriter creates a new mock analysis writer
func NewMockAnalysisWriter() *MockAnalysisWriter {
	return &MockAnalysisWriter{}
}

// Save appends an analysis
func (m *MockAnalysisWriter) Save(ctx context.Context, a *database.StoredAnalysis) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		m.nextID++
		a.ID = fmt.Sprintf("analysis-%d", m.nextID)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	stored := *a
	stored.Attributes = a.Attributes.Clone()
	m.analyses = append(m.analyses, stored)
	return nil
}

// Get retrieves an analysis by ID
func (m *MockAnalysisWriter) Get(ctx context.Context, id string) (*database.StoredAnalysis, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.analyses {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

// ListBySession returns a session's analyses in save order
func (m *MockAnalysisWriter) ListBySession(ctx context.Context, sessionID string) ([]database.StoredAnalysis, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []database.StoredAnalysis{}
	for _, a := range m.analyses {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// All returns every saved analysis
func (m *MockAnalysisWriter) All() []database.StoredAnalysis {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.analyses)
}

// MockTryOnWriter is a mock implementation of database.TryOnWriter
type MockTryOnWriter struct {
	mu     sync.RWMutex
	tryOns map[string]*database.StoredTryOn
	nextID int

	// Error injection
	CreateError error
	FinishError error
	GetError    error
}

// NewMockTryOnWriter creates a new mock try-on writer
func NewMockTryOnWriter() *MockTryOnWriter {
	return &MockTryOnWriter{tryOns: make(map[string]*database.StoredTryOn)}
}

// Create stores a try-on
func (m *MockTryOnWriter) Create(ctx context.Context, t *database.StoredTryOn) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		m.nextID++
		t.ID = fmt.Sprintf("tryon-%d", m.nextID)
	}
	if t.Status == "" {
		t.Status = database.TryOnPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	stored := *t
	m.tryOns[t.ID] = &stored
	return nil
}

// Finish records the final status of a try-on
func (m *MockTryOnWriter) Finish(ctx context.Context, id string, status database.TryOnStatus, errMsg string) error {
	if m.FinishError != nil {
		return m.FinishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tryOns[id]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	t.Status = status
	t.Error = errMsg
	t.CompletedAt = &now
	return nil
}

// Get retrieves a try-on by ID
func (m *MockTryOnWriter) Get(ctx context.Context, id string) (*database.StoredTryOn, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tryOns[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

// Compile-time interface checks
var (
	_ database.FrameWriter    = (*MockFrameWriter)(nil)
	_ database.AnalysisWriter = (*MockAnalysisWriter)(nil)
	_ database.TryOnWriter    = (*MockTryOnWriter)(nil)
)
