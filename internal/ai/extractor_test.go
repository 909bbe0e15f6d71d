package ai

import (
	"context"
	"errors"
	"image"
	"image/color"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/frame-finder/internal/cache"
	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/config"
)

// fakeProvider answers AnalyzeFace from a scripted function.
type fakeProvider struct {
	usageTracker
	mu      sync.Mutex
	calls   int
	respond func(call int) (*FaceAnalysis, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) AnalyzeFace(ctx context.Context, _ []byte) (*FaceAnalysis, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.respond(call)
}

func (f *fakeProvider) GenerateTryOn(context.Context, []byte, catalog.FrameProduct) ([]byte, error) {
	return nil, ErrTryOnUnsupported
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func goodAnalysis() *FaceAnalysis {
	return &FaceAnalysis{
		FaceShape:         "Square",
		RecommendedSizes:  []string{"Medium"},
		RecommendedColors: []string{"tortoiseshell", "Gold"},
		RecommendedStyles: []string{"Round", "Oval"},
		Confidence:        0.9,
	}
}

func unavailable() error {
	return &APIError{Provider: "fake", StatusCode: 503, Err: errors.New("service unavailable")}
}

func testExtractorConfig() config.ExtractorConfig {
	return config.ExtractorConfig{
		MaxAttempts:     3,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      2 * time.Millisecond,
		Fallback:        true,
		BreakerFailures: 100,
		BreakerTimeout:  time.Minute,
	}
}

func testFace() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := range 64 {
		for y := range 64 {
			img.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), 90, 255})
		}
	}
	return encodeJPEG(img)
}

func TestExtractor_Success(t *testing.T) {
	p := &fakeProvider{respond: func(int) (*FaceAnalysis, error) { return goodAnalysis(), nil }}
	e := NewExtractor(p, nil, testExtractorConfig(), time.Hour)

	got, err := e.Extract(context.Background(), testFace())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got.Fallback || got.Cached {
		t.Errorf("expected fresh result, got fallback=%v cached=%v", got.Fallback, got.Cached)
	}
	if got.Provider != "fake" {
		t.Errorf("provider = %q, want fake", got.Provider)
	}
	if len(got.PHash) != 16 {
		t.Errorf("expected 16 char phash, got %q", got.PHash)
	}
	if got.Attributes.FaceShape != catalog.FaceShapeSquare {
		t.Errorf("face shape = %q, want square", got.Attributes.FaceShape)
	}
	wantColors := []catalog.Color{catalog.ColorTortoise, catalog.ColorGold}
	if !slices.Equal(got.Attributes.RecommendedColors, wantColors) {
		t.Errorf("colors = %v, want %v", got.Attributes.RecommendedColors, wantColors)
	}
}

func TestExtractor_CachesSuccessfulResults(t *testing.T) {
	p := &fakeProvider{respond: func(int) (*FaceAnalysis, error) { return goodAnalysis(), nil }}
	c := cache.NewMemoryCache()
	defer c.Close()
	e := NewExtractor(p, c, testExtractorConfig(), time.Hour)
	face := testFace()

	first, err := e.Extract(context.Background(), face)
	if err != nil {
		t.Fatalf("first Extract() error = %v", err)
	}
	second, err := e.Extract(context.Background(), face)
	if err != nil {
		t.Fatalf("second Extract() error = %v", err)
	}

	if p.callCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", p.callCount())
	}
	if !second.Cached {
		t.Error("expected second result to be cached")
	}
	if second.Attributes.FaceShape != first.Attributes.FaceShape ||
		!slices.Equal(second.Attributes.RecommendedStyles, first.Attributes.RecommendedStyles) {
		t.Errorf("cached attributes differ: %+v vs %+v", second.Attributes, first.Attributes)
	}
}

func TestExtractor_RetriesTransientErrors(t *testing.T) {
	p := &fakeProvider{respond: func(call int) (*FaceAnalysis, error) {
		if call < 3 {
			return nil, unavailable()
		}
		return goodAnalysis(), nil
	}}
	e := NewExtractor(p, nil, testExtractorConfig(), time.Hour)

	got, err := e.Extract(context.Background(), testFace())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Fallback {
		t.Error("expected real result after retries")
	}
	if p.callCount() != 3 {
		t.Errorf("expected 3 calls, got %d", p.callCount())
	}
}

func TestExtractor_FallbackAfterExhaustedRetries(t *testing.T) {
	p := &fakeProvider{respond: func(int) (*FaceAnalysis, error) { return nil, unavailable() }}
	c := cache.NewMemoryCache()
	defer c.Close()
	e := NewExtractor(p, c, testExtractorConfig(), time.Hour)
	face := testFace()

	got, err := e.Extract(context.Background(), face)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !got.Fallback {
		t.Fatal("expected fallback result")
	}
	if p.callCount() != 3 {
		t.Errorf("expected 3 attempts, got %d", p.callCount())
	}

	want := catalog.FallbackAttributes()
	if got.Attributes.FaceShape != want.FaceShape ||
		!slices.Equal(got.Attributes.RecommendedSizes, want.RecommendedSizes) ||
		!slices.Equal(got.Attributes.RecommendedColors, want.RecommendedColors) ||
		!slices.Equal(got.Attributes.RecommendedStyles, want.RecommendedStyles) ||
		got.Attributes.Confidence != 0 {
		t.Errorf("unexpected fallback attributes %+v", got.Attributes)
	}

	// Fallback results are not cached, so the next call reaches the provider again.
	if _, err := e.Extract(context.Background(), face); err != nil {
		t.Fatalf("second Extract() error = %v", err)
	}
	if p.callCount() != 6 {
		t.Errorf("expected 6 attempts in total, got %d", p.callCount())
	}
}

func TestExtractor_FallbackDisabled(t *testing.T) {
	p := &fakeProvider{respond: func(int) (*FaceAnalysis, error) { return nil, unavailable() }}
	cfg := testExtractorConfig()
	cfg.Fallback = false
	e := NewExtractor(p, nil, cfg, time.Hour)

	_, err := e.Extract(context.Background(), testFace())
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 503 {
		t.Errorf("expected wrapped 503 APIError, got %v", err)
	}
}

func TestExtractor_NonRetryableErrorFallsBackImmediately(t *testing.T) {
	p := &fakeProvider{respond: func(int) (*FaceAnalysis, error) {
		return nil, &APIError{Provider: "fake", StatusCode: 401, Err: errors.New("bad key")}
	}}
	e := NewExtractor(p, nil, testExtractorConfig(), time.Hour)

	got, err := e.Extract(context.Background(), testFace())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !got.Fallback {
		t.Error("expected fallback")
	}
	if p.callCount() != 1 {
		t.Errorf("expected a single attempt, got %d", p.callCount())
	}
}

func TestExtractor_InvalidImage(t *testing.T) {
	p := &fakeProvider{respond: func(int) (*FaceAnalysis, error) { return goodAnalysis(), nil }}
	e := NewExtractor(p, nil, testExtractorConfig(), time.Hour)

	_, err := e.Extract(context.Background(), []byte("definitely not an image"))
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
	if p.callCount() != 0 {
		t.Errorf("expected no provider calls, got %d", p.callCount())
	}
}

func TestExtractor_NoFaceDetected(t *testing.T) {
	noFace := false
	p := &fakeProvider{respond: func(int) (*FaceAnalysis, error) {
		return &FaceAnalysis{FaceDetected: &noFace}, nil
	}}
	e := NewExtractor(p, nil, testExtractorConfig(), time.Hour)

	_, err := e.Extract(context.Background(), testFace())
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected, got %v", err)
	}
	if p.callCount() != 1 {
		t.Errorf("expected 1 call, got %d", p.callCount())
	}
}

func TestExtractor_CancelledContextNeverFallsBack(t *testing.T) {
	p := &fakeProvider{respond: func(int) (*FaceAnalysis, error) { return goodAnalysis(), nil }}
	e := NewExtractor(p, nil, testExtractorConfig(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, testFace())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.callCount() != 0 {
		t.Errorf("expected no provider calls, got %d", p.callCount())
	}
}

func TestExtractor_CircuitBreakerOpens(t *testing.T) {
	p := &fakeProvider{respond: func(int) (*FaceAnalysis, error) { return nil, unavailable() }}
	cfg := testExtractorConfig()
	cfg.MaxAttempts = 1
	cfg.BreakerFailures = 2
	e := NewExtractor(p, nil, cfg, time.Hour)
	face := testFace()

	for i := range 4 {
		got, err := e.Extract(context.Background(), face)
		if err != nil {
			t.Fatalf("Extract() #%d error = %v", i, err)
		}
		if !got.Fallback {
			t.Errorf("Extract() #%d expected fallback", i)
		}
	}

	if p.callCount() != 2 {
		t.Errorf("expected open breaker to stop calls after 2 failures, got %d calls", p.callCount())
	}
}

func TestExtractor_ClientErrorsDoNotTripBreaker(t *testing.T) {
	p := &fakeProvider{respond: func(int) (*FaceAnalysis, error) {
		return nil, ErrInvalidImage
	}}
	cfg := testExtractorConfig()
	cfg.BreakerFailures = 1
	e := NewExtractor(p, nil, cfg, time.Hour)

	for range 3 {
		if _, err := e.Extract(context.Background(), testFace()); !errors.Is(err, ErrInvalidImage) {
			t.Fatalf("expected ErrInvalidImage, got %v", err)
		}
	}
	if p.callCount() != 3 {
		t.Errorf("expected every call to reach the provider, got %d", p.callCount())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", unavailable(), true},
		{"rate limited", &APIError{StatusCode: 429}, true},
		{"unauthorized", &APIError{StatusCode: 401}, false},
		{"malformed", errMalformedResponse, true},
		{"network", errors.New("connection reset"), true},
		{"invalid image", ErrInvalidImage, false},
		{"no face", ErrNoFaceDetected, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryable(tc.err); got != tc.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
