package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/frame-finder/internal/ai"
	"github.com/kozaktomas/frame-finder/internal/cache"
	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/config"
)

// fakeProvider is an ai.Provider with canned answers.
type fakeProvider struct {
	analysis   *ai.FaceAnalysis
	analyzeErr error
	tryOn      []byte
	tryOnErr   error
	// release, when set, blocks GenerateTryOn until closed or the context ends.
	release chan struct{}

	analyzeCalls atomic.Int32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) AnalyzeFace(context.Context, []byte) (*ai.FaceAnalysis, error) {
	f.analyzeCalls.Add(1)
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.analysis, nil
}

func (f *fakeProvider) GenerateTryOn(ctx context.Context, _ []byte, _ catalog.FrameProduct) ([]byte, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.tryOn, f.tryOnErr
}

func (f *fakeProvider) GetUsage() ai.Usage { return ai.Usage{} }
func (f *fakeProvider) ResetUsage()        {}

// roundFaceAnalysis is a typical model answer for a round face.
func roundFaceAnalysis() *ai.FaceAnalysis {
	return &ai.FaceAnalysis{
		FaceShape:         "Round",
		RecommendedSizes:  []string{"medium"},
		RecommendedColors: []string{"black"},
		RecommendedStyles: []string{"rectangle"},
		Confidence:        0.9,
	}
}

// newTestExtractor wraps p with a single attempt and an in-memory cache.
func newTestExtractor(t *testing.T, p ai.Provider, fallback bool) *ai.Extractor {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })
	return ai.NewExtractor(p, c, config.ExtractorConfig{
		MaxAttempts:     1,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      time.Millisecond,
		Fallback:        fallback,
		BreakerFailures: 100,
		BreakerTimeout:  time.Second,
	}, time.Hour)
}

// testImage returns a small PNG with a gradient so it hashes like a photo.
func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8((x + y) * 2), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart/form-data request with an optional image part.
func multipartRequest(t *testing.T, path string, fields map[string]string, imageData []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if imageData != nil {
		part, err := mw.CreateFormFile("image", "face.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(imageData); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// testFrames is a small catalog: A suits round faces, B is inactive, C is close behind A.
func testFrames() []catalog.FrameProduct {
	return []catalog.FrameProduct{
		{
			ID: "A", Name: "Metro", Brand: "Acme", PriceCents: 12900,
			Style: catalog.StyleRectangle, Color: catalog.ColorBlack, Size: catalog.SizeMedium,
			SuitableFaceShapes: []catalog.FaceShape{catalog.FaceShapeRound},
			StockStatus:        catalog.StockInStock, StockCount: catalog.IntPtr(25), IsActive: true,
		},
		{
			ID: "B", Name: "Retired", Brand: "Acme", PriceCents: 9900,
			Style: catalog.StyleRectangle, Color: catalog.ColorBlack, Size: catalog.SizeMedium,
			SuitableFaceShapes: []catalog.FaceShape{catalog.FaceShapeRound},
			StockStatus:        catalog.StockInStock, StockCount: catalog.IntPtr(100), IsActive: false,
		},
		{
			ID: "C", Name: "Harbor", Brand: "Lumen", PriceCents: 15900,
			Style: catalog.StyleRectangle, Color: catalog.ColorBlack, Size: catalog.SizeMedium,
			SuitableFaceShapes: []catalog.FaceShape{catalog.FaceShapeRound},
			StockStatus:        catalog.StockLowStock, StockCount: catalog.IntPtr(12), IsActive: true,
		},
		{
			ID: "D", Name: "Aviator Gold", Brand: "Lumen", PriceCents: 18900,
			Style: catalog.StyleAviator, Color: catalog.ColorGold, Size: catalog.SizeLarge,
			SuitableFaceShapes: []catalog.FaceShape{catalog.FaceShapeOval},
			StockStatus:        catalog.StockOutOfStock, IsActive: true,
		},
	}
}

func frameIDs(frames []catalog.FrameProduct) []string {
	ids := make([]string, len(frames))
	for i, f := range frames {
		ids[i] = f.ID
	}
	return ids
}
