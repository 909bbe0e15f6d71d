package ai

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/config"
)

// Helper functions for creating test images

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// --- ResizeImage tests ---

func TestResizeImage(t *testing.T) {
	tests := []struct {
		name          string
		data          []byte
		maxSize       int
		wantW, wantH  int
	}{
		{"fits", encodeJPEG(createTestImage(100, 100, color.White)), 200, 100, 100},
		{"exactly max", encodeJPEG(createTestImage(500, 500, color.White)), 500, 500, 500},
		{"one side at max", encodeJPEG(createTestImage(500, 300, color.White)), 500, 500, 300},
		{"landscape", encodeJPEG(createTestImage(2000, 1000, color.White)), 500, 500, 250},
		{"portrait", encodeJPEG(createTestImage(1000, 2000, color.White)), 500, 250, 500},
		{"square", encodeJPEG(createTestImage(1000, 1000, color.White)), 200, 200, 200},
		{"four by three", encodeJPEG(createTestImage(1600, 1200, color.Gray{Y: 128})), 400, 400, 300},
		{"png input", encodePNG(createTestImage(100, 100, color.White)), 200, 100, 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resized, err := ResizeImage(tc.data, tc.maxSize)
			if err != nil {
				t.Fatalf("ResizeImage failed: %v", err)
			}

			decoded, format, err := image.Decode(bytes.NewReader(resized))
			if err != nil {
				t.Fatalf("failed to decode result: %v", err)
			}
			if format != "jpeg" {
				t.Errorf("expected jpeg output, got %s", format)
			}
			if got := decoded.Bounds(); got.Dx() != tc.wantW || got.Dy() != tc.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tc.wantW, tc.wantH, got.Dx(), got.Dy())
			}
		})
	}
}

func TestResizeImage_Rejects(t *testing.T) {
	for name, data := range map[string][]byte{
		"garbage": []byte("not an image"),
		"empty":   {},
	} {
		if _, err := ResizeImage(data, 500); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestResizeImage_FlattensTransparency(t *testing.T) {
	data := encodePNG(createTestImage(40, 40, color.Transparent))

	resized, err := ResizeImage(data, 800)
	if err != nil {
		t.Fatalf("ResizeImage failed: %v", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}

	r, g, b, _ := decoded.At(20, 20).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Errorf("transparent pixels should become white, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, limit  int
		wantW, wantH int
	}{
		{100, 50, 200, 100, 50},
		{3000, 10, 300, 300, 1},
		{10, 3000, 300, 1, 300},
		{640, 480, 0, 640, 480},
	}
	for _, tc := range tests {
		w, h := fitWithin(tc.w, tc.h, tc.limit)
		if w != tc.wantW || h != tc.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = %dx%d, want %dx%d", tc.w, tc.h, tc.limit, w, h, tc.wantW, tc.wantH)
		}
	}
}

// --- Usage and error tests ---

func TestUsageTracker_Track(t *testing.T) {
	var u usageTracker

	u.track(1_000_000, 500_000, RequestPricing{Input: 0.40, Output: 1.60})
	u.track(1_000, 0, RequestPricing{})

	got := u.GetUsage()
	if got.InputTokens != 1_001_000 {
		t.Errorf("expected 1001000 input tokens, got %d", got.InputTokens)
	}
	if got.OutputTokens != 500_000 {
		t.Errorf("expected 500000 output tokens, got %d", got.OutputTokens)
	}
	if math.Abs(got.TotalCost-1.20) > 1e-9 {
		t.Errorf("expected cost 1.20, got %f", got.TotalCost)
	}

	u.ResetUsage()
	if u.GetUsage() != (Usage{}) {
		t.Errorf("expected zero usage after reset, got %+v", u.GetUsage())
	}
}

func TestAPIError_Retryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{0, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tc := range tests {
		err := &APIError{Provider: "test", StatusCode: tc.status, Err: errors.New("boom")}
		if got := err.Retryable(); got != tc.want {
			t.Errorf("status %d: Retryable() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("quota exceeded")
	var err error = &APIError{Provider: "openai", StatusCode: 429, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected APIError to unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status in message, got %q", err.Error())
	}
}

// --- Prompt tests ---

func TestBuildFaceAnalysisPrompt(t *testing.T) {
	prompt := buildFaceAnalysisPrompt()

	if strings.Contains(prompt, "{{") {
		t.Error("prompt still contains placeholders")
	}
	for _, want := range []string{"oval", "heart", "Medium", "Tortoise", "Cat-eye", "face_detected"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to mention %q", want)
		}
	}
}

func TestBuildTryOnPrompt(t *testing.T) {
	prompt := buildTryOnPrompt(catalog.FrameProduct{
		Name:  "Harbor",
		Brand: "Lumen",
		Style: catalog.StyleAviator,
		Color: catalog.ColorGold,
		Size:  catalog.SizeLarge,
	})

	for _, want := range []string{"Harbor", "Lumen", "Aviator", "Gold", "Large"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to mention %q", want)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"chatter", `Sure! {"a":{"b":2}} hope this helps`, `{"a":{"b":2}}`},
		{"no object", "nothing here", "nothing here"},
		{"unterminated", `{"a":1`, `{"a":1`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractJSON(tc.input); got != tc.want {
				t.Errorf("extractJSON() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResizeImage_GIFInput(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 1200, 600), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode gif: %v", err)
	}

	resized, err := ResizeImage(buf.Bytes(), 800)
	if err != nil {
		t.Fatalf("ResizeImage failed: %v", err)
	}

	decoded, format, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg output, got %s", format)
	}
	if decoded.Bounds().Dx() != 800 || decoded.Bounds().Dy() != 400 {
		t.Errorf("expected 800x400, got %dx%d", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantName string
		wantErr  bool
	}{
		{
			name:     "openai",
			cfg:      config.Config{AI: config.AIConfig{Provider: config.ProviderOpenAI}, OpenAI: config.OpenAIConfig{Token: "sk-test"}},
			wantName: chatModel,
		},
		{
			name:    "openai without token",
			cfg:     config.Config{AI: config.AIConfig{Provider: config.ProviderOpenAI}},
			wantErr: true,
		},
		{
			name:    "gemini without key",
			cfg:     config.Config{AI: config.AIConfig{Provider: config.ProviderGemini}},
			wantErr: true,
		},
		{
			name:     "ollama",
			cfg:      config.Config{AI: config.AIConfig{Provider: config.ProviderOllama}, Ollama: config.OllamaConfig{Model: "llava:7b"}},
			wantName: "llava:7b",
		},
		{
			name:    "unknown",
			cfg:     config.Config{AI: config.AIConfig{Provider: "watson"}},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewProvider(context.Background(), &tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			if p.Name() != tc.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tc.wantName)
			}
		})
	}
}
