package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/config"
)

var (
	// ErrInvalidImage is returned when the uploaded bytes cannot be decoded as an image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrNoFaceDetected is returned when the model reports that no face is visible.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrExtractionFailed is returned when every attempt failed and fallback is disabled.
	ErrExtractionFailed = errors.New("attribute extraction failed")
	// ErrTryOnUnsupported is returned by providers that cannot generate images.
	ErrTryOnUnsupported = errors.New("try-on not supported by provider")
	// errMalformedResponse marks a response that stayed unparsable after the repair loop.
	errMalformedResponse = errors.New("malformed model response")
)

// Provider defines the interface for AI analysis backends.
type Provider interface {
	Name() string
	AnalyzeFace(ctx context.Context, imageData []byte) (*FaceAnalysis, error)
	GenerateTryOn(ctx context.Context, imageData []byte, frame catalog.FrameProduct) ([]byte, error)

	// Usage tracking.
	GetUsage() Usage
	ResetUsage()
}

// FaceAnalysis is the raw answer of a model before canonicalisation.
type FaceAnalysis struct {
	FaceDetected      *bool    `json:"face_detected,omitempty"`
	FaceShape         string   `json:"face_shape"`
	RecommendedSizes  []string `json:"recommended_sizes"`
	RecommendedColors []string `json:"recommended_colors"`
	RecommendedStyles []string `json:"recommended_styles"`
	Confidence        float64  `json:"confidence"`
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens
type RequestPricing struct {
	Input  float64
	Output float64
}

// APIError is a non-2xx answer from a provider's API.
type APIError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 408 || e.StatusCode == 429 || e.StatusCode >= 500
}

// usageTracker is embedded by providers; calls may come from concurrent requests.
type usageTracker struct {
	mu    sync.Mutex
	usage Usage
}

func (u *usageTracker) track(inputTokens, outputTokens int64, pricing RequestPricing) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage.InputTokens += int(inputTokens)
	u.usage.OutputTokens += int(outputTokens)
	u.usage.TotalCost += float64(inputTokens) / 1_000_000 * pricing.Input
	u.usage.TotalCost += float64(outputTokens) / 1_000_000 * pricing.Output
}

func (u *usageTracker) GetUsage() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.usage
}

func (u *usageTracker) ResetUsage() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage = Usage{}
}

func pricingFor(cfg *config.Config, model string) RequestPricing {
	p := cfg.GetModelPricing(model)
	return RequestPricing{Input: p.Input, Output: p.Output}
}

// NewProvider builds the provider selected by AI_PROVIDER.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		return NewOpenAIProvider(cfg.OpenAI.Token,
			pricingFor(cfg, chatModel), pricingFor(cfg, string(imageModel))), nil
	case config.ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		return NewGeminiProvider(ctx, cfg.Gemini.APIKey,
			pricingFor(cfg, geminiModel), pricingFor(cfg, geminiImageModel))
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.Ollama.URL, cfg.Ollama.Model), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}
}
