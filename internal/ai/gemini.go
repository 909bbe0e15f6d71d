package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/constants"
)

const (
	geminiModel      = "gemini-2.5-flash"
	geminiImageModel = "gemini-2.5-flash-image"
)

type GeminiProvider struct {
	usageTracker
	client       *genai.Client
	chatPricing  RequestPricing // per 1M tokens
	imagePricing RequestPricing // per 1M tokens
}

func NewGeminiProvider(ctx context.Context, apiKey string, chatPricing, imagePricing RequestPricing) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:       client,
		chatPricing:  chatPricing,
		imagePricing: imagePricing,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

func (p *GeminiProvider) trackMetadata(meta *genai.GenerateContentResponseUsageMetadata, pricing RequestPricing) {
	if meta == nil {
		return
	}
	p.track(int64(meta.PromptTokenCount), int64(meta.CandidatesTokenCount), pricing)
}

func (p *GeminiProvider) AnalyzeFace(ctx context.Context, imageData []byte) (*FaceAnalysis, error) {
	const maxRetries = 5

	// Resize image to max 800px to save costs
	resizedData, err := ResizeImage(imageData, constants.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildFaceAnalysisPrompt()},
				{InlineData: &genai.Blob{Data: resizedData, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, wrapGeminiError(err)
		}

		p.trackMetadata(result.UsageMetadata, p.chatPricing)

		content := result.Text()
		if content == "" {
			return nil, &APIError{Provider: "gemini", Err: errors.New("no response from Gemini")}
		}
		lastResponse = content

		var analysis FaceAnalysis
		if err := json.Unmarshal([]byte(content), &analysis); err != nil {
			lastError = err

			// Add model response and error feedback to contents for retry
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: fmt.Sprintf(jsonRepairMessage, err)}},
				},
			)
			continue
		}

		return &analysis, nil
	}

	return nil, fmt.Errorf("%w: failed to parse analysis JSON after %d attempts: %w (last response: %s)",
		errMalformedResponse, maxRetries, lastError, lastResponse)
}

// GenerateTryOn asks the image model to draw the frame onto the customer's photo.
func (p *GeminiProvider) GenerateTryOn(ctx context.Context, imageData []byte, frame catalog.FrameProduct) ([]byte, error) {
	resizedData, err := ResizeImage(imageData, constants.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildTryOnPrompt(frame)},
				{InlineData: &genai.Blob{Data: resizedData, MIMEType: "image/jpeg"}},
			},
		},
	}

	result, err := p.client.Models.GenerateContent(ctx, geminiImageModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, wrapGeminiError(err)
	}

	p.trackMetadata(result.UsageMetadata, p.imagePricing)

	for _, cand := range result.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, errors.New("no image in Gemini response")
}

// wrapGeminiError converts SDK status errors into APIError so callers can classify them.
func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "gemini", StatusCode: apiErr.Code, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &APIError{Provider: "gemini", StatusCode: apiErrPtr.Code, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &APIError{Provider: "gemini", Err: err}
}
