package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/constants"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2-vision:11b"

	// Local models drift more often than hosted ones, so they get more repair rounds.
	ollamaAttempts = 5
	// ollamaMaxBody caps how much of an error or chat response is read.
	ollamaMaxBody = 1 << 20
)

// OllamaProvider talks to a local Ollama server. It only reads photos; try-on
// rendering needs an image model.
type OllamaProvider struct {
	usageTracker
	endpoint string
	model    string
	client   *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaProvider{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/api/chat",
		model:    model,
		client:   &http.Client{},
	}
}

func (p *OllamaProvider) Name() string {
	return p.model
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	// Format holds a JSON schema; Ollama then samples only matching output.
	Format  json.RawMessage `json:"format,omitempty"`
	Options ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Message         ollamaMessage `json:"message"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

func (p *OllamaProvider) AnalyzeFace(ctx context.Context, imageData []byte) (*FaceAnalysis, error) {
	photo, err := ResizeImage(imageData, constants.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	schema, err := json.Marshal(faceAnalysisSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	conversation := []ollamaMessage{
		{Role: "system", Content: buildFaceAnalysisPrompt()},
		{Role: "user", Content: "Analyze this face.", Images: []string{base64.StdEncoding.EncodeToString(photo)}},
	}

	var parseErr error
	var reply string
	for range ollamaAttempts {
		resp, err := p.chat(ctx, conversation, schema)
		if err != nil {
			return nil, err
		}
		// Local inference is free; tokens only feed the usage stats.
		p.track(int64(resp.PromptEvalCount), int64(resp.EvalCount), RequestPricing{})

		reply = resp.Message.Content
		var analysis FaceAnalysis
		if parseErr = json.Unmarshal([]byte(extractJSON(reply)), &analysis); parseErr == nil {
			return &analysis, nil
		}

		conversation = append(conversation,
			ollamaMessage{Role: "assistant", Content: reply},
			ollamaMessage{Role: "user", Content: fmt.Sprintf(jsonRepairMessage+" Output ONLY valid JSON, no other text.", parseErr)},
		)
	}

	return nil, fmt.Errorf("%w: no valid analysis JSON after %d attempts: %w (last response: %s)",
		errMalformedResponse, ollamaAttempts, parseErr, reply)
}

func (p *OllamaProvider) GenerateTryOn(context.Context, []byte, catalog.FrameProduct) ([]byte, error) {
	return nil, ErrTryOnUnsupported
}

func (p *OllamaProvider) chat(ctx context.Context, messages []ollamaMessage, schema json.RawMessage) (*ollamaResponse, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:    p.model,
		Messages: messages,
		Format:   schema,
		Options:  ollamaOptions{NumPredict: 500},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()
	body := io.LimitReader(resp.Body, ollamaMaxBody)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(body)
		return nil, &APIError{
			Provider:   "ollama",
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(msg))),
		}
	}

	var out ollamaResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", errMalformedResponse, err)
	}
	return &out, nil
}
