package ai

import (
	_ "embed"
	"strings"

	"github.com/kozaktomas/frame-finder/internal/catalog"
)

//go:embed prompts/face_analysis.txt
var faceAnalysisPrompt string

//go:embed prompts/try_on.txt
var tryOnPrompt string

const jsonRepairMessage = "JSON parse error: %v. Please fix the JSON and try again. Remember to escape quotes inside strings with backslash."

// buildFaceAnalysisPrompt fills the vocabularies into the embedded analysis prompt.
// This is shared across all AI providers.
func buildFaceAnalysisPrompt() string {
	return strings.NewReplacer(
		"{{FACE_SHAPES}}", strings.Join(catalog.Strings(catalog.FaceShapes), ", "),
		"{{SIZES}}", strings.Join(catalog.Strings(catalog.Sizes), ", "),
		"{{COLORS}}", strings.Join(catalog.Strings(catalog.Colors), ", "),
		"{{STYLES}}", strings.Join(catalog.Strings(catalog.Styles), ", "),
	).Replace(faceAnalysisPrompt)
}

// buildTryOnPrompt describes the frame to draw onto the customer's photo.
func buildTryOnPrompt(frame catalog.FrameProduct) string {
	return strings.NewReplacer(
		"{{NAME}}", frame.Name,
		"{{BRAND}}", frame.Brand,
		"{{STYLE}}", string(frame.Style),
		"{{COLOR}}", string(frame.Color),
		"{{SIZE}}", string(frame.Size),
	).Replace(tryOnPrompt)
}

// extractJSON attempts to extract JSON from a response that may contain extra text
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return content
	}

	// Find matching closing brace
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	return content[start:]
}

// faceAnalysisSchema is the JSON schema of FaceAnalysis with the vocabularies
// as enums. Providers with structured output use it to constrain the answer.
func faceAnalysisSchema() map[string]any {
	list := func(values []string) map[string]any {
		return map[string]any{"type": "array", "items": map[string]any{"type": "string", "enum": values}}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"face_detected":      map[string]any{"type": "boolean"},
			"face_shape":         map[string]any{"type": "string", "enum": catalog.Strings(catalog.FaceShapes)},
			"recommended_sizes":  list(catalog.Strings(catalog.Sizes)),
			"recommended_colors": list(catalog.Strings(catalog.Colors)),
			"recommended_styles": list(catalog.Strings(catalog.Styles)),
			"confidence":         map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
		"required": []string{"face_detected", "face_shape", "recommended_sizes", "recommended_colors", "recommended_styles", "confidence"},
	}
}
