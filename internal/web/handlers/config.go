package handlers

import (
	"net/http"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/config"
	"github.com/kozaktomas/frame-finder/internal/constants"
	"github.com/kozaktomas/frame-finder/internal/matcher"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Provider        string         `json:"provider"`
	Providers       []ProviderInfo `json:"providers"`
	TryOnAvailable  bool           `json:"try_on_available"`
	FallbackEnabled bool           `json:"fallback_enabled"`
	CatalogBackend  string         `json:"catalog_backend"`
	DefaultLimit    int            `json:"default_limit"`
	MaxLimit        int            `json:"max_limit"`
	MaxUploadBytes  int            `json:"max_upload_bytes"`
	Vocabulary      Vocabulary     `json:"vocabulary"`
	Factors         []FactorInfo   `json:"factors"`
}

// ProviderInfo represents information about an AI provider
type ProviderInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Vocabulary lists the accepted attribute values.
type Vocabulary struct {
	FaceShapes    []string `json:"face_shapes"`
	Sizes         []string `json:"sizes"`
	Colors        []string `json:"colors"`
	Styles        []string `json:"styles"`
	StockStatuses []string `json:"stock_statuses"`
}

// FactorInfo is one row of the scoring table. Variable factors report their
// cap as MaxWeight; Weight is then zero.
type FactorInfo struct {
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	Variable  bool    `json:"variable,omitempty"`
	MaxWeight float64 `json:"max_weight"`
}

// Get returns the available configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	providers := []ProviderInfo{
		{
			Name:      config.ProviderOpenAI,
			Available: h.config.OpenAI.Token != "",
		},
		{
			Name:      config.ProviderGemini,
			Available: h.config.Gemini.APIKey != "",
		},
		{
			Name:      config.ProviderOllama,
			Available: true, // Always available (local)
		},
	}

	var factors []FactorInfo
	for _, f := range matcher.Factors() {
		factors = append(factors, FactorInfo{
			Name:      f.Name,
			Weight:    f.Weight,
			Variable:  f.Amount != nil,
			MaxWeight: f.MaxPoints(),
		})
	}

	response := ConfigResponse{
		Provider:        h.config.AI.Provider,
		Providers:       providers,
		TryOnAvailable:  h.config.AI.Provider != config.ProviderOllama,
		FallbackEnabled: h.config.Extractor.Fallback,
		CatalogBackend:  h.config.Catalog.Backend,
		DefaultLimit:    matcher.DefaultLimit,
		MaxLimit:        constants.MaxMatchLimit,
		MaxUploadBytes:  constants.MaxUploadSize,
		Vocabulary: Vocabulary{
			FaceShapes:    catalog.Strings(catalog.FaceShapes),
			Sizes:         catalog.Strings(catalog.Sizes),
			Colors:        catalog.Strings(catalog.Colors),
			Styles:        catalog.Strings(catalog.Styles),
			StockStatuses: catalog.Strings(catalog.StockStatuses),
		},
		Factors: factors,
	}

	respondJSON(w, http.StatusOK, response)
}
