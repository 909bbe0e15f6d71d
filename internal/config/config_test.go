package config

import (
	"strings"
	"testing"
	"time"
)

func TestGetModelPricing_KnownModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("gpt-4.1-mini")

	if pricing.Input != 0.40 {
		t.Errorf("expected input price 0.40, got %f", pricing.Input)
	}
	if pricing.Output != 1.60 {
		t.Errorf("expected output price 1.60, got %f", pricing.Output)
	}
}

func TestGetModelPricing_GeminiModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("gemini-2.5-flash")

	if pricing.Input != 0.30 {
		t.Errorf("expected gemini input 0.30, got %f", pricing.Input)
	}
	if pricing.Output != 2.50 {
		t.Errorf("expected gemini output 2.50, got %f", pricing.Output)
	}
}

func TestGetModelPricing_UnknownModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("unknown-model-xyz")

	if pricing.Input != 0 || pricing.Output != 0 {
		t.Errorf("expected zero pricing for unknown model, got %+v", pricing)
	}
}

func TestLoad_PricesLoaded(t *testing.T) {
	cfg := Load()

	for _, model := range []string{"gpt-4.1-mini", "gpt-image-1", "gemini-2.5-flash", "gemini-2.5-flash-image", "llama3.2-vision:11b"} {
		if _, ok := cfg.Prices.Models[model]; !ok {
			t.Errorf("expected model '%s' to be in prices", model)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"AI_PROVIDER", "EXTRACT_MAX_ATTEMPTS", "EXTRACT_INITIAL_BACKOFF", "EXTRACT_FALLBACK",
		"ANALYSIS_CACHE_TTL", "CATALOG_BACKEND", "WEB_PORT", "LOG_LEVEL", "WEB_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.AI.Provider != ProviderOpenAI {
		t.Errorf("expected default provider openai, got %q", cfg.AI.Provider)
	}
	if cfg.Extractor.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Extractor.MaxAttempts)
	}
	if cfg.Extractor.InitialBackoff != 500*time.Millisecond {
		t.Errorf("expected 500ms initial backoff, got %v", cfg.Extractor.InitialBackoff)
	}
	if !cfg.Extractor.Fallback {
		t.Error("expected fallback enabled by default")
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("expected 24h cache TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Catalog.Backend != CatalogPostgres {
		t.Errorf("expected postgres catalog, got %q", cfg.Catalog.Backend)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Web.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected info log level, got %q", cfg.Log.Level)
	}
	if len(cfg.Web.AllowedOrigins) != 0 {
		t.Errorf("expected no allowed origins, got %v", cfg.Web.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AI_PROVIDER", "Gemini")
	t.Setenv("EXTRACT_FALLBACK", "false")
	t.Setenv("EXTRACT_MAX_ATTEMPTS", "5")
	t.Setenv("ANALYSIS_CACHE_TTL", "90m")
	t.Setenv("AI_REQUESTS_PER_SECOND", "0.5")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://shop.example.com, http://localhost:5173 ,")

	cfg := Load()

	if cfg.AI.Provider != ProviderGemini {
		t.Errorf("expected gemini, got %q", cfg.AI.Provider)
	}
	if cfg.Extractor.Fallback {
		t.Error("expected fallback disabled")
	}
	if cfg.Extractor.MaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.Extractor.MaxAttempts)
	}
	if cfg.Cache.TTL != 90*time.Minute {
		t.Errorf("expected 90m TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Extractor.RequestsPerSecond != 0.5 {
		t.Errorf("expected 0.5 rps, got %v", cfg.Extractor.RequestsPerSecond)
	}
	want := []string{"https://shop.example.com", "http://localhost:5173"}
	if strings.Join(cfg.Web.AllowedOrigins, "|") != strings.Join(want, "|") {
		t.Errorf("unexpected origins %v", cfg.Web.AllowedOrigins)
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("EXTRACT_MAX_ATTEMPTS", "-1")
	t.Setenv("EXTRACT_FALLBACK", "maybe")
	t.Setenv("ANALYSIS_CACHE_TTL", "tomorrow")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "0")
	t.Setenv("DATABASE_CONNECT_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Extractor.MaxAttempts != 3 {
		t.Errorf("expected default attempts, got %d", cfg.Extractor.MaxAttempts)
	}
	if !cfg.Extractor.Fallback {
		t.Error("expected default fallback for unparsable bool")
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("expected default TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnectTimeout != 30*time.Second {
		t.Errorf("expected default connect timeout, got %v", cfg.Database.ConnectTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid openai",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing openai token",
			mutate:  func(c *Config) { c.OpenAI.Token = "" },
			wantErr: "OPENAI_TOKEN",
		},
		{
			name:    "missing gemini key",
			mutate:  func(c *Config) { c.AI.Provider = ProviderGemini },
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:   "ollama needs no key",
			mutate: func(c *Config) { c.AI.Provider = ProviderOllama; c.OpenAI.Token = "" },
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.AI.Provider = "anthropic" },
			wantErr: "unknown AI_PROVIDER",
		},
		{
			name:    "missing database",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "mariadb without dsn",
			mutate:  func(c *Config) { c.Catalog.Backend = CatalogMariaDB },
			wantErr: "MARIADB_DSN",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				AI:       AIConfig{Provider: ProviderOpenAI},
				OpenAI:   OpenAIConfig{Token: "sk-test"},
				Database: DatabaseConfig{URL: "postgres://localhost/test"},
				Catalog:  CatalogConfig{Backend: CatalogPostgres},
			}
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
