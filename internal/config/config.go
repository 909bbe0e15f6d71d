package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

// Provider names accepted by AI_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Catalog backends accepted by CATALOG_BACKEND.
const (
	CatalogPostgres = "postgres"
	CatalogMariaDB  = "mariadb"
)

type Config struct {
	AI        AIConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Ollama    OllamaConfig
	Extractor ExtractorConfig
	Database  DatabaseConfig
	Catalog   CatalogConfig
	Cache     CacheConfig
	Log       LogConfig
	Web       WebConfig
	Prices    PricesConfig
}

type AIConfig struct {
	Provider string // openai, gemini or ollama (default openai)
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type OllamaConfig struct {
	URL   string // defaults to http://localhost:11434
	Model string // defaults to llama3.2-vision:11b
}

// ExtractorConfig controls retries, throttling and degradation of attribute extraction.
type ExtractorConfig struct {
	MaxAttempts       int           // total provider calls per extraction (default 3)
	InitialBackoff    time.Duration // first retry delay (default 500ms)
	MaxBackoff        time.Duration // cap on a single retry delay (default 5s)
	Fallback          bool          // return the neutral attribute set when all attempts fail (default true)
	RequestsPerSecond float64       // outbound throttle (default 2)
	Burst             int           // throttle burst (default 4)
	BreakerFailures   int           // consecutive failures that open the circuit (default 5)
	BreakerTimeout    time.Duration // open-state duration before probing again (default 30s)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)

	// ConnectTimeout bounds how long startup waits for the database to accept
	// connections (default 30s). Zero means a single attempt.
	ConnectTimeout time.Duration
}

// CatalogConfig selects where frames are read from. Analyses and try-ons always go to PostgreSQL.
type CatalogConfig struct {
	Backend    string // postgres (default) or mariadb
	MariaDBDSN string // e.g. shop:shop@tcp(mariadb:3306)/shop
}

type CacheConfig struct {
	RedisURL string        // empty means in-memory
	TTL      time.Duration // default 24h
}

type LogConfig struct {
	Level  string // default info
	Format string // json or console
}

type WebConfig struct {
	Port             int
	Host             string
	AllowedOrigins   []string
	AnalyzeRateLimit int           // requests per minute per client IP on /analyze and /tryon (default 20)
	RequestTimeout   time.Duration // default 60s
}

type PricesConfig struct {
	Models map[string]RequestPricing `yaml:"models"`
}

type RequestPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// envDuration accepts Go duration strings ("500ms", "24h").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	return &Config{
		AI: AIConfig{
			Provider: strings.ToLower(envString("AI_PROVIDER", ProviderOpenAI)),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Ollama: OllamaConfig{
			URL:   os.Getenv("OLLAMA_URL"),
			Model: os.Getenv("OLLAMA_MODEL"),
		},
		Extractor: ExtractorConfig{
			MaxAttempts:       envInt("EXTRACT_MAX_ATTEMPTS", 3),
			InitialBackoff:    envDuration("EXTRACT_INITIAL_BACKOFF", 500*time.Millisecond),
			MaxBackoff:        envDuration("EXTRACT_MAX_BACKOFF", 5*time.Second),
			Fallback:          envBool("EXTRACT_FALLBACK", true),
			RequestsPerSecond: envFloat("AI_REQUESTS_PER_SECOND", 2),
			Burst:             envInt("AI_REQUESTS_BURST", 4),
			BreakerFailures:   envInt("AI_BREAKER_FAILURES", 5),
			BreakerTimeout:    envDuration("AI_BREAKER_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),

			ConnectTimeout: envDuration("DATABASE_CONNECT_TIMEOUT", 30*time.Second),
		},
		Catalog: CatalogConfig{
			Backend:    strings.ToLower(envString("CATALOG_BACKEND", CatalogPostgres)),
			MariaDBDSN: os.Getenv("MARIADB_DSN"),
		},
		Cache: CacheConfig{
			RedisURL: os.Getenv("REDIS_URL"),
			TTL:      envDuration("ANALYSIS_CACHE_TTL", 24*time.Hour),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Web: WebConfig{
			Port:             envInt("WEB_PORT", 8080),
			Host:             envString("WEB_HOST", "0.0.0.0"),
			AllowedOrigins:   envList("WEB_ALLOWED_ORIGINS"),
			AnalyzeRateLimit: envInt("RATE_LIMIT_ANALYZE", 20),
			RequestTimeout:   envDuration("WEB_REQUEST_TIMEOUT", 60*time.Second),
		},
		Prices: prices,
	}
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error

	switch c.AI.Provider {
	case ProviderOpenAI:
		if c.OpenAI.Token == "" {
			errs = append(errs, errors.New("OPENAI_TOKEN is required for the openai provider"))
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown AI_PROVIDER %q", c.AI.Provider))
	}

	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	switch c.Catalog.Backend {
	case CatalogPostgres:
	case CatalogMariaDB:
		if c.Catalog.MariaDBDSN == "" {
			errs = append(errs, errors.New("MARIADB_DSN is required for the mariadb catalog backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CATALOG_BACKEND %q", c.Catalog.Backend))
	}

	return errors.Join(errs...)
}

// GetModelPricing returns pricing for a specific model, or zero pricing when unknown.
func (c *Config) GetModelPricing(modelName string) RequestPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	return RequestPricing{}
}
