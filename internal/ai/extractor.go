package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/kozaktomas/frame-finder/internal/cache"
	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/config"
	"github.com/kozaktomas/frame-finder/internal/fingerprint"
	"github.com/kozaktomas/frame-finder/internal/logging"
	"github.com/kozaktomas/frame-finder/internal/metrics"
)

// Extraction outcomes reported to metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeCached   = "cached"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Extraction is the canonical result of analysing one photo.
type Extraction struct {
	Attributes catalog.FacialAttributes
	Provider   string
	PHash      string // hex perceptual hash of the uploaded image
	Fallback   bool   // neutral attributes used because the provider failed
	Cached     bool   // served from the analysis cache
}

// Extractor turns photos into facial attributes through a Provider, adding
// caching, throttling, retries, a circuit breaker and the neutral fallback.
type Extractor struct {
	provider Provider
	cache    cache.Cache
	cacheTTL time.Duration
	cfg      config.ExtractorConfig
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[*FaceAnalysis]
}

// NewExtractor wraps provider. c may be nil to disable caching.
func NewExtractor(provider Provider, c cache.Cache, cfg config.ExtractorConfig, cacheTTL time.Duration) *Extractor {
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	cfg.BreakerFailures = max(cfg.BreakerFailures, 1)

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	name := "ai-" + provider.Name()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	breaker := gobreaker.NewCircuitBreaker[*FaceAnalysis](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerFailures)
		},
		// Bad uploads and cancelled requests say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Extractor{
		provider: provider,
		cache:    c,
		cacheTTL: cacheTTL,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, max(cfg.Burst, 1)),
		breaker:  breaker,
	}
}

// Provider returns the wrapped provider.
func (e *Extractor) Provider() Provider { return e.provider }

// Extract analyses imageData and returns canonical attributes.
//
// Invalid images, photos without a face and cancelled contexts are returned as
// errors. Any other failure degrades to catalog.FallbackAttributes unless
// fallback is disabled, in which case ErrExtractionFailed is returned.
func (e *Extractor) Extract(ctx context.Context, imageData []byte) (*Extraction, error) {
	start := time.Now()
	providerName := e.provider.Name()
	log := logging.Ctx(ctx)

	fp, err := fingerprint.Compute(imageData)
	if err != nil {
		metrics.RecordExtraction(providerName, OutcomeRejected, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	result := &Extraction{Provider: providerName, PHash: fp.PHash}
	key := "analysis:" + providerName + ":" + fp.Key()

	if attrs, ok := e.lookup(ctx, key); ok {
		result.Attributes = attrs
		result.Cached = true
		metrics.RecordExtraction(providerName, OutcomeCached, time.Since(start))
		return result, nil
	}

	analysis, err := e.analyze(ctx, imageData)
	if err == nil && analysis.FaceDetected != nil && !*analysis.FaceDetected {
		err = ErrNoFaceDetected
	}
	if err != nil {
		if isClientError(err) || ctx.Err() != nil {
			metrics.RecordExtraction(providerName, OutcomeRejected, time.Since(start))
			return nil, err
		}
		if !e.cfg.Fallback {
			metrics.RecordExtraction(providerName, OutcomeError, time.Since(start))
			log.Error().Err(err).Str("provider", providerName).Msg("attribute extraction failed")
			return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}
		log.Warn().Err(err).Str("provider", providerName).Msg("attribute extraction failed, using fallback attributes")
		result.Attributes = catalog.FallbackAttributes()
		result.Fallback = true
		metrics.RecordExtraction(providerName, OutcomeFallback, time.Since(start))
		return result, nil
	}

	result.Attributes = Canonicalize(analysis)
	e.store(ctx, key, result.Attributes)
	metrics.RecordExtraction(providerName, OutcomeSuccess, time.Since(start))
	log.Debug().
		Str("provider", providerName).
		Str("face_shape", string(result.Attributes.FaceShape)).
		Float64("confidence", result.Attributes.Confidence).
		Dur("took", time.Since(start)).
		Msg("attributes extracted")
	return result, nil
}

// analyze calls the provider with throttling, retries and the circuit breaker.
func (e *Extractor) analyze(ctx context.Context, imageData []byte) (*FaceAnalysis, error) {
	attempt := 0
	op := func() (*FaceAnalysis, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		attempt++
		metrics.ExtractionAttempts.WithLabelValues(e.provider.Name()).Inc()

		analysis, err := e.breaker.Execute(func() (*FaceAnalysis, error) {
			return e.provider.AnalyzeFace(ctx, imageData)
		})
		if err != nil {
			if ctx.Err() != nil || !isRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			logging.Ctx(ctx).Debug().Err(err).Int("attempt", attempt).Msg("provider call failed, retrying")
			return nil, err
		}
		return analysis, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.InitialBackoff
	b.MaxInterval = e.cfg.MaxBackoff
	b.MaxElapsedTime = 0

	return backoff.RetryWithData(op,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.cfg.MaxAttempts-1)), ctx))
}

func (e *Extractor) lookup(ctx context.Context, key string) (catalog.FacialAttributes, bool) {
	var attrs catalog.FacialAttributes
	if e.cache == nil {
		return attrs, false
	}

	data, err := e.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logging.Ctx(ctx).Warn().Err(err).Msg("analysis cache lookup failed")
		}
		metrics.RecordCacheLookup(e.cache.Backend(), "miss")
		return attrs, false
	}
	if err := json.Unmarshal(data, &attrs); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("discarding unreadable cache entry")
		metrics.RecordCacheLookup(e.cache.Backend(), "miss")
		return attrs, false
	}
	metrics.RecordCacheLookup(e.cache.Backend(), "hit")
	return attrs, true
}

func (e *Extractor) store(ctx context.Context, key string, attrs catalog.FacialAttributes) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, data, e.cacheTTL); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to cache analysis")
	}
}

// isClientError reports failures caused by the request itself. Deadline
// errors are not included: a slow upstream is an upstream failure.
func isClientError(err error) bool {
	return errors.Is(err, ErrInvalidImage) ||
		errors.Is(err, ErrNoFaceDetected) ||
		errors.Is(err, context.Canceled)
}

// isRetryable reports whether another attempt could succeed.
func isRetryable(err error) bool {
	if isClientError(err) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
