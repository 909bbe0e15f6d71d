package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/frame-finder/internal/web/handlers"
	"github.com/kozaktomas/frame-finder/internal/web/middleware"
)

// defaultRequestTimeout applies when WEB_REQUEST_TIMEOUT is unset.
const defaultRequestTimeout = 60 * time.Second

func (s *Server) setupRoutes() {
	// Create handlers
	analyzeHandler := handlers.NewAnalyzeHandler(s.deps.Extractor, s.deps.Frames, s.deps.Analyses)
	framesHandler := handlers.NewFramesHandler(s.deps.Frames)
	sessionsHandler := handlers.NewSessionsHandler(s.deps.Analyses)
	tryOnHandler := handlers.NewTryOnHandler(s.deps.Extractor.Provider(), s.deps.Frames, s.deps.TryOns, s.jobManager)
	configHandler := handlers.NewConfigHandler(s.config)

	timeout := s.config.Web.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		// SSE streams outlive the request timeout
		r.Get("/tryon/{jobId}/events", tryOnHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(timeout))

			r.Get("/health", handlers.HealthCheck)
			r.Get("/config", configHandler.Get)

			// Catalog
			r.Get("/frames", framesHandler.List)
			r.Get("/frames/{id}", framesHandler.Get)
			r.Post("/frames/match", framesHandler.Match)

			// Analysis log
			r.Get("/sessions/{id}/analyses", sessionsHandler.Analyses)

			// Try-on jobs
			r.Get("/tryon/{jobId}", tryOnHandler.Status)
			r.Get("/tryon/{jobId}/image", tryOnHandler.Image)
			r.Delete("/tryon/{jobId}", tryOnHandler.Cancel)

			// Endpoints that call the AI provider
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(s.config.Web.AnalyzeRateLimit, time.Minute))
				r.Post("/analyze", analyzeHandler.Analyze)
				r.Post("/tryon", tryOnHandler.Start)
			})
		})
	})
}
