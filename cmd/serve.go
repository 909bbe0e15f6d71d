package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/frame-finder/internal/config"
	"github.com/kozaktomas/frame-finder/internal/database"
	"github.com/kozaktomas/frame-finder/internal/logging"
	"github.com/kozaktomas/frame-finder/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Frame Finder HTTP API.
The API accepts face photos, returns ranked frame recommendations from the
catalog and runs virtual try-on jobs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if os.Getenv("WEB_PORT") != "" {
		port = cfg.Web.Port
	}
	if os.Getenv("WEB_HOST") != "" {
		host = cfg.Web.Host
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logging.Info().Msg("connecting to PostgreSQL")
	closeDB, err := connectPostgres(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	frames, closeCatalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCatalog()
	logging.Info().Str("backend", cfg.Catalog.Backend).Msg("catalog ready")

	analyses, err := database.GetAnalysisWriter(ctx)
	if err != nil {
		return fmt.Errorf("failed to get analysis writer: %w", err)
	}
	tryOns, err := database.GetTryOnWriter(ctx)
	if err != nil {
		return fmt.Errorf("failed to get try-on writer: %w", err)
	}

	extractor, analysisCache, err := newExtractor(ctx, cfg)
	if err != nil {
		return err
	}
	defer analysisCache.Close()
	logging.Info().Str("provider", extractor.Provider().Name()).Msg("extractor ready")

	port, host := resolveServeHostPort(cmd, cfg)
	server := web.NewServer(cfg, port, host, web.Deps{
		Extractor: extractor,
		Frames:    frames,
		Analyses:  analyses,
		TryOns:    tryOns,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("error during shutdown")
		}
	}()

	fmt.Printf("Starting Frame Finder API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
