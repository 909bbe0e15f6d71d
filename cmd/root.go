package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/frame-finder/internal/config"
	"github.com/kozaktomas/frame-finder/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "frame-finder",
	Short: "Recommend eyewear frames from a face photo",
	Long: `Frame Finder classifies a face photo with a multimodal AI model (OpenAI,
Gemini or Ollama) and ranks the eyewear catalog by how well each frame suits
the detected face shape, size, color and style.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (json, console); overrides LOG_FORMAT")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	cfg := config.Load()
	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	// Persistent flags share their values with every subcommand's flag set.
	if v, _ := rootCmd.PersistentFlags().GetString("log-level"); v != "" {
		logCfg.Level = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("log-format"); v != "" {
		logCfg.Format = v
	}
	logging.Init(logCfg)
}
