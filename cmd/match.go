package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/frame-finder/internal/ai"
	"github.com/kozaktomas/frame-finder/internal/config"
	"github.com/kozaktomas/frame-finder/internal/matcher"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank the catalog for given facial attributes",
	Long: `Rank the active catalog for facial attributes given on the command line,
without calling an AI provider. Values are matched case-insensitively against
the catalog vocabulary; anything else counts as unknown.

Examples:
  frame-finder match --face-shape round --sizes medium,large --colors black --styles rectangle
  frame-finder match --face-shape heart --explain --limit 10`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("face-shape", "", "Face shape (oval, round, square, heart, diamond, oblong)")
	matchCmd.Flags().StringSlice("sizes", nil, "Recommended frame sizes")
	matchCmd.Flags().StringSlice("colors", nil, "Recommended frame colors")
	matchCmd.Flags().StringSlice("styles", nil, "Recommended frame styles")
	matchCmd.Flags().Int("limit", matcher.DefaultLimit, "Number of frames to return")
	matchCmd.Flags().Bool("explain", false, "Show which scoring factors each frame matched")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runMatch(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")
	explain := mustGetBool(cmd, "explain")
	jsonOutput := mustGetBool(cmd, "json")

	attrs := ai.Canonicalize(&ai.FaceAnalysis{
		FaceShape:         mustGetString(cmd, "face-shape"),
		RecommendedSizes:  mustGetStringSlice(cmd, "sizes"),
		RecommendedColors: mustGetStringSlice(cmd, "colors"),
		RecommendedStyles: mustGetStringSlice(cmd, "styles"),
		Confidence:        1,
	})

	ctx := context.Background()
	cfg := config.Load()

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

	active, err := frames.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active frames: %w", err)
	}
	matched, err := matcher.Match(attrs, active, limit)
	if err != nil {
		return err
	}

	result := buildAnalyzeResult(&ai.Extraction{Attributes: attrs, Provider: "cli"}, matched, explain)

	if jsonOutput {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	printAnalyzeResult(result, explain)
	return nil
}
