package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/frame-finder/internal/ai"
	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/config"
	"github.com/kozaktomas/frame-finder/internal/matcher"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Recommend frames for a face photo",
	Long: `Classify a face photo with the configured AI provider and print the best
matching frames from the active catalog.

Examples:
  # Top 5 frames for a photo
  frame-finder analyze face.jpg

  # Top 10 with a per-factor score breakdown
  frame-finder analyze face.jpg --limit 10 --explain

  # Machine-readable output
  frame-finder analyze face.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Int("limit", matcher.DefaultLimit, "Number of frames to return")
	analyzeCmd.Flags().Bool("explain", false, "Show which scoring factors each frame matched")
	analyzeCmd.Flags().Bool("json", false, "Output as JSON")
}

// analyzeResult is the --json output of the analyze command.
type analyzeResult struct {
	Provider   string                   `json:"provider"`
	Fallback   bool                     `json:"fallback"`
	Cached     bool                     `json:"cached"`
	Attributes catalog.FacialAttributes `json:"attributes"`
	Frames     []scoredFrame            `json:"frames"`
}

type scoredFrame struct {
	catalog.FrameProduct
	Score   float64             `json:"score"`
	Factors []matcher.FactorHit `json:"factors,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")
	explain := mustGetBool(cmd, "explain")
	jsonOutput := mustGetBool(cmd, "json")

	if limit <= 0 {
		return fmt.Errorf("%w: got %d", matcher.ErrInvalidLimit, limit)
	}

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

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

	extractor, analysisCache, err := newExtractor(ctx, cfg)
	if err != nil {
		return err
	}
	defer analysisCache.Close()

	if !jsonOutput {
		fmt.Printf("Analyzing %s with %s...\n", args[0], extractor.Provider().Name())
	}

	ext, err := extractor.Extract(ctx, imageData)
	if err != nil {
		return fmt.Errorf("failed to analyze image: %w", err)
	}

	active, err := frames.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active frames: %w", err)
	}
	matched, err := matcher.Match(ext.Attributes, active, limit)
	if err != nil {
		return err
	}

	result := buildAnalyzeResult(ext, matched, explain)

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

func buildAnalyzeResult(ext *ai.Extraction, matched []catalog.FrameProduct, explain bool) analyzeResult {
	result := analyzeResult{
		Provider:   ext.Provider,
		Fallback:   ext.Fallback,
		Cached:     ext.Cached,
		Attributes: ext.Attributes,
		Frames:     make([]scoredFrame, len(matched)),
	}
	for i, f := range matched {
		result.Frames[i] = scoredFrame{FrameProduct: f, Score: matcher.Score(ext.Attributes, f)}
		if explain {
			result.Frames[i].Factors = matcher.Explain(ext.Attributes, f)
		}
	}
	return result
}

func printAnalyzeResult(result analyzeResult, explain bool) {
	attrs := result.Attributes

	fmt.Println()
	fmt.Printf("Face shape:  %s (confidence %.2f)\n", attrs.FaceShape, attrs.Confidence)
	fmt.Printf("Sizes:       %s\n", strings.Join(catalog.Strings(attrs.RecommendedSizes), ", "))
	fmt.Printf("Colors:      %s\n", strings.Join(catalog.Strings(attrs.RecommendedColors), ", "))
	fmt.Printf("Styles:      %s\n", strings.Join(catalog.Strings(attrs.RecommendedStyles), ", "))
	if result.Fallback {
		fmt.Println("Note: the AI provider was unavailable, showing general recommendations")
	} else if result.Cached {
		fmt.Println("Note: served from the analysis cache")
	}
	fmt.Println()

	if len(result.Frames) == 0 {
		fmt.Println("No active frames in the catalog.")
		return
	}

	fmt.Printf("Top %d frames:\n", len(result.Frames))
	for i, f := range result.Frames {
		fmt.Printf("%2d. %-30s %-12s %-10s %-8s %-12s score %.1f\n",
			i+1, f.Name, f.Style, f.Color, f.Size, f.StockStatus, f.Score)
		if explain {
			for _, hit := range f.Factors {
				fmt.Printf("      + %-12s %5.1f\n", hit.Name, hit.Points)
			}
		}
	}
}
