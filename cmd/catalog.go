package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/frame-finder/internal/catalog"
	"github.com/kozaktomas/frame-finder/internal/config"
	"github.com/kozaktomas/frame-finder/internal/constants"
	"github.com/kozaktomas/frame-finder/internal/database"
	"github.com/kozaktomas/frame-finder/internal/logging"
	"github.com/kozaktomas/frame-finder/internal/validation"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the frame catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Insert or update frames from a YAML file",
	Long: `Insert or update frames from a YAML file. Frames are matched by id; new
frames are appended to the catalog order, existing frames keep their position.
Entries without an id get a generated one.

Rows failing validation are reported and skipped. Values outside the catalog
vocabulary are stored as-is with a warning; such frames never earn points for
the unknown field.

File format:
  frames:
    - id: metro-black-m
      name: Metro
      brand: Acme
      price_cents: 12900
      style: Rectangle
      color: Black
      size: Medium
      suitable_face_shapes: [round, oval]
      stock_status: in_stock
      stock_count: 25

Examples:
  frame-finder catalog import frames.yaml
  frame-finder catalog import frames.yaml --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogImport,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List frames in catalog order",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Hide a frame from recommendations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalogSetActive(args[0], false)
	},
}

var catalogActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Make a deactivated frame recommendable again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalogSetActive(args[0], true)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd, catalogDeactivateCmd, catalogActivateCmd)

	catalogImportCmd.Flags().Bool("dry-run", false, "Validate the file without writing to the database")
	catalogListCmd.Flags().Bool("all", false, "Include inactive frames")
	catalogListCmd.Flags().Bool("json", false, "Output as JSON")
}

// catalogFile is the YAML layout accepted by catalog import.
type catalogFile struct {
	Frames []catalogEntry `yaml:"frames"`
}

type catalogEntry struct {
	ID                 string              `yaml:"id" validate:"omitempty,max=64,printascii"`
	Name               string              `yaml:"name" validate:"required,max=200"`
	Brand              string              `yaml:"brand" validate:"max=100"`
	PriceCents         int64               `yaml:"price_cents" validate:"gte=0"`
	ImageURL           string              `yaml:"image_url" validate:"omitempty,url"`
	Style              catalog.Style       `yaml:"style"`
	Color              catalog.Color       `yaml:"color"`
	Size               catalog.Size        `yaml:"size"`
	SuitableFaceShapes []catalog.FaceShape `yaml:"suitable_face_shapes"`
	StockStatus        catalog.StockStatus `yaml:"stock_status"`
	StockCount         *int                `yaml:"stock_count" validate:"omitempty,gte=0"`
	Active             *bool               `yaml:"active"`
}

func (e catalogEntry) toFrame() catalog.FrameProduct {
	f := catalog.FrameProduct{
		ID:                 strings.TrimSpace(e.ID),
		Name:               strings.TrimSpace(e.Name),
		Brand:              strings.TrimSpace(e.Brand),
		PriceCents:         e.PriceCents,
		ImageURL:           e.ImageURL,
		Style:              e.Style,
		Color:              e.Color,
		Size:               e.Size,
		SuitableFaceShapes: e.SuitableFaceShapes,
		StockStatus:        e.StockStatus,
		StockCount:         e.StockCount,
		IsActive:           e.Active == nil || *e.Active,
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.SuitableFaceShapes == nil {
		f.SuitableFaceShapes = []catalog.FaceShape{}
	}
	return f
}

// importIssue describes one rejected or suspicious catalog entry.
type importIssue struct {
	Index   int // zero-based position in the file
	ID      string
	Message string
	Skipped bool
}

func (i importIssue) String() string {
	label := fmt.Sprintf("entry %d", i.Index+1)
	if i.ID != "" {
		label += fmt.Sprintf(" (%s)", i.ID)
	}
	return label + ": " + i.Message
}

// parseCatalogFile decodes and validates a catalog seed file. Invalid entries are
// reported as skipped issues; out-of-vocabulary values are reported but kept.
func parseCatalogFile(data []byte) ([]catalog.FrameProduct, []importIssue, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	frames := make([]catalog.FrameProduct, 0, len(file.Frames))
	var issues []importIssue
	for i, entry := range file.Frames {
		if err := validation.ValidateStruct(entry); err != nil {
			issues = append(issues, importIssue{Index: i, ID: entry.ID, Message: err.Error(), Skipped: true})
			continue
		}

		frame := entry.toFrame()
		if unknown := frame.UnknownFields(); len(unknown) > 0 {
			issues = append(issues, importIssue{
				Index:   i,
				ID:      frame.ID,
				Message: "values outside the catalog vocabulary in " + strings.Join(unknown, ", "),
			})
		}
		frames = append(frames, frame)
	}
	return frames, issues, nil
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	dryRun := mustGetBool(cmd, "dry-run")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	frames, issues, err := parseCatalogFile(data)
	if err != nil {
		return err
	}

	skipped := 0
	for _, issue := range issues {
		if issue.Skipped {
			skipped++
			fmt.Printf("Skipping %s\n", issue)
		} else {
			fmt.Printf("Warning: %s\n", issue)
		}
	}
	fmt.Printf("Frames to import: %d (skipped %d)\n", len(frames), skipped)

	if dryRun || len(frames) == 0 {
		return nil
	}

	ctx := context.Background()
	writer, closeDB, err := openFrameWriter(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	bar := progressbar.NewOptions(len(frames),
		progressbar.OptionSetDescription("Importing frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	for start := 0; start < len(frames); start += constants.ImportBatchSize {
		batch := frames[start:min(start+constants.ImportBatchSize, len(frames))]
		if err := writer.Upsert(ctx, batch); err != nil {
			_ = bar.Exit()
			return fmt.Errorf("failed to import frames: %w", err)
		}
		_ = bar.Add(len(batch))
	}
	_ = bar.Finish()

	logging.Info().Int("frames", len(frames)).Int("skipped", skipped).Msg("catalog imported")
	fmt.Printf("\nImported %d frames\n", len(frames))
	return nil
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	all := mustGetBool(cmd, "all")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	writer, closeDB, err := openFrameWriter(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	var frames []catalog.FrameProduct
	if all {
		frames, err = writer.ListAll(ctx)
	} else {
		frames, err = writer.ListActive(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list frames: %w", err)
	}

	if jsonOutput {
		out, err := json.MarshalIndent(frames, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode frames: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if len(frames) == 0 {
		fmt.Println("The catalog is empty.")
		return nil
	}

	fmt.Printf("%-36s  %-24s  %-10s  %-8s  %-7s  %-12s  %-5s  %s\n",
		"ID", "NAME", "STYLE", "COLOR", "SIZE", "STOCK", "COUNT", "ACTIVE")
	for _, f := range frames {
		count := "-"
		if f.StockCount != nil {
			count = fmt.Sprintf("%d", *f.StockCount)
		}
		fmt.Printf("%-36s  %-24s  %-10s  %-8s  %-7s  %-12s  %-5s  %t\n",
			f.ID, f.Name, f.Style, f.Color, f.Size, f.StockStatus, count, f.IsActive)
	}
	fmt.Printf("\n%d frames\n", len(frames))
	return nil
}

func runCatalogSetActive(id string, active bool) error {
	ctx := context.Background()
	writer, closeDB, err := openFrameWriter(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	found, err := writer.SetActive(ctx, id, active)
	if err != nil {
		return fmt.Errorf("failed to update frame: %w", err)
	}
	if !found {
		return fmt.Errorf("frame %q not found", id)
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	fmt.Printf("Frame %s %s\n", id, state)
	return nil
}

// openFrameWriter connects to PostgreSQL, which always holds the writable catalog.
func openFrameWriter(ctx context.Context) (database.FrameWriter, func(), error) {
	cfg := config.Load()
	if cfg.Catalog.Backend == config.CatalogMariaDB {
		fmt.Println("Note: CATALOG_BACKEND=mariadb is read-only; editing the PostgreSQL catalog")
	}

	closeDB, err := connectPostgres(cfg)
	if err != nil {
		return nil, nil, err
	}
	writer, err := database.GetFrameWriter(ctx)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("failed to get frame writer: %w", err)
	}
	return writer, closeDB, nil
}
