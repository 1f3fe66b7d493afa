package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vending-visualizer/backend/internal/assets"
	"github.com/vending-visualizer/backend/internal/composite"
	"github.com/vending-visualizer/backend/internal/config"
	"github.com/vending-visualizer/backend/internal/imaging"
	"github.com/vending-visualizer/backend/internal/logging"
	"github.com/vending-visualizer/backend/internal/scene"
)

var (
	renderScene string
	renderOut   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a scene file to a PNG without starting the server",
	Long: `Reads a YAML scene (background photo plus machine placements in display
coordinates) and writes the composite at the photo's native resolution.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderScene, "scene", "", "scene YAML file")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output PNG (default: dated file name in the current directory)")
	_ = renderCmd.MarkFlagRequired("scene")
}

func runRender(cmd *cobra.Command, args []string) error {
	// Without --config the defaults apply and no file is created.
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	logger, err := logging.New(cfg.Advanced.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cat, assetFS, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}

	f, err := scene.Load(renderScene)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(f.Background)
	if err != nil {
		return fmt.Errorf("failed to read background: %w", err)
	}
	opts := visualizerOptions(cfg)
	background, _, err := imaging.Decode(data, opts.Limits)
	if err != nil {
		return fmt.Errorf("failed to decode background %s: %w", f.Background, err)
	}

	sc, placed, err := f.Build(cat, background)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	exporter := composite.NewExporter(assets.NewFSLoader(assetFS))
	res, err := exporter.Export(cmd.Context(), sc, &buf)
	if err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}

	out := renderOut
	if out == "" {
		out = composite.Filename(time.Now())
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	logger.Debug("scene rendered", zap.Int("machines", len(placed)))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d, %s, %d machines)\n",
		out, res.Width, res.Height, humanize.Bytes(uint64(res.Bytes)), len(placed))
	return nil
}
