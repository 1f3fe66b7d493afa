package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vending-visualizer/backend/internal/api"
	"github.com/vending-visualizer/backend/internal/assets"
	"github.com/vending-visualizer/backend/internal/catalog"
	"github.com/vending-visualizer/backend/internal/composite"
	"github.com/vending-visualizer/backend/internal/config"
	"github.com/vending-visualizer/backend/internal/imaging"
	"github.com/vending-visualizer/backend/internal/logging"
	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/session"
	"github.com/vending-visualizer/backend/internal/storage"
	"github.com/vending-visualizer/backend/internal/upload"
	"github.com/vending-visualizer/backend/internal/visualizer"
	"github.com/vending-visualizer/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// DefaultConfigName is looked up next to the executable when --config is
// not given.
const DefaultConfigName = "vendviz.config"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "vendviz",
	Short:         "Workplace vending machine visualizer",
	Long:          `Places vending machine cutouts on a photo of a workplace and exports the composite.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the XML config (default: "+DefaultConfigName+" next to the executable)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfigPath returns --config or the default file beside the binary.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(exePath), DefaultConfigName), nil
}

// loadCatalog returns the machine catalog and the filesystem its image
// references resolve against. Configured paths replace the embedded
// defaults independently of each other.
func loadCatalog(cfg *config.AppConfig, logger *zap.Logger) (*catalog.Catalog, fs.FS, error) {
	embedded, err := web.GetFileSystem()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open embedded assets: %w", err)
	}

	assetFS := embedded
	if dir := cfg.Visualizer.AssetDirectory; dir != "" {
		assetFS = os.DirFS(dir)
	}

	var cat *catalog.Catalog
	if file := cfg.Visualizer.CatalogFile; file != "" {
		cat, err = catalog.Load(file)
	} else {
		cat, err = catalog.LoadFS(embedded, web.CatalogFile)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	for _, m := range cat.All() {
		if _, err := fs.Stat(assetFS, m.ImageRef); err != nil {
			logger.Warn("machine image missing", zap.String("machine", m.ID), zap.String("image", m.ImageRef))
		}
	}
	return cat, assetFS, nil
}

func visualizerOptions(cfg *config.AppConfig) visualizer.Options {
	return visualizer.Options{
		Limits: imaging.Limits{
			MaxBytes:  cfg.MaxUploadBytes(),
			MaxPixels: cfg.Visualizer.MaxImagePixels,
		},
		DisplayMax: models.Size{
			Width:  float64(cfg.Visualizer.DisplayMaxWidth),
			Height: float64(cfg.Visualizer.DisplayMaxHeight),
		},
	}
}

func allowOrigins(cfg *config.AppConfig) []string {
	if !cfg.Server.EnableCORS {
		return nil
	}
	origins := strings.Split(cfg.Server.AllowOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
		origins = []string{"*"}
	}
	return origins
}

func runServe(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Advanced.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	cat, assetFS, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir(), cfg.MaxUploadBytes())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	sessionMgr := session.NewManager(cat, fileStore, session.Options{
		MaxSessions: cfg.Processing.MaxSessions,
		Visualizer:  visualizerOptions(cfg),
		Logger:      logger,
	})
	uploadMgr := upload.NewManager(sessionMgr, logger)
	exporter := composite.NewExporter(assets.NewFSLoader(assetFS))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessionMgr.Run(ctx, cfg.CleanupInterval(), cfg.SessionTimeout())
	go uploadMgr.Run(ctx, cfg.CleanupInterval(), cfg.JobRetention())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		Logger:           logger,
		RequestLogging:   cfg.Advanced.EnableRequestLogging,
		AllowOrigins:     allowOrigins(cfg),
		BodyLimit:        cfg.Server.BodyLimit,
		Compression:      cfg.Processing.EnableCompression,
		CompressionLevel: cfg.Processing.CompressionLevel,
	})

	handlers := api.NewHandlers(&api.Dependencies{
		Store:                   fileStore,
		Sessions:                sessionMgr,
		Jobs:                    uploadMgr,
		Catalog:                 cat,
		Renderer:                exporter,
		Assets:                  assetFS,
		Logger:                  logger,
		Version:                 Version,
		WebSocketMaxMessageSize: int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024,
	})
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(path, cfg, cat.Len())
	logger.Info("server starting",
		zap.String("addr", cfg.GetServerAddr()),
		zap.Int("machines", cat.Len()),
		zap.String("max_upload", humanize.Bytes(uint64(cfg.MaxUploadBytes()))),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	uploadMgr.Close()
	return nil
}

func printBanner(configPath string, cfg *config.AppConfig, machines int) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Workplace Vending Visualizer                    ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Machines:   %-45d║\n", machines)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
