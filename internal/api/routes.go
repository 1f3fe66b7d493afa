// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/vending-visualizer/backend/internal/storage"
	"github.com/vending-visualizer/backend/internal/visualizer"
	"github.com/vending-visualizer/backend/internal/web"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store    storage.Store
	Sessions SessionManager
	Jobs     JobManager
	Catalog  visualizer.Catalog
	Renderer visualizer.Renderer
	// Assets serves machine cutouts under /assets. Nil skips the route.
	Assets  fs.FS
	Logger  *zap.Logger
	Version string
	// WebSocketMaxMessageSize bounds a single WebSocket frame in bytes
	WebSocketMaxMessageSize int64
}

// Handlers holds all handler instances
type Handlers struct {
	Health     HealthHandler
	Catalog    CatalogHandler
	Session    SessionHandler
	Background BackgroundHandler
	Placement  PlacementHandler
	Export     ExportHandler
	WebSocket  *WebSocketHandler

	assets fs.FS
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(deps.Version, deps.Catalog, deps.Sessions),
		Catalog:    NewCatalogHandler(deps.Catalog),
		Session:    NewSessionHandler(deps.Sessions),
		Background: NewBackgroundHandler(deps.Store, deps.Sessions, deps.Jobs),
		Placement:  NewPlacementHandler(deps.Sessions),
		Export:     NewExportHandler(deps.Sessions, deps.Renderer, deps.Logger),
		WebSocket:  NewWebSocketHandler(deps.Sessions, deps.WebSocketMaxMessageSize, deps.Logger),
		assets:     deps.Assets,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Catalog
	apiGroup.GET("/catalog", handlers.Catalog.HandleListCatalog)

	// Session lifecycle
	sessionGroup := apiGroup.Group("/sessions")
	sessionGroup.POST("", handlers.Session.HandleCreateSession)
	sessionGroup.GET("/:sessionId", handlers.Session.HandleGetSession)
	sessionGroup.GET("/:sessionId/state/msgpack", handlers.Session.HandleGetStateMsgpack)
	sessionGroup.DELETE("/:sessionId", handlers.Session.HandleDeleteSession)
	sessionGroup.POST("/:sessionId/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.POST("/:sessionId/reset", handlers.Session.HandleResetSession)

	// Background photo
	sessionGroup.POST("/:sessionId/background", handlers.Background.HandleUploadBackground)
	sessionGroup.GET("/:sessionId/background", handlers.Background.HandleGetBackground)
	sessionGroup.PUT("/:sessionId/display", handlers.Background.HandleSetDisplaySize)
	apiGroup.GET("/jobs/:jobId", handlers.Background.HandleGetJob)

	// Selection and placements
	sessionGroup.POST("/:sessionId/selection/:machineId", handlers.Placement.HandleToggleSelection)
	sessionGroup.POST("/:sessionId/placements", handlers.Placement.HandleCommitSelection)
	sessionGroup.PUT("/:sessionId/placements/:instanceId/position", handlers.Placement.HandleMovePlacement)
	sessionGroup.POST("/:sessionId/placements/:instanceId/scale", handlers.Placement.HandleScalePlacement)
	sessionGroup.POST("/:sessionId/placements/:instanceId/rotate", handlers.Placement.HandleRotatePlacement)
	sessionGroup.DELETE("/:sessionId/placements/:instanceId", handlers.Placement.HandleRemovePlacement)

	// Drag gestures
	sessionGroup.POST("/:sessionId/drag/start", handlers.Placement.HandleDragStart)
	sessionGroup.POST("/:sessionId/drag/move", handlers.Placement.HandleDragMove)
	sessionGroup.POST("/:sessionId/drag/end", handlers.Placement.HandleDragEnd)

	// Composite output
	sessionGroup.POST("/:sessionId/export", handlers.Export.HandleExport)
	sessionGroup.GET("/:sessionId/preview.png", handlers.Export.HandlePreview)

	// Machine cutouts
	if handlers.assets != nil {
		web.RegisterStaticRoutes(e, handlers.assets)
	}
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/sessions/:sessionId/ws", handlers.WebSocket.HandleWebSocket)
}

// MiddlewareOptions configures SetupMiddleware
type MiddlewareOptions struct {
	Logger           *zap.Logger
	RequestLogging   bool
	AllowOrigins     []string
	BodyLimit        string
	Compression      bool
	CompressionLevel int
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Use custom error handler
	e.HTTPErrorHandler = NewErrorHandler(logger)

	// Request logging through zap
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !opts.RequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" ||
				strings.HasSuffix(path, "/drag/move") ||
				strings.HasPrefix(path, "/assets/")
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Info("request", fields...)
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered",
				zap.String("path", c.Path()),
				zap.Error(err),
				zap.ByteString("stack", stack),
			)
			return err
		},
	}))

	if opts.Compression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: opts.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				// PNG bodies and the WebSocket upgrade go out as-is
				path := c.Request().URL.Path
				return strings.HasSuffix(path, "/ws") ||
					strings.HasSuffix(path, "/export") ||
					strings.HasSuffix(path, ".png")
			},
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if len(opts.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  opts.AllowOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			ExposeHeaders: []string{echo.HeaderContentDisposition},
			MaxAge:        int((12 * time.Hour).Seconds()),
		}))
	}
}
