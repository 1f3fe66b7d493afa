// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/upload"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// CatalogHandler serves the machine catalog
type CatalogHandler interface {
	HandleListCatalog(c echo.Context) error
}

// SessionHandler handles visualizer session lifecycle
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleGetStateMsgpack(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleResetSession(c echo.Context) error
}

// BackgroundHandler handles photo ingestion and the display canvas size
type BackgroundHandler interface {
	HandleUploadBackground(c echo.Context) error
	HandleGetBackground(c echo.Context) error
	HandleSetDisplaySize(c echo.Context) error
	HandleGetJob(c echo.Context) error
}

// PlacementHandler handles selection, placement and drag operations
type PlacementHandler interface {
	HandleToggleSelection(c echo.Context) error
	HandleCommitSelection(c echo.Context) error
	HandleMovePlacement(c echo.Context) error
	HandleScalePlacement(c echo.Context) error
	HandleRotatePlacement(c echo.Context) error
	HandleRemovePlacement(c echo.Context) error
	HandleDragStart(c echo.Context) error
	HandleDragMove(c echo.Context) error
	HandleDragEnd(c echo.Context) error
}

// ExportHandler renders composites
type ExportHandler interface {
	HandleExport(c echo.Context) error
	HandlePreview(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create() *models.SessionInfo
	Get(id string) (*models.SessionInfo, error)
	With(id string, fn func(v *visualizer.Visualizer) error) error
	Snapshot(id string) (models.CanvasState, error)
	IngestFile(ctx context.Context, sessionID, fileID string) (*models.BackgroundInfo, error)
	Reset(id string) (models.CanvasState, error)
	Delete(id string) error
	TouchSession(id string) bool
	Len() int
}

// JobManager runs background ingestion jobs
type JobManager interface {
	StartJob(sessionID string, file *models.FileInfo) *upload.Job
	GetJob(id string) (*upload.Job, bool)
}
