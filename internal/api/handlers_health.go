// handlers_health.go - Liveness and capacity report
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vending-visualizer/backend/internal/visualizer"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	catalog  visualizer.Catalog
	sessions SessionManager
	started  time.Time
}

type healthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Machines       int    `json:"machines"`
	ActiveSessions int    `json:"activeSessions"`
	UptimeSeconds  int64  `json:"uptimeSeconds"`
}

// NewHealthHandler creates a health handler that reports the catalog size
// and the number of live sessions.
func NewHealthHandler(version string, catalog visualizer.Catalog, sessions SessionManager) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		catalog:  catalog,
		sessions: sessions,
		started:  time.Now(),
	}
}

// HandleHealth reports "ok", or "degraded" when no machines are loaded.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started) / time.Second),
	}
	if h.catalog != nil {
		resp.Machines = len(h.catalog.All())
	}
	if h.sessions != nil {
		resp.ActiveSessions = h.sessions.Len()
	}
	if resp.Machines == 0 {
		resp.Status = "degraded"
	}
	return c.JSON(http.StatusOK, resp)
}
