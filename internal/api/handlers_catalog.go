// handlers_catalog.go - Machine catalog handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// CatalogHandlerImpl implements the CatalogHandler interface
type CatalogHandlerImpl struct {
	catalog visualizer.Catalog
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog visualizer.Catalog) CatalogHandler {
	return &CatalogHandlerImpl{catalog: catalog}
}

type catalogEntry struct {
	models.CatalogMachine
	ImageURL string `json:"imageUrl"`
}

type catalogResponse struct {
	Machines       []catalogEntry `json:"machines"`
	SelectionLimit int            `json:"selectionLimit"`
	MinScale       float64        `json:"minScale"`
	MaxScale       float64        `json:"maxScale"`
	ScaleStep      float64        `json:"scaleStep"`
	RotateStep     float64        `json:"rotateStep"`
}

// HandleListCatalog returns every machine with the URL of its cutout image
func (h *CatalogHandlerImpl) HandleListCatalog(c echo.Context) error {
	machines := h.catalog.All()
	entries := make([]catalogEntry, 0, len(machines))
	for _, m := range machines {
		entries = append(entries, catalogEntry{
			CatalogMachine: m,
			ImageURL:       "/assets/" + m.ImageRef,
		})
	}

	return c.JSON(http.StatusOK, catalogResponse{
		Machines:       entries,
		SelectionLimit: visualizer.SelectionLimit,
		MinScale:       visualizer.MinScale,
		MaxScale:       visualizer.MaxScale,
		ScaleStep:      visualizer.ScaleStep,
		RotateStep:     visualizer.RotateStep,
	})
}
