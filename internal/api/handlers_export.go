// handlers_export.go - Composite export and preview handlers
package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vending-visualizer/backend/internal/composite"
	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// ExportHandlerImpl implements the ExportHandler interface
type ExportHandlerImpl struct {
	sessions SessionManager
	renderer visualizer.Renderer
	logger   *zap.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(sessions SessionManager, renderer visualizer.Renderer, logger *zap.Logger) ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandlerImpl{
		sessions: sessions,
		renderer: renderer,
		logger:   logger,
	}
}

// displayQuery reads ?displayWidth&displayHeight. Both absent means the
// stored display size.
func displayQuery(c echo.Context) (models.Size, error) {
	var size models.Size
	w, h := c.QueryParam("displayWidth"), c.QueryParam("displayHeight")
	if w == "" && h == "" {
		return size, nil
	}

	var err error
	if size.Width, err = strconv.ParseFloat(w, 64); err != nil || !models.Finite(size.Width) || size.Width <= 0 {
		return size, NewValidationError("displayWidth")
	}
	if size.Height, err = strconv.ParseFloat(h, 64); err != nil || !models.Finite(size.Height) || size.Height <= 0 {
		return size, NewValidationError("displayHeight")
	}
	return size, nil
}

// HandleExport renders the composite at the photo's native resolution and
// returns it as a PNG download
func (h *ExportHandlerImpl) HandleExport(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	display, err := displayQuery(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	var res composite.Result
	err = h.sessions.With(id, func(v *visualizer.Visualizer) error {
		var err error
		res, err = v.Export(c.Request().Context(), h.renderer, display, &buf)
		return err
	})
	if err != nil {
		return FromError(err, id)
	}

	h.logger.Info("composite exported",
		zap.String("session", id),
		zap.String("file", res.Filename),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.String("size", humanize.Bytes(uint64(res.Bytes))),
	)

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename))
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// HandlePreview renders the composite at display resolution
func (h *ExportHandlerImpl) HandlePreview(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = h.sessions.With(id, func(v *visualizer.Visualizer) error {
		_, err := v.Preview(c.Request().Context(), h.renderer, &buf)
		return err
	})
	if err != nil {
		return FromError(err, id)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}
