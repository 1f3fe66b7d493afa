// handlers.go - Shared request and response helpers
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// stateResponse is returned by every operation that changes a session.
type stateResponse struct {
	Placement  *models.PlacedMachine  `json:"placement,omitempty"`
	Placements []models.PlacedMachine `json:"placements,omitempty"`
	Background *models.BackgroundInfo `json:"background,omitempty"`
	Selected   *bool                  `json:"selected,omitempty"`
	State      models.CanvasState     `json:"state"`
}

// sessionParam returns the :sessionId path parameter.
func sessionParam(c echo.Context) (string, error) {
	id := c.Param("sessionId")
	if id == "" {
		return "", NewValidationError("sessionId")
	}
	return id, nil
}

// mutate runs fn against a session and builds a stateResponse from the
// resulting snapshot. Visualizer errors are mapped to API errors after the
// status message has been recorded.
func mutate(sessions SessionManager, id string, fn func(v *visualizer.Visualizer, resp *stateResponse) error) (*stateResponse, error) {
	resp := &stateResponse{}
	err := sessions.With(id, func(v *visualizer.Visualizer) error {
		if err := fn(v, resp); err != nil {
			return err
		}
		resp.State = v.Snapshot()
		return nil
	})
	if err != nil {
		return nil, FromError(err, id)
	}
	return resp, nil
}
