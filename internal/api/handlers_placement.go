// handlers_placement.go - Selection, placement and drag handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// PlacementHandlerImpl implements the PlacementHandler interface
type PlacementHandlerImpl struct {
	sessions SessionManager
}

// NewPlacementHandler creates a new placement handler
func NewPlacementHandler(sessions SessionManager) PlacementHandler {
	return &PlacementHandlerImpl{sessions: sessions}
}

type positionRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type deltaRequest struct {
	Delta *float64 `json:"delta"`
}

type dragRequest struct {
	InstanceID string  `json:"instanceId"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// dragMoveResponse reports whether a pointer move was applied. Moves for an
// instance that is not being dragged are dropped.
type dragMoveResponse struct {
	Applied   bool                  `json:"applied"`
	Placement *models.PlacedMachine `json:"placement,omitempty"`
}

func instanceParam(c echo.Context) (string, error) {
	id := c.Param("instanceId")
	if id == "" {
		return "", NewValidationError("instanceId")
	}
	return id, nil
}

// validatePointer rejects pointer coordinates that are not finite.
func validatePointer(x, y float64) error {
	if !models.Finite(x) {
		return NewValidationError("x")
	}
	if !models.Finite(y) {
		return NewValidationError("y")
	}
	return nil
}

// bindDelta reads an optional {delta} body, falling back to def.
func bindDelta(c echo.Context, def float64) (float64, error) {
	var req deltaRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return 0, NewBadRequestError("invalid JSON body", err)
		}
	}
	if req.Delta == nil {
		return def, nil
	}
	if !models.Finite(*req.Delta) {
		return 0, NewValidationError("delta")
	}
	return *req.Delta, nil
}

// HandleToggleSelection stages or unstages a catalog machine
func (h *PlacementHandlerImpl) HandleToggleSelection(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	machineID := c.Param("machineId")
	if machineID == "" {
		return NewValidationError("machineId")
	}

	resp, err := mutate(h.sessions, id, func(v *visualizer.Visualizer, resp *stateResponse) error {
		selected, err := v.ToggleSelection(machineID)
		if err != nil {
			return err
		}
		resp.Selected = &selected
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleCommitSelection places the staged machines on the canvas
func (h *PlacementHandlerImpl) HandleCommitSelection(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	resp, err := mutate(h.sessions, id, func(v *visualizer.Visualizer, resp *stateResponse) error {
		added, err := v.CommitToCanvas()
		if err != nil {
			return err
		}
		resp.Placements = added
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// HandleMovePlacement sets the position of an instance
func (h *PlacementHandlerImpl) HandleMovePlacement(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	instanceID, err := instanceParam(c)
	if err != nil {
		return err
	}

	var req positionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.X == nil || !models.Finite(*req.X) {
		return NewValidationError("x")
	}
	if req.Y == nil || !models.Finite(*req.Y) {
		return NewValidationError("y")
	}

	resp, err := mutate(h.sessions, id, func(v *visualizer.Visualizer, resp *stateResponse) error {
		p, err := v.Move(instanceID, *req.X, *req.Y)
		if err != nil {
			return err
		}
		resp.Placement = &p
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleScalePlacement adjusts the scale of an instance. The delta defaults
// to one scale step.
func (h *PlacementHandlerImpl) HandleScalePlacement(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	instanceID, err := instanceParam(c)
	if err != nil {
		return err
	}
	delta, err := bindDelta(c, visualizer.ScaleStep)
	if err != nil {
		return err
	}

	resp, err := mutate(h.sessions, id, func(v *visualizer.Visualizer, resp *stateResponse) error {
		p, err := v.Scale(instanceID, delta)
		if err != nil {
			return err
		}
		resp.Placement = &p
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleRotatePlacement rotates an instance. The delta defaults to one
// rotation step clockwise.
func (h *PlacementHandlerImpl) HandleRotatePlacement(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	instanceID, err := instanceParam(c)
	if err != nil {
		return err
	}
	delta, err := bindDelta(c, visualizer.RotateStep)
	if err != nil {
		return err
	}

	resp, err := mutate(h.sessions, id, func(v *visualizer.Visualizer, resp *stateResponse) error {
		p, err := v.Rotate(instanceID, delta)
		if err != nil {
			return err
		}
		resp.Placement = &p
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleRemovePlacement deletes an instance
func (h *PlacementHandlerImpl) HandleRemovePlacement(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	instanceID, err := instanceParam(c)
	if err != nil {
		return err
	}

	resp, err := mutate(h.sessions, id, func(v *visualizer.Visualizer, _ *stateResponse) error {
		return v.Remove(instanceID)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleDragStart makes an instance the active one
func (h *PlacementHandlerImpl) HandleDragStart(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	var req dragRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.InstanceID == "" {
		return NewValidationError("instanceId")
	}

	resp, err := mutate(h.sessions, id, func(v *visualizer.Visualizer, _ *stateResponse) error {
		return v.DragStart(req.InstanceID)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleDragMove moves the active instance to the pointer position
func (h *PlacementHandlerImpl) HandleDragMove(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	var req dragRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.InstanceID == "" {
		return NewValidationError("instanceId")
	}
	if err := validatePointer(req.X, req.Y); err != nil {
		return err
	}

	var resp dragMoveResponse
	err = h.sessions.With(id, func(v *visualizer.Visualizer) error {
		if p, ok := v.Drag(req.InstanceID, req.X, req.Y); ok {
			resp.Applied = true
			resp.Placement = &p
		}
		return nil
	})
	if err != nil {
		return FromError(err, id)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleDragEnd ends the current drag
func (h *PlacementHandlerImpl) HandleDragEnd(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	resp, err := mutate(h.sessions, id, func(v *visualizer.Visualizer, _ *stateResponse) error {
		v.DragEnd()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
