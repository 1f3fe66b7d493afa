// handlers_background.go - Background photo handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/storage"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// BackgroundHandlerImpl implements the BackgroundHandler interface
type BackgroundHandlerImpl struct {
	store    storage.Store
	sessions SessionManager
	jobs     JobManager
}

// NewBackgroundHandler creates a new background handler
func NewBackgroundHandler(store storage.Store, sessions SessionManager, jobs JobManager) BackgroundHandler {
	return &BackgroundHandlerImpl{
		store:    store,
		sessions: sessions,
		jobs:     jobs,
	}
}

// HandleUploadBackground accepts a multipart "file" and makes it the
// session background. With ?async=true decoding runs as a job and the
// response is 202 with the job to poll.
func (h *BackgroundHandlerImpl) HandleUploadBackground(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}
	if !h.sessions.TouchSession(id) {
		return NewNotFoundError("session", id)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return NewValidationError("file")
	}

	src, err := fh.Open()
	if err != nil {
		return NewBadRequestError("failed to read upload", err)
	}
	defer src.Close()

	info, err := h.store.Save(fh.Filename, fh.Header.Get(echo.HeaderContentType), src)
	if err != nil {
		return FromError(err, id)
	}

	if async, _ := strconv.ParseBool(c.QueryParam("async")); async && h.jobs != nil {
		return c.JSON(http.StatusAccepted, h.jobs.StartJob(id, info))
	}

	background, err := h.sessions.IngestFile(c.Request().Context(), id, info.ID)
	if err != nil {
		return FromError(err, id)
	}

	state, err := h.sessions.Snapshot(id)
	if err != nil {
		return FromError(err, id)
	}
	return c.JSON(http.StatusOK, stateResponse{Background: background, State: state})
}

// HandleGetBackground streams the original bytes of the session background
func (h *BackgroundHandlerImpl) HandleGetBackground(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	var fileID string
	err = h.sessions.With(id, func(v *visualizer.Visualizer) error {
		if bg, _ := v.Background(); bg != nil {
			fileID = bg.FileID
		}
		return nil
	})
	if err != nil {
		return FromError(err, id)
	}
	if fileID == "" {
		return NewNotFoundError("background", id)
	}

	rc, info, err := h.store.Open(fileID)
	if err != nil {
		return FromError(err, id)
	}
	defer rc.Close()

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Stream(http.StatusOK, info.ContentType, rc)
}

type displaySizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r *displaySizeRequest) validate() error {
	if r.Width <= 0 {
		return NewValidationError("width")
	}
	if r.Height <= 0 {
		return NewValidationError("height")
	}
	return nil
}

// HandleSetDisplaySize records the on-screen canvas size and re-clamps the
// placed machines into it
func (h *BackgroundHandlerImpl) HandleSetDisplaySize(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	var req displaySizeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	resp, err := mutate(h.sessions, id, func(v *visualizer.Visualizer, _ *stateResponse) error {
		return v.SetDisplaySize(models.Size{Width: req.Width, Height: req.Height})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetJob returns the status of an async ingestion job
func (h *BackgroundHandlerImpl) HandleGetJob(c echo.Context) error {
	jobID := c.Param("jobId")
	if jobID == "" {
		return NewValidationError("jobId")
	}
	if h.jobs == nil {
		return NewServiceUnavailableError("background jobs are disabled")
	}

	job, ok := h.jobs.GetJob(jobID)
	if !ok {
		return NewNotFoundError("job", jobID)
	}
	return c.JSON(http.StatusOK, job)
}
