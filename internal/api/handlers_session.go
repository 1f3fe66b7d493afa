// handlers_session.go - Session lifecycle handlers
package api

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions SessionManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionManager) SessionHandler {
	return &SessionHandlerImpl{sessions: sessions}
}

// HandleCreateSession starts a new visualizer session
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	return c.JSON(http.StatusCreated, h.sessions.Create())
}

// HandleGetSession returns a session with its current state
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	info, err := h.sessions.Get(id)
	if err != nil {
		return FromError(err, id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleGetStateMsgpack returns the session state as MessagePack using the
// same field names as the JSON form
func (h *SessionHandlerImpl) HandleGetStateMsgpack(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	state, err := h.sessions.Snapshot(id)
	if err != nil {
		return FromError(err, id)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(state); err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}

// HandleDeleteSession removes a session and its uploaded photo
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	if err := h.sessions.Delete(id); err != nil {
		return FromError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive marks a session as in use
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	if !h.sessions.TouchSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}

// HandleResetSession clears the photo, placements and selection
func (h *SessionHandlerImpl) HandleResetSession(c echo.Context) error {
	id, err := sessionParam(c)
	if err != nil {
		return err
	}

	state, err := h.sessions.Reset(id)
	if err != nil {
		return FromError(err, id)
	}
	return c.JSON(http.StatusOK, stateResponse{State: state})
}
