package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/session"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// WebSocket message types for the drag protocol
const (
	// Client -> Server messages
	MsgTypeDragStart = "drag:start"
	MsgTypeDragMove  = "drag:move"
	MsgTypeDragEnd   = "drag:end"
	MsgTypePing      = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypePlacement = "placement"
	MsgTypeState     = "state"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope for every WebSocket frame
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// DragPayload carries the instance and pointer position of a drag message.
// Start and end messages ignore the coordinates.
type DragPayload struct {
	InstanceID string  `json:"instanceId"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// WSErrorResponse is the payload of an error frame
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler streams drag gestures for one session per connection.
// Pointer moves arrive far more often than REST calls are comfortable with,
// so the drag state machine is also exposed here.
type WebSocketHandler struct {
	sessions       SessionManager
	upgrader       websocket.Upgrader
	maxMessageSize int64
	logger         *zap.Logger
}

// NewWebSocketHandler creates a new WebSocket drag handler.
// maxMessageSize is in bytes; zero leaves frames unbounded.
func NewWebSocketHandler(sessions SessionManager, maxMessageSize int64, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
		},
		maxMessageSize: maxMessageSize,
		logger:         logger,
	}
}

// HandleWebSocket upgrades the connection for an existing session and runs
// the drag protocol until the client goes away. A drag this connection
// started and never ended is ended on disconnect.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	sessionID, err := sessionParam(c)
	if err != nil {
		return err
	}
	if !wsh.sessions.TouchSession(sessionID) {
		return NewNotFoundError("session", sessionID)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	if wsh.maxMessageSize > 0 {
		ws.SetReadLimit(wsh.maxMessageSize)
	}

	log := wsh.logger.With(zap.String("session", sessionID))
	log.Debug("websocket client connected")

	var owned string
	defer func() {
		wsh.releaseDrag(sessionID, owned)
		log.Debug("websocket client disconnected")
	}()

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeConnected,
		ID:        sessionID,
		Timestamp: time.Now().UnixMilli(),
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket connection error", zap.Error(err))
			}
			return nil
		}

		switch msg.Type {
		case MsgTypePing:
			wsh.sessions.TouchSession(sessionID)
			wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		case MsgTypeDragStart, MsgTypeDragMove, MsgTypeDragEnd:
			wsh.handleDrag(ws, sessionID, msg, &owned)
		default:
			wsh.sendError(ws, msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}
}

// handleDrag applies one drag message. Start and end reply with the full
// state; moves reply with the updated placement and are silently dropped
// when they do not target the active instance. owned tracks the instance
// whose drag this connection started.
func (wsh *WebSocketHandler) handleDrag(ws *websocket.Conn, sessionID string, msg WSMessage, owned *string) {
	var payload DragPayload
	if msg.Type != MsgTypeDragEnd {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			wsh.sendError(ws, msg.ID, "Invalid drag payload: "+err.Error(), "INVALID_PAYLOAD")
			return
		}
		if payload.InstanceID == "" {
			wsh.sendError(ws, msg.ID, "instanceId is required", "INVALID_PAYLOAD")
			return
		}
		if !models.Finite(payload.X) || !models.Finite(payload.Y) {
			wsh.sendError(ws, msg.ID, "x and y must be finite", "INVALID_PAYLOAD")
			return
		}
	}

	var (
		state   models.CanvasState
		moved   models.PlacedMachine
		applied bool
	)
	err := wsh.sessions.With(sessionID, func(v *visualizer.Visualizer) error {
		switch msg.Type {
		case MsgTypeDragStart:
			if err := v.DragStart(payload.InstanceID); err != nil {
				return err
			}
			*owned = payload.InstanceID
		case MsgTypeDragMove:
			moved, applied = v.Drag(payload.InstanceID, payload.X, payload.Y)
			return nil
		case MsgTypeDragEnd:
			v.DragEnd()
			*owned = ""
		}
		state = v.Snapshot()
		return nil
	})
	if err != nil {
		apiErr := FromError(err, sessionID)
		wsh.sendError(ws, msg.ID, apiErr.Message, apiErr.Code)
		if errors.Is(err, session.ErrNotFound) {
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, apiErr.Message),
				time.Now().Add(time.Second))
		}
		return
	}

	if msg.Type == MsgTypeDragMove {
		if applied {
			wsh.sendMessage(ws, WSMessage{
				Type:      MsgTypePlacement,
				ID:        msg.ID,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(moved),
			})
		}
		return
	}

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeState,
		ID:        msg.ID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(state),
	})
}

// releaseDrag ends the session's drag if it is still the one owned by a
// closing connection. Drags started over REST or by another connection are
// left alone.
func (wsh *WebSocketHandler) releaseDrag(sessionID, owned string) {
	if owned == "" {
		return
	}
	_ = wsh.sessions.With(sessionID, func(v *visualizer.Visualizer) error {
		if active, ok := v.DragState().Active(); ok && active == owned {
			v.DragEnd()
		}
		return nil
	})
}

// Helper methods

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		wsh.logger.Debug("failed to send websocket message", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, id, message, code string) {
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeError,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Message: message,
			Code:    code,
		}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
