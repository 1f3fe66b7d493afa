package models

import (
	"math"
	"time"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// IsPositive reports whether both dimensions are finite and greater than
// zero.
func (s Size) IsPositive() bool {
	return Finite(s.Width) && Finite(s.Height) && s.Width > 0 && s.Height > 0
}

// Finite reports whether v is neither NaN nor an infinity.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BackgroundInfo describes the uploaded photo machines are placed on.
// Natural dimensions are the decoded pixel size; display dimensions are the
// size of the on-screen canvas the user interacts with.
type BackgroundInfo struct {
	FileID        string  `json:"fileId,omitempty"`
	Name          string  `json:"name"`
	ContentType   string  `json:"contentType"`
	NaturalWidth  int     `json:"naturalWidth"`
	NaturalHeight int     `json:"naturalHeight"`
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
}

// Natural returns the decoded image size.
func (b *BackgroundInfo) Natural() Size {
	return Size{Width: float64(b.NaturalWidth), Height: float64(b.NaturalHeight)}
}

// Display returns the on-screen canvas size.
func (b *BackgroundInfo) Display() Size {
	return Size{Width: b.DisplayWidth, Height: b.DisplayHeight}
}

// CanvasState is a snapshot of a visualizer.
type CanvasState struct {
	Background       *BackgroundInfo `json:"background,omitempty"`
	PlacedMachines   []PlacedMachine `json:"placedMachines"`
	Selection        []string        `json:"selection"`
	ActiveInstanceID string          `json:"activeInstanceId,omitempty"`
	Status           string          `json:"status"`
}

// SessionInfo describes a visualizer session.
type SessionInfo struct {
	ID           string      `json:"id"`
	CreatedAt    time.Time   `json:"createdAt"`
	LastAccessed time.Time   `json:"lastAccessed"`
	State        CanvasState `json:"state"`
}
