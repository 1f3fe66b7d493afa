// Package composite renders a background photo with placed machines into a
// single raster, mapping display coordinates into the target resolution.
package composite

import (
	"fmt"

	"github.com/vending-visualizer/backend/internal/models"
)

// Rect is an axis-aligned box given by its top-left corner and size.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Center returns the centre point of the box.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// ScaleFactors returns the ratio between the target and the display size on
// each axis.
func ScaleFactors(target, display models.Size) (float64, float64, error) {
	if !display.IsPositive() {
		return 0, 0, fmt.Errorf("display size must be positive, got %gx%g", display.Width, display.Height)
	}
	if !target.IsPositive() {
		return 0, 0, fmt.Errorf("target size must be positive, got %gx%g", target.Width, target.Height)
	}
	return target.Width / display.Width, target.Height / display.Height, nil
}

// MapToNative scales a display-space box into target space.
func MapToNative(box Rect, sx, sy float64) Rect {
	return Rect{
		X:      box.X * sx,
		Y:      box.Y * sy,
		Width:  box.Width * sx,
		Height: box.Height * sy,
	}
}

// BoxOf returns the display-space bounding box of a placed machine.
func BoxOf(p models.PlacedMachine, nominal models.Size) Rect {
	s := p.ScaledSize(nominal)
	return Rect{X: p.X, Y: p.Y, Width: s.Width, Height: s.Height}
}
