package models

// PlacedMachine is a live instance of a catalog machine on the canvas.
// X and Y are the top-left corner in display coordinates.
type PlacedMachine struct {
	InstanceID string  `json:"instanceId"`
	SourceID   string  `json:"sourceId"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Scale      float64 `json:"scale"`
	Rotation   float64 `json:"rotation"` // degrees, cumulative
}

// ScaledSize returns the on-screen size of the instance for the given nominal size.
func (p PlacedMachine) ScaledSize(nominal Size) Size {
	return Size{Width: nominal.Width * p.Scale, Height: nominal.Height * p.Scale}
}
