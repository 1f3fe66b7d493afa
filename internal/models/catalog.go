// Package models contains domain types for the vending visualizer.
package models

// CatalogMachine is a static machine archetype that can be placed on a photo.
// NominalWidth and NominalHeight are display pixels at scale 1.0.
type CatalogMachine struct {
	ID            string  `json:"id" yaml:"id"`
	DisplayName   string  `json:"displayName" yaml:"display_name"`
	ModelCode     string  `json:"modelCode" yaml:"model_code"`
	ImageRef      string  `json:"imageRef" yaml:"image"`
	NominalWidth  float64 `json:"nominalWidth" yaml:"width"`
	NominalHeight float64 `json:"nominalHeight" yaml:"height"`
	Description   string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// NominalSize returns the machine dimensions at scale 1.0.
func (m CatalogMachine) NominalSize() Size {
	return Size{Width: m.NominalWidth, Height: m.NominalHeight}
}
