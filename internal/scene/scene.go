// Package scene reads offline composite descriptions used by the render
// command: a background photo plus machine placements in display
// coordinates.
package scene

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vending-visualizer/backend/internal/composite"
	"github.com/vending-visualizer/backend/internal/models"
	"github.com/vending-visualizer/backend/internal/visualizer"
)

// Placement positions one catalog machine.
type Placement struct {
	Machine string  `yaml:"machine"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	// Scale defaults to 1.
	Scale    float64 `yaml:"scale,omitempty"`
	Rotation float64 `yaml:"rotation,omitempty"`
}

// File is a parsed scene file.
type File struct {
	Background string `yaml:"background"`
	// Display is the canvas the placements refer to. Zero means the
	// background's native size.
	Display  models.Size `yaml:"display,omitempty"`
	Machines []Placement `yaml:"machines"`
}

// Load parses a scene file. A relative background path is resolved against
// the directory of the scene file.
func Load(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !filepath.IsAbs(f.Background) {
		f.Background = filepath.Join(filepath.Dir(path), f.Background)
	}
	return f, nil
}

// Parse reads a scene from r and validates it.
func Parse(r io.Reader) (*File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the fields that do not depend on the catalog.
func (f *File) Validate() error {
	if f.Background == "" {
		return errors.New("scene has no background")
	}
	if f.Display != (models.Size{}) && !f.Display.IsPositive() {
		return fmt.Errorf("display size must be positive, got %gx%g", f.Display.Width, f.Display.Height)
	}
	if len(f.Machines) == 0 {
		return errors.New("scene places no machines")
	}
	for i, p := range f.Machines {
		if p.Machine == "" {
			return fmt.Errorf("placement %d: missing machine", i)
		}
		for _, v := range []float64{p.X, p.Y, p.Scale, p.Rotation} {
			if !models.Finite(v) {
				return fmt.Errorf("placement %d: non-finite value %g", i, v)
			}
		}
		if p.Scale < 0 {
			return fmt.Errorf("placement %d: negative scale %g", i, p.Scale)
		}
	}
	return nil
}

// Build places every machine on the canvas with the same clamping rules as
// an interactive session and returns the scene to render.
func (f *File) Build(catalog visualizer.Catalog, background image.Image) (composite.Scene, []models.PlacedMachine, error) {
	display := f.Display
	if display == (models.Size{}) {
		b := background.Bounds()
		display = models.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}

	store := visualizer.NewPlacementStore(catalog)
	scene := composite.Scene{Background: background, Display: display}

	for i, p := range f.Machines {
		machine, ok := catalog.Lookup(p.Machine)
		if !ok {
			return composite.Scene{}, nil, fmt.Errorf("placement %d: unknown machine %q", i, p.Machine)
		}

		placed := store.Add(machine, display)
		if p.Scale != 0 {
			placed, _ = store.AdjustScale(placed.InstanceID, p.Scale-placed.Scale)
		}
		placed, _ = store.UpdatePosition(placed.InstanceID, p.X, p.Y, display)
		placed, _ = store.AdjustRotation(placed.InstanceID, p.Rotation)

		scene.Items = append(scene.Items, composite.Item{
			Ref:      machine.ImageRef,
			Box:      composite.BoxOf(placed, machine.NominalSize()),
			Rotation: placed.Rotation,
		})
	}

	return scene, store.List(), nil
}
