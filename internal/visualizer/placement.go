package visualizer

import (
	"math"

	"github.com/google/uuid"
	"github.com/vending-visualizer/backend/internal/models"
)

// Scale bounds and the default step used by the scale buttons.
const (
	MinScale   = 0.5
	MaxScale   = 1.5
	ScaleStep  = 0.1
	RotateStep = 15.0
)

// Catalog resolves machine ids to catalog entries.
type Catalog interface {
	Lookup(id string) (models.CatalogMachine, bool)
	All() []models.CatalogMachine
}

// PlacementStore holds placed machines in paint order. Operations on an
// unknown instance id are no-ops and report false.
type PlacementStore struct {
	catalog Catalog
	items   []models.PlacedMachine
	newID   func() string
}

// NewPlacementStore creates an empty store resolving nominal sizes through catalog.
func NewPlacementStore(catalog Catalog) *PlacementStore {
	return &PlacementStore{
		catalog: catalog,
		newID:   func() string { return uuid.New().String() },
	}
}

// Add places machine centred on the canvas at scale 1 with no rotation.
func (s *PlacementStore) Add(machine models.CatalogMachine, canvas models.Size) models.PlacedMachine {
	p := models.PlacedMachine{
		InstanceID: s.newID(),
		SourceID:   machine.ID,
		X:          math.Max(0, canvas.Width/2-machine.NominalWidth/2),
		Y:          math.Max(0, canvas.Height/2-machine.NominalHeight/2),
		Scale:      1,
		Rotation:   0,
	}
	s.items = append(s.items, p)
	return p
}

// UpdatePosition moves an instance, clamping its scaled bounding box into the canvas.
func (s *PlacementStore) UpdatePosition(instanceID string, x, y float64, canvas models.Size) (models.PlacedMachine, bool) {
	i := s.index(instanceID)
	if i < 0 {
		return models.PlacedMachine{}, false
	}

	p := &s.items[i]
	if !models.Finite(x) || !models.Finite(y) {
		return *p, false
	}
	scaled := p.ScaledSize(s.nominal(p.SourceID))
	p.X = clampPosition(x, canvas.Width-scaled.Width)
	p.Y = clampPosition(y, canvas.Height-scaled.Height)
	return *p, true
}

// AdjustScale adds delta to the scale, clamped to [MinScale, MaxScale].
func (s *PlacementStore) AdjustScale(instanceID string, delta float64) (models.PlacedMachine, bool) {
	i := s.index(instanceID)
	if i < 0 {
		return models.PlacedMachine{}, false
	}

	p := &s.items[i]
	if !models.Finite(delta) {
		return *p, false
	}
	p.Scale = clamp(roundScale(p.Scale+delta), MinScale, MaxScale)
	return *p, true
}

// AdjustRotation adds deltaDegrees to the rotation, kept in (-360, 360).
func (s *PlacementStore) AdjustRotation(instanceID string, deltaDegrees float64) (models.PlacedMachine, bool) {
	i := s.index(instanceID)
	if i < 0 {
		return models.PlacedMachine{}, false
	}

	p := &s.items[i]
	if !models.Finite(deltaDegrees) {
		return *p, false
	}
	p.Rotation = math.Mod(p.Rotation+deltaDegrees, 360)
	return *p, true
}

// Remove deletes an instance.
func (s *PlacementStore) Remove(instanceID string) bool {
	i := s.index(instanceID)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// Reset empties the store.
func (s *PlacementStore) Reset() {
	s.items = nil
}

// Reclamp re-applies the bounds clamp to every instance, used after the canvas changes size.
func (s *PlacementStore) Reclamp(canvas models.Size) {
	for _, p := range s.items {
		s.UpdatePosition(p.InstanceID, p.X, p.Y, canvas)
	}
}

// Get returns an instance by id.
func (s *PlacementStore) Get(instanceID string) (models.PlacedMachine, bool) {
	i := s.index(instanceID)
	if i < 0 {
		return models.PlacedMachine{}, false
	}
	return s.items[i], true
}

// List returns a copy of the instances in paint order.
func (s *PlacementStore) List() []models.PlacedMachine {
	out := make([]models.PlacedMachine, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of placed instances.
func (s *PlacementStore) Len() int {
	return len(s.items)
}

func (s *PlacementStore) index(instanceID string) int {
	for i := range s.items {
		if s.items[i].InstanceID == instanceID {
			return i
		}
	}
	return -1
}

func (s *PlacementStore) nominal(sourceID string) models.Size {
	m, ok := s.catalog.Lookup(sourceID)
	if !ok {
		return models.Size{}
	}
	return m.NominalSize()
}

// clampPosition clamps v into [0, max]. When the machine is larger than the
// canvas max is negative and the lower bound wins.
func clampPosition(v, max float64) float64 {
	return math.Max(0, math.Min(v, max))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// roundScale drops float noise from repeated button steps.
func roundScale(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
