package visualizer

import "github.com/vending-visualizer/backend/internal/models"

// DragState is either Idle (the zero value) or Dragging a single instance.
type DragState struct {
	instanceID string
}

// Idle is the state with no active instance.
func Idle() DragState { return DragState{} }

// Dragging is the state where instanceID is the active instance.
func Dragging(instanceID string) DragState { return DragState{instanceID: instanceID} }

// Active returns the dragged instance id, if any.
func (d DragState) Active() (string, bool) {
	return d.instanceID, d.instanceID != ""
}

// IsIdle reports whether no drag is in progress.
func (d DragState) IsIdle() bool { return d.instanceID == "" }

func (d DragState) String() string {
	if d.IsIdle() {
		return "idle"
	}
	return "dragging(" + d.instanceID + ")"
}

// Interaction turns drag gestures into position updates on a PlacementStore.
// Only one instance can be active at a time.
type Interaction struct {
	store *PlacementStore
	state DragState
}

// NewInteraction returns an idle controller over store.
func NewInteraction(store *PlacementStore) *Interaction {
	return &Interaction{store: store}
}

// State returns the current drag state.
func (c *Interaction) State() DragState {
	return c.state
}

// DragStart makes instanceID the active instance, ending any prior drag.
// Unknown instances are ignored.
func (c *Interaction) DragStart(instanceID string) bool {
	if _, ok := c.store.Get(instanceID); !ok {
		return false
	}
	c.state = Dragging(instanceID)
	return true
}

// Drag moves the active instance so that its top-left corner follows the
// pointer. Calls for any other instance are ignored.
func (c *Interaction) Drag(instanceID string, pointerX, pointerY float64, canvas models.Size) (models.PlacedMachine, bool) {
	if active, ok := c.state.Active(); !ok || active != instanceID {
		return models.PlacedMachine{}, false
	}
	return c.store.UpdatePosition(instanceID, pointerX, pointerY, canvas)
}

// DragEnd clears the active marker.
func (c *Interaction) DragEnd() {
	c.state = Idle()
}

// ControlsEnabled reports whether the discrete controls of instanceID are
// usable. While a drag is in progress only the dragged instance has them.
func (c *Interaction) ControlsEnabled(instanceID string) bool {
	active, ok := c.state.Active()
	return !ok || active == instanceID
}

// Forget returns to Idle if instanceID was the active instance.
func (c *Interaction) Forget(instanceID string) {
	if active, ok := c.state.Active(); ok && active == instanceID {
		c.state = Idle()
	}
}

// PaintOrder returns the placed instances bottom to top: list order with the
// active instance moved last.
func (c *Interaction) PaintOrder() []models.PlacedMachine {
	items := c.store.List()
	active, ok := c.state.Active()
	if !ok {
		return items
	}

	for i, p := range items {
		if p.InstanceID == active {
			copy(items[i:], items[i+1:])
			items[len(items)-1] = p
			break
		}
	}
	return items
}
