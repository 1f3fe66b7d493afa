// Package visualizer holds the state of one vending machine placement
// session: the background photo, the staged catalog selection, the placed
// machine instances and the active drag. It is not safe for concurrent use;
// callers serialise access per session.
package visualizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/vending-visualizer/backend/internal/composite"
	"github.com/vending-visualizer/backend/internal/imaging"
	"github.com/vending-visualizer/backend/internal/models"
)

// Options configures a Visualizer.
type Options struct {
	// Limits bounds accepted background uploads.
	Limits imaging.Limits
	// DisplayMax bounds the default display size of a new background.
	DisplayMax models.Size
}

// Renderer turns scenes into PNG output.
type Renderer interface {
	Export(ctx context.Context, scene composite.Scene, w io.Writer) (composite.Result, error)
	Preview(ctx context.Context, scene composite.Scene, w io.Writer) (composite.Result, error)
}

// Visualizer is the aggregate of one placement session.
type Visualizer struct {
	catalog Catalog
	opts    Options

	background      *models.BackgroundInfo
	backgroundImage image.Image

	selection   *Selector
	placements  *PlacementStore
	interaction *Interaction

	status string
}

// New creates an empty visualizer over catalog.
func New(catalog Catalog, opts Options) *Visualizer {
	placements := NewPlacementStore(catalog)
	return &Visualizer{
		catalog:     catalog,
		opts:        opts,
		selection:   NewSelector(catalog),
		placements:  placements,
		interaction: NewInteraction(placements),
		status:      MsgWelcome,
	}
}

// Status returns the latest user-facing message.
func (v *Visualizer) Status() string {
	return v.status
}

// Background returns the current background and its decoded image, or nil.
func (v *Visualizer) Background() (*models.BackgroundInfo, image.Image) {
	if v.background == nil {
		return nil, nil
	}
	info := *v.background
	return &info, v.backgroundImage
}

// DragState returns the current drag state.
func (v *Visualizer) DragState() DragState {
	return v.interaction.State()
}

// Snapshot returns a copy of the visible state.
func (v *Visualizer) Snapshot() models.CanvasState {
	state := models.CanvasState{
		PlacedMachines: v.placements.List(),
		Selection:      v.selection.Selected(),
		Status:         v.status,
	}
	if v.background != nil {
		info := *v.background
		state.Background = &info
	}
	if id, ok := v.interaction.State().Active(); ok {
		state.ActiveInstanceID = id
	}
	return state
}

// SetDisplaySize records the size of the on-screen canvas and re-clamps
// every placed machine into it.
func (v *Visualizer) SetDisplaySize(size models.Size) error {
	if v.background == nil {
		return v.fail(precondition(MsgNeedBackground))
	}
	if !size.IsPositive() {
		return v.fail(invalidInput(MsgBadDisplaySize, nil))
	}

	v.background.DisplayWidth = size.Width
	v.background.DisplayHeight = size.Height
	v.placements.Reclamp(size)
	return nil
}

// ToggleSelection stages or unstages a catalog machine.
func (v *Visualizer) ToggleSelection(machineID string) (bool, error) {
	selected, err := v.selection.Toggle(machineID)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			v.status = se.Message
		}
		return false, err
	}
	return selected, nil
}

// CommitToCanvas places one instance of every staged machine, centred on
// the canvas, in selection order.
func (v *Visualizer) CommitToCanvas() ([]models.PlacedMachine, error) {
	if v.background == nil {
		return nil, v.fail(precondition(MsgNeedBackground))
	}
	if v.selection.Len() == 0 {
		return nil, v.fail(precondition(MsgNeedSelection))
	}

	canvas := v.background.Display()
	var added []models.PlacedMachine
	for _, id := range v.selection.Selected() {
		machine, ok := v.catalog.Lookup(id)
		if !ok {
			continue
		}
		added = append(added, v.placements.Add(machine, canvas))
	}

	v.status = fmt.Sprintf(MsgPlaced, len(added))
	return added, nil
}

// DragStart makes instanceID the active instance.
func (v *Visualizer) DragStart(instanceID string) error {
	if !v.interaction.DragStart(instanceID) {
		return v.fail(precondition(MsgUnknownInstance))
	}
	return nil
}

// Drag moves the active instance to the pointer position. Moves for any
// instance other than the active one are ignored and report false.
func (v *Visualizer) Drag(instanceID string, pointerX, pointerY float64) (models.PlacedMachine, bool) {
	if v.background == nil {
		return models.PlacedMachine{}, false
	}
	return v.interaction.Drag(instanceID, pointerX, pointerY, v.background.Display())
}

// DragEnd ends the current drag, if any.
func (v *Visualizer) DragEnd() {
	v.interaction.DragEnd()
}

// PaintOrder returns the instances bottom to top as shown on screen.
func (v *Visualizer) PaintOrder() []models.PlacedMachine {
	return v.interaction.PaintOrder()
}

// Move sets the position of an instance without a drag gesture.
func (v *Visualizer) Move(instanceID string, x, y float64) (models.PlacedMachine, error) {
	if err := v.checkControls(instanceID); err != nil {
		return models.PlacedMachine{}, err
	}
	if !models.Finite(x) || !models.Finite(y) {
		return models.PlacedMachine{}, v.fail(invalidInput(MsgBadNumber, nil))
	}
	p, _ := v.placements.UpdatePosition(instanceID, x, y, v.background.Display())
	return p, nil
}

// Scale adjusts the scale of an instance by delta and keeps it inside the
// canvas.
func (v *Visualizer) Scale(instanceID string, delta float64) (models.PlacedMachine, error) {
	if err := v.checkControls(instanceID); err != nil {
		return models.PlacedMachine{}, err
	}
	if !models.Finite(delta) {
		return models.PlacedMachine{}, v.fail(invalidInput(MsgBadNumber, nil))
	}
	p, _ := v.placements.AdjustScale(instanceID, delta)
	p, _ = v.placements.UpdatePosition(instanceID, p.X, p.Y, v.background.Display())
	return p, nil
}

// Rotate adds deltaDegrees to the rotation of an instance. The result is
// reduced modulo 360.
func (v *Visualizer) Rotate(instanceID string, deltaDegrees float64) (models.PlacedMachine, error) {
	if err := v.checkControls(instanceID); err != nil {
		return models.PlacedMachine{}, err
	}
	if !models.Finite(deltaDegrees) {
		return models.PlacedMachine{}, v.fail(invalidInput(MsgBadNumber, nil))
	}
	p, _ := v.placements.AdjustRotation(instanceID, deltaDegrees)
	return p, nil
}

// Remove deletes an instance. Removing the active instance ends the drag.
func (v *Visualizer) Remove(instanceID string) error {
	if err := v.checkControls(instanceID); err != nil {
		return err
	}
	v.placements.Remove(instanceID)
	v.interaction.Forget(instanceID)
	return nil
}

// Reset returns the visualizer to its initial state.
func (v *Visualizer) Reset() {
	v.background = nil
	v.backgroundImage = nil
	v.placements.Reset()
	v.selection.Clear()
	v.interaction.DragEnd()
	v.status = MsgReset
}

// Export renders the composite at the background's native resolution and
// writes it to w. display is the canvas size the user interacted with; a
// zero size uses the stored display size. Nothing is written on failure and
// placements are never modified.
func (v *Visualizer) Export(ctx context.Context, r Renderer, display models.Size, w io.Writer) (composite.Result, error) {
	if v.background == nil {
		return composite.Result{}, v.fail(precondition(MsgExportNoPhoto))
	}
	if v.placements.Len() == 0 {
		return composite.Result{}, v.fail(precondition(MsgExportNoMachine))
	}
	if display == (models.Size{}) {
		display = v.background.Display()
	}
	if !display.IsPositive() {
		return composite.Result{}, v.fail(invalidInput(MsgBadDisplaySize, nil))
	}

	res, err := r.Export(ctx, v.scene(display, v.placements.List()), w)
	if err != nil {
		return composite.Result{}, v.renderFailure(err)
	}

	v.status = fmt.Sprintf(MsgExported, res.Filename)
	return res, nil
}

// Preview renders the composite at display resolution with the active
// instance on top.
func (v *Visualizer) Preview(ctx context.Context, r Renderer, w io.Writer) (composite.Result, error) {
	if v.background == nil {
		return composite.Result{}, v.fail(precondition(MsgNeedBackground))
	}

	res, err := r.Preview(ctx, v.scene(v.background.Display(), v.interaction.PaintOrder()), w)
	if err != nil {
		return composite.Result{}, v.renderFailure(err)
	}
	return res, nil
}

func (v *Visualizer) scene(display models.Size, items []models.PlacedMachine) composite.Scene {
	scene := composite.Scene{
		Background: v.backgroundImage,
		Display:    display,
		Items:      make([]composite.Item, 0, len(items)),
	}
	for _, p := range items {
		machine, ok := v.catalog.Lookup(p.SourceID)
		if !ok {
			continue
		}
		scene.Items = append(scene.Items, composite.Item{
			Ref:      machine.ImageRef,
			Box:      composite.BoxOf(p, machine.NominalSize()),
			Rotation: p.Rotation,
		})
	}
	return scene
}

func (v *Visualizer) renderFailure(err error) error {
	var loadErr *composite.LoadError
	if errors.As(err, &loadErr) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return v.fail(decodeFailure(MsgExportFailed, err))
	}
	return fmt.Errorf("rendering composite: %w", err)
}

func (v *Visualizer) checkControls(instanceID string) error {
	if _, ok := v.placements.Get(instanceID); !ok {
		return v.fail(precondition(MsgUnknownInstance))
	}
	if !v.interaction.ControlsEnabled(instanceID) {
		return v.fail(precondition(MsgBusyDragging))
	}
	return nil
}

func (v *Visualizer) fail(err *StatusError) error {
	v.status = err.Message
	return err
}
