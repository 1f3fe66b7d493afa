package visualizer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vending-visualizer/backend/internal/assets"
	"github.com/vending-visualizer/backend/internal/catalog"
	"github.com/vending-visualizer/backend/internal/composite"
	"github.com/vending-visualizer/backend/internal/imaging"
	"github.com/vending-visualizer/backend/internal/models"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]models.CatalogMachine{
		{ID: "snack", DisplayName: "Snack", ModelCode: "SM-1", ImageRef: "machines/snack.png", NominalWidth: 180, NominalHeight: 350},
		{ID: "drinks", DisplayName: "Drinks", ModelCode: "DC-2", ImageRef: "machines/drinks.png", NominalWidth: 190, NominalHeight: 360},
		{ID: "coffee", DisplayName: "Coffee", ModelCode: "CS-3", ImageRef: "machines/coffee.png", NominalWidth: 120, NominalHeight: 260},
	})
	require.NoError(t, err)
	return c
}

var backgroundColor = color.RGBA{R: 40, G: 90, B: 160, A: 255}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	return solidPNG(t, w, h, backgroundColor)
}

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// loaded returns a visualizer whose display canvas is 800x600.
func loaded(t *testing.T) *Visualizer {
	t.Helper()
	v := New(testCatalog(t), Options{})
	_, err := v.Ingest(context.Background(), Upload{Name: "room.png", ContentType: "image/png", Data: pngBytes(t, 800, 600)})
	require.NoError(t, err)
	return v
}

func placeOne(t *testing.T, v *Visualizer, machineID string) models.PlacedMachine {
	t.Helper()
	if !v.selection.IsSelected(machineID) {
		_, err := v.ToggleSelection(machineID)
		require.NoError(t, err)
	}
	added, err := v.CommitToCanvas()
	require.NoError(t, err)
	return added[len(added)-1]
}

func TestSelectionCap(t *testing.T) {
	v := New(testCatalog(t), Options{})

	selected, err := v.ToggleSelection("snack")
	require.NoError(t, err)
	assert.True(t, selected)
	_, err = v.ToggleSelection("drinks")
	require.NoError(t, err)

	_, err = v.ToggleSelection("coffee")
	require.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, []string{"snack", "drinks"}, v.Snapshot().Selection)
	assert.Equal(t, MsgSelectionLimit, v.Status())

	selected, err = v.ToggleSelection("snack")
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, []string{"drinks"}, v.Snapshot().Selection)
}

func TestSelectionUnknownMachine(t *testing.T) {
	v := New(testCatalog(t), Options{})
	_, err := v.ToggleSelection("jukebox")
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, v.Snapshot().Selection)
}

func TestAddCentersInstance(t *testing.T) {
	tests := []struct {
		name   string
		canvas models.Size
		wantX  float64
		wantY  float64
	}{
		{"fits", models.Size{Width: 800, Height: 600}, 310, 125},
		{"narrow canvas", models.Size{Width: 100, Height: 600}, 0, 125},
		{"short canvas", models.Size{Width: 800, Height: 200}, 310, 0},
	}
	machine := models.CatalogMachine{ID: "snack", NominalWidth: 180, NominalHeight: 350}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewPlacementStore(testCatalog(t))
			p := store.Add(machine, tt.canvas)
			assert.Equal(t, tt.wantX, p.X)
			assert.Equal(t, tt.wantY, p.Y)
			assert.Equal(t, 1.0, p.Scale)
			assert.Equal(t, 0.0, p.Rotation)
			assert.Equal(t, "snack", p.SourceID)
			assert.NotEmpty(t, p.InstanceID)
		})
	}
}

func TestInstanceIDsAreUnique(t *testing.T) {
	store := NewPlacementStore(testCatalog(t))
	machine := models.CatalogMachine{ID: "snack", NominalWidth: 180, NominalHeight: 350}
	a := store.Add(machine, models.Size{Width: 800, Height: 600})
	b := store.Add(machine, models.Size{Width: 800, Height: 600})
	assert.NotEqual(t, a.InstanceID, b.InstanceID)
	assert.Equal(t, 2, store.Len())
}

func TestDragClamping(t *testing.T) {
	canvas := models.Size{Width: 800, Height: 600}

	tests := []struct {
		name         string
		scale        float64
		px, py       float64
		wantX, wantY float64
	}{
		{"inside", 1, 300, 100, 300, 100},
		{"negative", 1, -50, -10, 0, 0},
		{"past far edge", 1, 1000, 1000, 620, 250},
		{"exact far edge", 1, 620, 250, 620, 250},
		{"scaled up", 1.5, 1000, 1000, 530, 75},
		{"scaled down", 0.5, 1000, 1000, 710, 425},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := loaded(t)
			p := placeOne(t, v, "snack")
			v.placements.AdjustScale(p.InstanceID, tt.scale-1)

			require.NoError(t, v.DragStart(p.InstanceID))
			got, ok := v.Drag(p.InstanceID, tt.px, tt.py)
			require.True(t, ok)
			assert.Equal(t, tt.wantX, got.X)
			assert.Equal(t, tt.wantY, got.Y)

			scaled := got.ScaledSize(models.Size{Width: 180, Height: 350})
			assert.LessOrEqual(t, got.X+scaled.Width, canvas.Width)
			assert.LessOrEqual(t, got.Y+scaled.Height, canvas.Height)
		})
	}
}

func TestClampLowerBoundWinsWhenMachineIsLarger(t *testing.T) {
	store := NewPlacementStore(testCatalog(t))
	p := store.Add(models.CatalogMachine{ID: "snack", NominalWidth: 180, NominalHeight: 350}, models.Size{Width: 100, Height: 100})

	got, ok := store.UpdatePosition(p.InstanceID, 40, 40, models.Size{Width: 100, Height: 100})
	require.True(t, ok)
	assert.Equal(t, 0.0, got.X)
	assert.Equal(t, 0.0, got.Y)
}

func TestScaleBounds(t *testing.T) {
	store := NewPlacementStore(testCatalog(t))
	p := store.Add(models.CatalogMachine{ID: "snack", NominalWidth: 180, NominalHeight: 350}, models.Size{Width: 800, Height: 600})

	for i := 0; i < 5; i++ {
		p, _ = store.AdjustScale(p.InstanceID, ScaleStep)
	}
	assert.Equal(t, 1.5, p.Scale)

	for i := 0; i < 20; i++ {
		p, _ = store.AdjustScale(p.InstanceID, ScaleStep)
		require.LessOrEqual(t, p.Scale, MaxScale)
	}
	assert.Equal(t, MaxScale, p.Scale)

	for i := 0; i < 30; i++ {
		p, _ = store.AdjustScale(p.InstanceID, -ScaleStep)
		require.GreaterOrEqual(t, p.Scale, MinScale)
	}
	assert.Equal(t, MinScale, p.Scale)
}

func TestRotationWrapsAtFullTurn(t *testing.T) {
	v := loaded(t)
	p := placeOne(t, v, "snack")

	for i := 0; i < 30; i++ {
		var err error
		p, err = v.Rotate(p.InstanceID, RotateStep)
		require.NoError(t, err)
	}
	assert.Equal(t, 90.0, p.Rotation)

	p, err := v.Rotate(p.InstanceID, -540)
	require.NoError(t, err)
	assert.Equal(t, -90.0, p.Rotation)
}

func TestRejectsNonFiniteNumbers(t *testing.T) {
	v := loaded(t)
	p := placeOne(t, v, "snack")

	tests := []struct {
		name string
		op   func() (models.PlacedMachine, error)
	}{
		{"move x inf", func() (models.PlacedMachine, error) { return v.Move(p.InstanceID, math.Inf(1), 10) }},
		{"move y nan", func() (models.PlacedMachine, error) { return v.Move(p.InstanceID, 10, math.NaN()) }},
		{"scale nan", func() (models.PlacedMachine, error) { return v.Scale(p.InstanceID, math.NaN()) }},
		{"rotate -inf", func() (models.PlacedMachine, error) { return v.Rotate(p.InstanceID, math.Inf(-1)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op()
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, MsgBadNumber, v.Status())
			assert.Equal(t, []models.PlacedMachine{p}, v.Snapshot().PlacedMachines)
		})
	}

	require.NoError(t, v.DragStart(p.InstanceID))
	_, applied := v.Drag(p.InstanceID, math.Inf(1), math.NaN())
	assert.False(t, applied)
	v.DragEnd()
	assert.Equal(t, []models.PlacedMachine{p}, v.Snapshot().PlacedMachines)

	assert.ErrorIs(t, v.SetDisplaySize(models.Size{Width: math.Inf(1), Height: 600}), ErrInvalidInput)
}

func TestRotationOverflowStillExports(t *testing.T) {
	v := loaded(t)
	p := placeOne(t, v, "snack")

	for i := 0; i < 2; i++ {
		var err error
		p, err = v.Rotate(p.InstanceID, 1e308)
		require.NoError(t, err)
	}
	require.False(t, math.IsInf(p.Rotation, 0) || math.IsNaN(p.Rotation))
	assert.Less(t, math.Abs(p.Rotation), 360.0)

	loader := assets.NewFSLoader(fstest.MapFS{
		"machines/snack.png": {Data: solidPNG(t, 36, 70, color.RGBA{R: 220, G: 20, B: 20, A: 255})},
	})
	var buf bytes.Buffer
	_, err := v.Export(context.Background(), composite.NewExporter(loader), models.Size{}, &buf)
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	size := p.ScaledSize(models.Size{Width: 180, Height: 350})
	cx, cy := int(p.X+size.Width/2), int(p.Y+size.Height/2)
	r, _, _, _ := img.At(cx, cy).RGBA()
	assert.Greater(t, r>>8, uint32(150), "machine is drawn at its centre")
}

func TestUnknownInstanceIsNoop(t *testing.T) {
	store := NewPlacementStore(testCatalog(t))
	store.Add(models.CatalogMachine{ID: "snack", NominalWidth: 180, NominalHeight: 350}, models.Size{Width: 800, Height: 600})
	before := store.List()

	_, ok := store.UpdatePosition("missing", 1, 1, models.Size{Width: 800, Height: 600})
	assert.False(t, ok)
	_, ok = store.AdjustScale("missing", 0.1)
	assert.False(t, ok)
	_, ok = store.AdjustRotation("missing", 15)
	assert.False(t, ok)
	assert.False(t, store.Remove("missing"))
	assert.Equal(t, before, store.List())
}

func TestScaleReclampsPosition(t *testing.T) {
	v := loaded(t)
	p := placeOne(t, v, "snack")

	p, err := v.Move(p.InstanceID, 620, 250)
	require.NoError(t, err)

	p, err = v.Scale(p.InstanceID, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, p.Scale)
	assert.Equal(t, 530.0, p.X)
	assert.Equal(t, 75.0, p.Y)
}

func TestSetDisplaySizeReclamps(t *testing.T) {
	v := loaded(t)
	p := placeOne(t, v, "snack")
	_, err := v.Move(p.InstanceID, 620, 250)
	require.NoError(t, err)

	require.NoError(t, v.SetDisplaySize(models.Size{Width: 400, Height: 400}))
	got := v.Snapshot().PlacedMachines[0]
	assert.Equal(t, 220.0, got.X)
	assert.Equal(t, 50.0, got.Y)

	err = v.SetDisplaySize(models.Size{Width: 0, Height: 400})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDragStateMachine(t *testing.T) {
	v := loaded(t)
	a := placeOne(t, v, "snack")
	b := placeOne(t, v, "snack")

	assert.True(t, v.DragState().IsIdle())
	assert.ErrorIs(t, v.DragStart("missing"), ErrPrecondition)
	assert.True(t, v.DragState().IsIdle())

	require.NoError(t, v.DragStart(a.InstanceID))
	assert.Equal(t, Dragging(a.InstanceID), v.DragState())

	_, ok := v.Drag(b.InstanceID, 10, 10)
	assert.False(t, ok, "moves for inactive instances are ignored")

	require.NoError(t, v.DragStart(b.InstanceID))
	assert.Equal(t, Dragging(b.InstanceID), v.DragState(), "new drag replaces the old one")

	_, ok = v.Drag(a.InstanceID, 10, 10)
	assert.False(t, ok)

	v.DragEnd()
	assert.True(t, v.DragState().IsIdle())
	_, ok = v.Drag(b.InstanceID, 10, 10)
	assert.False(t, ok, "moves after drag end are ignored")
}

func TestPaintOrderRaisesActiveInstance(t *testing.T) {
	v := loaded(t)
	a := placeOne(t, v, "snack")
	b := placeOne(t, v, "snack")
	c := placeOne(t, v, "snack")

	ids := func(items []models.PlacedMachine) []string {
		out := make([]string, len(items))
		for i, p := range items {
			out[i] = p.InstanceID
		}
		return out
	}

	assert.Equal(t, []string{a.InstanceID, b.InstanceID, c.InstanceID}, ids(v.PaintOrder()))

	require.NoError(t, v.DragStart(a.InstanceID))
	assert.Equal(t, []string{b.InstanceID, c.InstanceID, a.InstanceID}, ids(v.PaintOrder()))
	assert.Equal(t, []string{a.InstanceID, b.InstanceID, c.InstanceID}, ids(v.Snapshot().PlacedMachines), "stored order is unchanged")
}

func TestControlsDisabledForOthersWhileDragging(t *testing.T) {
	v := loaded(t)
	a := placeOne(t, v, "snack")
	b := placeOne(t, v, "snack")

	require.NoError(t, v.DragStart(a.InstanceID))

	_, err := v.Scale(b.InstanceID, ScaleStep)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, MsgBusyDragging, v.Status())

	_, err = v.Rotate(a.InstanceID, RotateStep)
	assert.NoError(t, err)
}

func TestRemoveActiveInstanceEndsDrag(t *testing.T) {
	v := loaded(t)
	a := placeOne(t, v, "snack")

	require.NoError(t, v.DragStart(a.InstanceID))
	require.NoError(t, v.Remove(a.InstanceID))
	assert.True(t, v.DragState().IsIdle())
	assert.Empty(t, v.Snapshot().PlacedMachines)

	assert.ErrorIs(t, v.Remove(a.InstanceID), ErrPrecondition)
}

func TestCommitPreconditions(t *testing.T) {
	v := New(testCatalog(t), Options{})
	_, err := v.ToggleSelection("snack")
	require.NoError(t, err)

	_, err = v.CommitToCanvas()
	require.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, MsgNeedBackground, v.Status())

	_, err = v.Ingest(context.Background(), Upload{ContentType: "image/png", Data: pngBytes(t, 800, 600)})
	require.NoError(t, err)
	_, err = v.ToggleSelection("snack")
	require.NoError(t, err)

	_, err = v.CommitToCanvas()
	require.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, MsgNeedSelection, v.Status())
}

func TestCommitPlacesSelectionInOrder(t *testing.T) {
	v := loaded(t)
	for _, id := range []string{"drinks", "snack"} {
		_, err := v.ToggleSelection(id)
		require.NoError(t, err)
	}

	added, err := v.CommitToCanvas()
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, "drinks", added[0].SourceID)
	assert.Equal(t, "snack", added[1].SourceID)
	assert.Equal(t, []string{"drinks", "snack"}, v.Snapshot().Selection, "selection survives commit")

	_, err = v.CommitToCanvas()
	require.NoError(t, err)
	assert.Len(t, v.Snapshot().PlacedMachines, 4, "same machine may be placed again")
}

func TestResetClearsState(t *testing.T) {
	v := loaded(t)
	a := placeOne(t, v, "snack")
	_, err := v.ToggleSelection("drinks")
	require.NoError(t, err)
	require.NoError(t, v.DragStart(a.InstanceID))

	v.Reset()

	state := v.Snapshot()
	assert.Empty(t, state.PlacedMachines)
	assert.Empty(t, state.Selection)
	assert.Nil(t, state.Background)
	assert.Empty(t, state.ActiveInstanceID)
	assert.Equal(t, MsgReset, state.Status)

	v.Reset()
	assert.Empty(t, v.Snapshot().PlacedMachines)
}

func TestIngestRejectsNonImage(t *testing.T) {
	v := loaded(t)
	placeOne(t, v, "snack")
	before := v.Snapshot()

	_, err := v.Ingest(context.Background(), Upload{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, MsgNotImage, v.Status())

	after := v.Snapshot()
	assert.Equal(t, before.Background, after.Background)
	assert.Equal(t, before.PlacedMachines, after.PlacedMachines)
}

func TestIngestSniffsGenericContentType(t *testing.T) {
	v := New(testCatalog(t), Options{})
	info, err := v.Ingest(context.Background(), Upload{ContentType: "application/octet-stream", Data: pngBytes(t, 40, 30)})
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, 40, info.NaturalWidth)
	assert.Equal(t, 30, info.NaturalHeight)
}

func TestIngestFitsDisplaySize(t *testing.T) {
	v := New(testCatalog(t), Options{DisplayMax: models.Size{Width: 800, Height: 800}})
	info, err := v.Ingest(context.Background(), Upload{ContentType: "image/png", Data: pngBytes(t, 2000, 1500)})
	require.NoError(t, err)
	assert.Equal(t, 800.0, info.DisplayWidth)
	assert.Equal(t, 600.0, info.DisplayHeight)

	info, err = v.Ingest(context.Background(), Upload{ContentType: "image/png", Data: pngBytes(t, 300, 200)})
	require.NoError(t, err)
	assert.Equal(t, 300.0, info.DisplayWidth, "never upscaled")
	assert.Equal(t, 200.0, info.DisplayHeight)
}

func TestIngestEnforcesLimits(t *testing.T) {
	v := New(testCatalog(t), Options{Limits: imaging.Limits{MaxPixels: 1000}})
	_, err := v.Ingest(context.Background(), Upload{ContentType: "image/png", Data: pngBytes(t, 100, 100)})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, imaging.ErrTooLarge)
	assert.Equal(t, MsgImageTooLarge, v.Status())
}

func TestNewImageClearsPlacements(t *testing.T) {
	v := loaded(t)
	placeOne(t, v, "snack")
	placeOne(t, v, "snack")
	require.Len(t, v.Snapshot().PlacedMachines, 2)

	_, err := v.Ingest(context.Background(), Upload{ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nbroken")})
	require.ErrorIs(t, err, ErrDecode)
	assert.Len(t, v.Snapshot().PlacedMachines, 2, "failed decode keeps prior state")

	_, err = v.Ingest(context.Background(), Upload{ContentType: "text/plain", Data: []byte("nope")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = v.Ingest(context.Background(), Upload{ContentType: "image/png", Data: pngBytes(t, 640, 480)})
	require.NoError(t, err)
	assert.Empty(t, v.Snapshot().PlacedMachines)
	assert.Equal(t, []string{"snack"}, v.Snapshot().Selection)
	assert.Equal(t, MsgPhotoLoaded, v.Status())
}

type recordingRenderer struct {
	scenes []composite.Scene
}

func (r *recordingRenderer) Export(_ context.Context, scene composite.Scene, w io.Writer) (composite.Result, error) {
	r.scenes = append(r.scenes, scene)
	_, err := w.Write([]byte("png"))
	return composite.Result{Filename: composite.FilenamePrefix + "test.png"}, err
}

func (r *recordingRenderer) Preview(ctx context.Context, scene composite.Scene, w io.Writer) (composite.Result, error) {
	return r.Export(ctx, scene, w)
}

func TestExportRefusesWithoutPlacements(t *testing.T) {
	r := &recordingRenderer{}
	var buf bytes.Buffer

	v := New(testCatalog(t), Options{})
	_, err := v.Export(context.Background(), r, models.Size{}, &buf)
	require.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, MsgExportNoPhoto, v.Status())

	v = loaded(t)
	_, err = v.Export(context.Background(), r, models.Size{}, &buf)
	require.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, MsgExportNoMachine, v.Status())

	assert.Empty(t, r.scenes)
	assert.Zero(t, buf.Len())
}

func TestExportRejectsNonFiniteDisplay(t *testing.T) {
	v := loaded(t)
	placeOne(t, v, "snack")
	r := &recordingRenderer{}
	var buf bytes.Buffer

	for _, display := range []models.Size{
		{Width: math.Inf(1), Height: 600},
		{Width: 800, Height: math.NaN()},
	} {
		_, err := v.Export(context.Background(), r, display, &buf)
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, MsgBadDisplaySize, v.Status())
	}
	assert.Empty(t, r.scenes)
}

func machineAssets(t *testing.T) *assets.FSLoader {
	t.Helper()
	return assets.NewFSLoader(fstest.MapFS{
		"machines/snack.png":  {Data: pngBytes(t, 36, 70)},
		"machines/drinks.png": {Data: pngBytes(t, 38, 72)},
		"machines/coffee.png": {Data: []byte("not an image")},
	})
}

func TestExportWorkedExample(t *testing.T) {
	v := New(testCatalog(t), Options{DisplayMax: models.Size{Width: 800, Height: 800}})
	_, err := v.Ingest(context.Background(), Upload{ContentType: "image/png", Data: pngBytes(t, 2000, 1500)})
	require.NoError(t, err)

	p := placeOne(t, v, "snack")
	_, err = v.Move(p.InstanceID, 100, 50)
	require.NoError(t, err)

	r := &recordingRenderer{}
	var buf bytes.Buffer
	_, err = v.Export(context.Background(), r, models.Size{Width: 800, Height: 600}, &buf)
	require.NoError(t, err)
	require.Len(t, r.scenes, 1)

	scene := r.scenes[0]
	require.Len(t, scene.Items, 1)
	sx, sy, err := composite.ScaleFactors(models.Size{Width: 2000, Height: 1500}, scene.Display)
	require.NoError(t, err)
	assert.Equal(t, composite.Rect{X: 250, Y: 125, Width: 450, Height: 875}, composite.MapToNative(scene.Items[0].Box, sx, sy))
	assert.Equal(t, 0.0, scene.Items[0].Rotation)

	buf.Reset()
	res, err := v.Export(context.Background(), composite.NewExporter(machineAssets(t)), models.Size{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2000, res.Width)
	assert.Equal(t, 1500, res.Height)

	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Width)
	assert.Equal(t, 1500, cfg.Height)
	assert.Contains(t, v.Status(), res.Filename)
}

func TestExportDecodeFailureKeepsPlacements(t *testing.T) {
	v := loaded(t)
	placeOne(t, v, "snack")
	_, err := v.ToggleSelection("coffee")
	require.NoError(t, err)
	_, err = v.CommitToCanvas()
	require.NoError(t, err)
	before := v.Snapshot().PlacedMachines

	var buf bytes.Buffer
	_, err = v.Export(context.Background(), composite.NewExporter(machineAssets(t)), models.Size{}, &buf)
	require.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, MsgExportFailed, v.Status())
	assert.Zero(t, buf.Len())
	assert.Equal(t, before, v.Snapshot().PlacedMachines)
}

func TestPreviewUsesPaintOrder(t *testing.T) {
	v := loaded(t)
	a := placeOne(t, v, "snack")
	_, err := v.ToggleSelection("drinks")
	require.NoError(t, err)
	_, err = v.CommitToCanvas()
	require.NoError(t, err)

	require.NoError(t, v.DragStart(a.InstanceID))

	r := &recordingRenderer{}
	var buf bytes.Buffer
	_, err = v.Preview(context.Background(), r, &buf)
	require.NoError(t, err)

	items := r.scenes[0].Items
	require.NotEmpty(t, items)
	assert.Equal(t, "machines/snack.png", items[len(items)-1].Ref)
}
