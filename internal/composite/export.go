package composite

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vending-visualizer/backend/internal/assets"
)

// FilenamePrefix starts every exported file name.
const FilenamePrefix = "workplace-vending-visualization-"

// LoadError reports a machine image that could not be loaded or decoded.
type LoadError struct {
	Ref string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading machine image %s: %v", e.Ref, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Result describes a rendered PNG.
type Result struct {
	Filename string `json:"filename"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int64  `json:"bytes"`
}

// Exporter renders scenes to PNG, loading machine images through an asset
// loader.
type Exporter struct {
	loader      assets.Loader
	now         func() time.Time
	concurrency int
}

// NewExporter creates an exporter that loads machine images from loader.
func NewExporter(loader assets.Loader) *Exporter {
	return &Exporter{
		loader:      loader,
		now:         time.Now,
		concurrency: 4,
	}
}

// WithClock replaces the clock used for file names.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// Filename returns the download name for an export made at t.
func Filename(t time.Time) string {
	return FilenamePrefix + t.UTC().Format("2006-01-02") + ".png"
}

// Export renders scene at the background's native resolution and writes the
// PNG to w. Nothing is written unless the whole composite succeeds.
func (e *Exporter) Export(ctx context.Context, scene Scene, w io.Writer) (Result, error) {
	if scene.Background == nil {
		return Result{}, fmt.Errorf("scene has no background")
	}
	b := scene.Background.Bounds()
	return e.render(ctx, scene, b.Dx(), b.Dy(), w)
}

// Preview renders scene at display resolution.
func (e *Exporter) Preview(ctx context.Context, scene Scene, w io.Writer) (Result, error) {
	width := int(math.Round(scene.Display.Width))
	height := int(math.Round(scene.Display.Height))
	return e.render(ctx, scene, width, height, w)
}

func (e *Exporter) render(ctx context.Context, scene Scene, width, height int, w io.Writer) (Result, error) {
	images, err := e.loadImages(ctx, scene.Items)
	if err != nil {
		return Result{}, err
	}

	img, err := Render(scene, width, height, images)
	if err != nil {
		return Result{}, fmt.Errorf("rendering composite: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("encoding png: %w", err)
	}

	n, err := buf.WriteTo(w)
	if err != nil {
		return Result{}, fmt.Errorf("writing png: %w", err)
	}

	return Result{
		Filename: Filename(e.now()),
		Width:    width,
		Height:   height,
		Bytes:    n,
	}, nil
}

// loadImages loads every distinct ref concurrently. The first failure
// cancels the rest.
func (e *Exporter) loadImages(ctx context.Context, items []Item) (map[string]image.Image, error) {
	images := make(map[string]image.Image, len(items))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.Ref] {
			continue
		}
		seen[item.Ref] = true

		ref := item.Ref
		g.Go(func() error {
			img, err := e.loader.Load(gctx, ref)
			if err != nil {
				return &LoadError{Ref: ref, Err: err}
			}
			mu.Lock()
			images[ref] = img
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}
