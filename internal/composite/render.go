package composite

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/vending-visualizer/backend/internal/imaging"
	"github.com/vending-visualizer/backend/internal/models"
)

// Item is one machine to draw, in display coordinates.
type Item struct {
	Ref      string
	Box      Rect
	Rotation float64 // degrees
}

// Scene is everything needed to render a composite.
type Scene struct {
	Background image.Image
	Display    models.Size
	Items      []Item // paint order, bottom first
}

// Render draws scene at width x height. images maps each item's Ref to its
// decoded cutout; every ref must be present.
func Render(scene Scene, width, height int, images map[string]image.Image) (image.Image, error) {
	if scene.Background == nil {
		return nil, fmt.Errorf("scene has no background")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	target := models.Size{Width: float64(width), Height: float64(height)}
	sx, sy, err := ScaleFactors(target, scene.Display)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContextForRGBA(backgroundAt(scene.Background, width, height))
	for _, item := range scene.Items {
		img, ok := images[item.Ref]
		if !ok {
			return nil, fmt.Errorf("no image loaded for %q", item.Ref)
		}
		DrawInstance(dc, img, MapToNative(item.Box, sx, sy), item.Rotation)
	}
	return dc.Image(), nil
}

// DrawInstance draws img filling box, rotated by rotation degrees about the
// centre of box.
func DrawInstance(dc *gg.Context, img image.Image, box Rect, rotation float64) {
	b := img.Bounds()
	if b.Empty() || box.Width <= 0 || box.Height <= 0 {
		return
	}

	cx, cy := box.Center()
	dc.Push()
	dc.Translate(cx, cy)
	dc.Rotate(gg.Radians(rotation))
	dc.Scale(box.Width/float64(b.Dx()), box.Height/float64(b.Dy()))
	dc.Translate(-float64(b.Min.X)-float64(b.Dx())/2, -float64(b.Min.Y)-float64(b.Dy())/2)
	dc.DrawImage(img, 0, 0)
	dc.Pop()
}

func backgroundAt(bg image.Image, width, height int) *image.RGBA {
	b := bg.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return imaging.Resample(bg, width, height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(dst, dst.Bounds(), bg, b.Min, xdraw.Src)
	return dst
}
