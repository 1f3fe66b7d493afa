package imaging

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// FitWithin scales (w, h) down to fit inside (maxW, maxH) keeping the aspect
// ratio. It never upscales. A non-positive bound leaves that axis unbounded.
func FitWithin(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	ratio := 1.0
	if maxW > 0 {
		ratio = math.Min(ratio, maxW/w)
	}
	if maxH > 0 {
		ratio = math.Min(ratio, maxH/h)
	}
	return w * ratio, h * ratio
}

// Resample returns src scaled to width x height using Catmull-Rom.
func Resample(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
