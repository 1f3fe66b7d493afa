package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing/fstest"

	"github.com/vending-visualizer/backend/internal/catalog"
	"github.com/vending-visualizer/backend/internal/models"
)

// PNG returns an opaque solid-colour PNG of the given size.
func PNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := color.RGBA{R: 200, G: 180, B: 150, A: 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = fill.R, fill.G, fill.B, fill.A
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Machines is a small catalog used across package tests.
var Machines = []models.CatalogMachine{
	{ID: "snack", DisplayName: "Snack Merchandiser", ModelCode: "SM-1", ImageRef: "machines/snack.png", NominalWidth: 180, NominalHeight: 350},
	{ID: "drinks", DisplayName: "Drinks Cooler", ModelCode: "DC-2", ImageRef: "machines/drinks.png", NominalWidth: 190, NominalHeight: 360},
	{ID: "coffee", DisplayName: "Coffee Station", ModelCode: "CS-3", ImageRef: "machines/coffee.png", NominalWidth: 120, NominalHeight: 260},
}

// Catalog returns a catalog over Machines.
func Catalog() *catalog.Catalog {
	c, err := catalog.New(Machines)
	if err != nil {
		panic(err)
	}
	return c
}

// MachineAssets returns cutout images for every entry in Machines.
func MachineAssets() fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, m := range Machines {
		fsys[m.ImageRef] = &fstest.MapFile{Data: PNG(int(m.NominalWidth)/5, int(m.NominalHeight)/5)}
	}
	return fsys
}
