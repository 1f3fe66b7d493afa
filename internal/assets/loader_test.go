package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFSLoader(t *testing.T) {
	fsys := fstest.MapFS{
		"machines/a.png":   &fstest.MapFile{Data: pngBytes(t, 3, 5)},
		"machines/bad.png": &fstest.MapFile{Data: []byte("not a png")},
	}
	loader := NewFSLoader(fsys)
	ctx := context.Background()

	t.Run("loads and caches", func(t *testing.T) {
		img, err := loader.Load(ctx, "machines/a.png")
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 3, 5), img.Bounds())

		again, err := loader.Load(ctx, "/machines/a.png")
		require.NoError(t, err)
		assert.Same(t, img, again)
		assert.Equal(t, 1, loader.Cached())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.Load(ctx, "machines/missing.png")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading asset")
	})

	t.Run("undecodable file is not cached", func(t *testing.T) {
		_, err := loader.Load(ctx, "machines/bad.png")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding asset")
		assert.Equal(t, 1, loader.Cached())
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := loader.Load(cctx, "machines/a.png")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
