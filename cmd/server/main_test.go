package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vending-visualizer/backend/internal/config"
	"github.com/vending-visualizer/backend/internal/testutil"
)

func TestAllowOrigins(t *testing.T) {
	tests := []struct {
		name    string
		enable  bool
		origins string
		want    []string
	}{
		{"disabled", false, "*", nil},
		{"empty means any", true, "", []string{"*"}},
		{"trimmed list", true, "http://a.test, http://b.test", []string{"http://a.test", "http://b.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Server.EnableCORS = tt.enable
			cfg.Server.AllowOrigins = tt.origins
			assert.Equal(t, tt.want, allowOrigins(cfg))
		})
	}
}

func TestVisualizerOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := visualizerOptions(cfg)
	assert.Equal(t, int64(25_000_000), opts.Limits.MaxBytes)
	assert.Equal(t, int64(40_000_000), opts.Limits.MaxPixels)
	assert.Equal(t, 1200.0, opts.DisplayMax.Width)
	assert.Equal(t, 900.0, opts.DisplayMax.Height)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "office.png"), testutil.PNG(400, 300), 0644))

	scenePath := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(scenePath, []byte(`
background: office.png
display: {width: 200, height: 150}
machines:
  - machine: snack-classic
    x: 10
    y: 10
    scale: 0.5
    rotation: 15
`), 0644))

	out := filepath.Join(dir, "out.png")
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"render", "--scene", scenePath, "--out", out})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
	assert.Contains(t, stdout.String(), "400x300")
}
