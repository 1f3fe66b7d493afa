// Package imaging decodes uploaded photos and resamples rasters.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrTooLarge is returned when an image exceeds the configured byte or pixel limits.
var ErrTooLarge = errors.New("image too large")

// Limits bounds what Decode accepts. Zero values disable a check.
type Limits struct {
	MaxBytes  int64
	MaxPixels int64
}

// IsImageType reports whether a MIME type names an image.
func IsImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// DetectContentType returns the declared type unless it is missing or
// generic, in which case the type is sniffed from data.
func DetectContentType(declared string, data []byte) string {
	switch strings.ToLower(strings.TrimSpace(declared)) {
	case "", "application/octet-stream":
		return http.DetectContentType(data)
	}
	return declared
}

// DecodeConfig reads only the image header.
func DecodeConfig(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("reading image header: %w", err)
	}
	return cfg, format, nil
}

// Decode checks limits against the header and then decodes the full image.
func Decode(data []byte, limits Limits) (image.Image, string, error) {
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return nil, "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), limits.MaxBytes)
	}

	cfg, _, err := DecodeConfig(data)
	if err != nil {
		return nil, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("image has no pixels: %dx%d", cfg.Width, cfg.Height)
	}
	if limits.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > limits.MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, limits.MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s image: %w", format, err)
	}
	return img, format, nil
}
