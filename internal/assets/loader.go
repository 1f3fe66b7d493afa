// Package assets resolves catalog image references to decoded machine cutouts.
package assets

import (
	"context"
	"fmt"
	"image"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/vending-visualizer/backend/internal/imaging"
)

// Loader resolves an image reference to a decoded image.
type Loader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// FSLoader loads images from a filesystem and caches decoded results.
type FSLoader struct {
	fsys  fs.FS
	mu    sync.RWMutex
	cache map[string]image.Image
}

// NewFSLoader creates a loader rooted at fsys.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{
		fsys:  fsys,
		cache: make(map[string]image.Image),
	}
}

// Load returns the decoded image for ref. Failed loads are not cached.
func (l *FSLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := normalize(ref)

	l.mu.RLock()
	img, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return img, nil
	}

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading asset %s: %w", ref, err)
	}

	img, _, err = imaging.Decode(data, imaging.Limits{})
	if err != nil {
		return nil, fmt.Errorf("decoding asset %s: %w", ref, err)
	}

	l.mu.Lock()
	l.cache[name] = img
	l.mu.Unlock()

	return img, nil
}

// Cached reports how many images are held in the cache.
func (l *FSLoader) Cached() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

func normalize(ref string) string {
	return strings.TrimPrefix(path.Clean("/"+ref), "/")
}
