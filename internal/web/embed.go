// Package web provides the embedded default catalog and machine cutout images.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

// CatalogFile is the name of the default catalog inside the asset filesystem.
const CatalogFile = "catalog.yaml"

//go:embed static/*
var staticFiles embed.FS

// GetFileSystem returns the embedded filesystem with the static folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "static")
}

// RegisterStaticRoutes serves machine images from assets under /assets/*.
// Only image files are served; the catalog definition stays internal.
func RegisterStaticRoutes(e *echo.Echo, assets fs.FS) {
	fileServer := http.StripPrefix("/assets/", http.FileServer(http.FS(assets)))

	e.GET("/assets/*", func(c echo.Context) error {
		requestPath := path.Clean("/" + c.Param("*"))
		name := strings.TrimPrefix(requestPath, "/")

		if !isImagePath(name) {
			return echo.NewHTTPError(http.StatusNotFound, "asset not found")
		}

		stat, err := fs.Stat(assets, name)
		if err != nil || stat.IsDir() {
			return echo.NewHTTPError(http.StatusNotFound, "asset not found")
		}

		c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})
}

// HasEmbeddedFiles returns true if the default catalog has been embedded.
func HasEmbeddedFiles() bool {
	entries, err := staticFiles.ReadDir("static")
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.Name() == CatalogFile {
			return true
		}
	}
	return false
}

func isImagePath(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".webp", ".jpg", ".jpeg", ".gif":
		return true
	}
	return false
}
