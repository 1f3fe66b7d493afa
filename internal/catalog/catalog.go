// Package catalog loads the fixed list of machine archetypes offered by the visualizer.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/vending-visualizer/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// Catalog is an immutable, ordered set of machines.
type Catalog struct {
	machines []models.CatalogMachine
	byID     map[string]int
}

type catalogFile struct {
	Machines []models.CatalogMachine `yaml:"machines"`
}

// New validates machines and builds a catalog from them.
func New(machines []models.CatalogMachine) (*Catalog, error) {
	if len(machines) == 0 {
		return nil, errors.New("catalog has no machines")
	}

	c := &Catalog{
		machines: make([]models.CatalogMachine, len(machines)),
		byID:     make(map[string]int, len(machines)),
	}
	copy(c.machines, machines)

	for i, m := range c.machines {
		if m.ID == "" {
			return nil, fmt.Errorf("machine %d: missing id", i)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("machine %q: duplicate id", m.ID)
		}
		if m.ImageRef == "" {
			return nil, fmt.Errorf("machine %q: missing image", m.ID)
		}
		if m.NominalWidth <= 0 || m.NominalHeight <= 0 {
			return nil, fmt.Errorf("machine %q: nominal size must be positive, got %gx%g", m.ID, m.NominalWidth, m.NominalHeight)
		}
		c.byID[m.ID] = i
	}

	return c, nil
}

// Load parses a YAML catalog file.
func Load(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFS parses a YAML catalog from a filesystem, typically the embedded defaults.
func LoadFS(fsys fs.FS, name string) (*Catalog, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader parses a YAML catalog from an io.Reader.
func LoadFromReader(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var raw catalogFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	return New(raw.Machines)
}

// Lookup returns the machine with the given id.
func (c *Catalog) Lookup(id string) (models.CatalogMachine, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.CatalogMachine{}, false
	}
	return c.machines[i], true
}

// All returns the machines in catalog order.
func (c *Catalog) All() []models.CatalogMachine {
	out := make([]models.CatalogMachine, len(c.machines))
	copy(out, c.machines)
	return out
}

// Len returns the number of machines.
func (c *Catalog) Len() int {
	return len(c.machines)
}
