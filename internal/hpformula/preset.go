package hpformula

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset is a named formula loaded from YAML, e.g. a monster's hit dice.
type Preset struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Formula     Formula `yaml:"formula"`
}

// Validate checks that the preset satisfies basic invariants.
//
// Precondition: p must not be nil.
// Postcondition: Returns nil iff ID and Formula.Expr are non-empty, every
// placeholder has a parameter, and Min <= Max when both are set.
func (p *Preset) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("hp preset: id must not be empty")
	}
	if strings.TrimSpace(p.Formula.Expr) == "" {
		return fmt.Errorf("hp preset %q: formula.expr must not be empty", p.ID)
	}
	if _, err := p.Formula.Substitute(); err != nil {
		return fmt.Errorf("hp preset %q: %w", p.ID, err)
	}
	if p.Formula.Min != nil && p.Formula.Max != nil && *p.Formula.Min > *p.Formula.Max {
		return fmt.Errorf("hp preset %q: formula.min must not exceed formula.max", p.ID)
	}
	return nil
}

// LoadPresetFromBytes parses a single preset from raw YAML bytes.
//
// Postcondition: Returns a validated *Preset, or an error.
func LoadPresetFromBytes(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing preset YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPresets reads all *.yaml files in dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all presets or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadPresets(dir string) ([]*Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading preset dir %q: %w", dir, err)
	}

	var presets []*Preset
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		p, err := LoadPresetFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		presets = append(presets, p)
	}
	return presets, nil
}

// Catalog indexes presets by ID.
type Catalog struct {
	byID map[string]*Preset
}

// NewCatalog builds a Catalog.
//
// Postcondition: Returns an error if two presets share an ID.
func NewCatalog(presets []*Preset) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Preset, len(presets))}
	for _, p := range presets {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("hp preset %q defined twice", p.ID)
		}
		c.byID[p.ID] = p
	}
	return c, nil
}

// Get returns the preset with the given ID.
func (c *Catalog) Get(id string) (*Preset, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// IDs returns every preset ID in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
