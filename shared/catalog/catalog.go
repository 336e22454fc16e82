// Package catalog is the ordered, append-only list of shared object kinds.
// Spawn requests refer to kinds by index so only an integer crosses the wire.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrUnknownKind = errors.New("catalog: unknown object kind")

// Kind describes one spawnable object type.
type Kind struct {
	Name   string `yaml:"name"`
	Prefab string `yaml:"prefab"` // presentation asset id, opaque to the server
}

type file struct {
	Kinds []Kind `yaml:"kinds"`
}

// Catalog is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	kinds  []Kind
	byName map[string]int
}

// New builds a catalog from kinds in order.
func New(kinds ...Kind) *Catalog {
	c := &Catalog{byName: make(map[string]int, len(kinds))}
	for _, k := range kinds {
		c.Append(k)
	}
	return c
}

// Default returns the built-in kitchen catalog.
func Default() *Catalog {
	return New(
		Kind{Name: "tomato", Prefab: "Tomato"},
		Kind{Name: "tomato_slices", Prefab: "TomatoSlices"},
		Kind{Name: "cheese_block", Prefab: "CheeseBlock"},
		Kind{Name: "cheese_slices", Prefab: "CheeseSlices"},
		Kind{Name: "cabbage", Prefab: "Cabbage"},
		Kind{Name: "cabbage_slices", Prefab: "CabbageSlices"},
		Kind{Name: "bread", Prefab: "Bread"},
		Kind{Name: "meat_patty_uncooked", Prefab: "MeatPattyUncooked"},
		Kind{Name: "meat_patty_cooked", Prefab: "MeatPattyCooked"},
		Kind{Name: "meat_patty_burned", Prefab: "MeatPattyBurned"},
		Kind{Name: "plate", Prefab: "Plate"},
	)
}

// Load parses a YAML catalog:
//
//	kinds:
//	  - name: tomato
//	    prefab: Tomato
func Load(r io.Reader) (*Catalog, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(f.Kinds) == 0 {
		return nil, errors.New("catalog: no kinds defined")
	}
	seen := make(map[string]bool, len(f.Kinds))
	for i, k := range f.Kinds {
		if k.Name == "" {
			return nil, fmt.Errorf("catalog: kind %d has no name", i)
		}
		if seen[k.Name] {
			return nil, fmt.Errorf("catalog: duplicate kind %q", k.Name)
		}
		seen[k.Name] = true
	}
	return New(f.Kinds...), nil
}

// LoadFile reads a YAML catalog from fsys.
func LoadFile(fsys fs.FS, path string) (*Catalog, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Append adds k to the end of the catalog and returns its index.
func (c *Catalog) Append(k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds = append(c.kinds, k)
	idx := len(c.kinds) - 1
	if _, exists := c.byName[k.Name]; !exists {
		c.byName[k.Name] = idx
	}
	return idx
}

// Kind resolves an index.
func (c *Catalog) Kind(index int) (Kind, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.kinds) {
		return Kind{}, fmt.Errorf("%w: %d", ErrUnknownKind, index)
	}
	return c.kinds[index], nil
}

// IndexOf returns the index of the first kind named name.
func (c *Catalog) IndexOf(name string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byName[name]
	return idx, ok
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.kinds)
}
