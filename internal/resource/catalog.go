// internal/resource/catalog.go
//
// Admin resource catalog.
//
// Context
// -------
// Each admin resource is declared once in schemas/<name>.yaml and embedded
// into the binary.  The catalog parses them at startup, registers the
// cross-field rules they reference, and hands schemas to the controllers,
// the table bootstrapper (internal/database), and the CLI.
//
// Notes
// -----
//   - All() returns resources in a fixed order: ordered collections, then
//     singletons, then read-only tables.  Reset and export walk that order.
//   - Oxford commas, two spaces after periods.
package resource

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/yanizio/storefront/internal/record"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// Catalog holds every parsed resource schema.
type Catalog struct {
	byName map[string]*record.Schema
	all    []*record.Schema
}

// Load parses every embedded schema.
func Load() (*Catalog, error) {
	registerRules()

	paths, err := fs.Glob(schemaFS, "schemas/*.yaml")
	if err != nil {
		return nil, err
	}
	c := &Catalog{byName: make(map[string]*record.Schema, len(paths))}
	for _, p := range paths {
		raw, err := schemaFS.ReadFile(p)
		if err != nil {
			return nil, err
		}
		s, err := record.ParseSchema(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if _, dup := c.byName[s.Resource]; dup {
			return nil, fmt.Errorf("%s: resource %q declared twice", p, s.Resource)
		}
		c.byName[s.Resource] = s
		c.all = append(c.all, s)
	}
	sort.SliceStable(c.all, func(i, j int) bool {
		a, b := kindRank(c.all[i].Kind), kindRank(c.all[j].Kind)
		if a != b {
			return a < b
		}
		return c.all[i].Resource < c.all[j].Resource
	})
	return c, nil
}

// MustLoad is Load for main packages and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the schema for name.
func (c *Catalog) Get(name string) (*record.Schema, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// All returns every schema.
func (c *Catalog) All() []*record.Schema {
	return append([]*record.Schema(nil), c.all...)
}

// OfKind returns the schemas of one kind.
func (c *Catalog) OfKind(k record.Kind) []*record.Schema {
	var out []*record.Schema
	for _, s := range c.all {
		if s.Kind == k {
			out = append(out, s)
		}
	}
	return out
}

func kindRank(k record.Kind) int {
	switch k {
	case record.KindOrdered:
		return 0
	case record.KindSingleton:
		return 1
	}
	return 2
}
