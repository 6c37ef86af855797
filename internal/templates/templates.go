/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package templates holds the read-only catalog of standard farm layouts and
// expands a named layout into fresh shapes in a store.
package templates

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"farmlayout/internal/layout"
)

// ErrNotFound is returned for template names the catalog does not know.
var ErrNotFound = errors.New("standard layout not found")

//go:embed standard_layouts.yaml
var standardYAML []byte

// Template is one named blueprint batch.
type Template struct {
	Name   string          `yaml:"name"`
	Title  string          `yaml:"title"`
	Shapes []layout.Record `yaml:"shapes"`
}

type file struct {
	Version int        `yaml:"version"`
	Layouts []Template `yaml:"layouts"`
}

// Source looks up blueprint shapes by template name. Implementations return
// ErrNotFound (possibly wrapped) for unknown names.
type Source interface {
	Lookup(name string) ([]layout.Shape, error)
}

// Catalog is an immutable set of templates.
type Catalog struct {
	Version int
	byName  map[string]Template
	order   []string
}

// Parse reads a catalog document. Every blueprint must convert to a valid
// shape; ids in blueprints are rejected.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f file
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse standard layouts: %w", err)
	}
	c := &Catalog{Version: f.Version, byName: make(map[string]Template, len(f.Layouts))}
	for _, t := range f.Layouts {
		if t.Name == "" {
			return nil, errors.New("standard layout without name")
		}
		if _, dup := c.byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate standard layout %q", t.Name)
		}
		for i, r := range t.Shapes {
			if r.ID != "" {
				return nil, fmt.Errorf("layout %q shape %d: blueprints must not carry ids", t.Name, i)
			}
			if _, err := layout.FromRecord(r); err != nil {
				return nil, fmt.Errorf("layout %q shape %d: %w", t.Name, i, err)
			}
		}
		c.byName[t.Name] = t
		c.order = append(c.order, t.Name)
	}
	return c, nil
}

// Standard returns the catalog embedded in the binary.
func Standard() (*Catalog, error) { return Parse(standardYAML) }

// Names lists template names in document order.
func (c *Catalog) Names() []string { return slices.Clone(c.order) }

// Template returns the named template's metadata and records.
func (c *Catalog) Template(name string) (Template, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Lookup returns freshly built blueprint shapes for name. The result shares no
// state with the catalog.
func (c *Catalog) Lookup(name string) ([]layout.Shape, error) {
	t, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	out := make([]layout.Shape, 0, len(t.Shapes))
	for _, r := range t.Shapes {
		s, err := layout.FromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Instantiate replaces the store's contents with keep followed by the named
// template's shapes under fresh ids, and returns the new ids. On any lookup
// failure the store is left untouched.
func Instantiate(store *layout.Store, src Source, name string, keep []layout.Shape) ([]string, error) {
	blueprints, err := src.Lookup(name)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(keep)+len(blueprints))
	for _, s := range keep {
		taken[s.ShapeID()] = true
	}
	all := slices.Clone(keep)
	ids := make([]string, 0, len(blueprints))
	for _, b := range blueprints {
		id := store.NewID()
		for taken[id] {
			id = store.NewID()
		}
		taken[id] = true
		ids = append(ids, id)
		all = append(all, layout.WithID(b, id))
	}
	store.ReplaceAll(all)
	return ids, nil
}
