/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import "github.com/google/uuid"

// Patch rewrites fields of a shape. The store restores the original ID on the
// result, so a patch cannot re-key a shape.
type Patch func(Shape) Shape

// Store owns the ordered shape list of one editing session together with the
// selection singleton. It is not safe for concurrent use; every mutation runs
// on the UI event goroutine.
type Store struct {
	order    []string
	shapes   map[string]Shape
	selected string
	newID    func() string
	onChange func()
}

// NewStore returns an empty store that issues UUID ids.
func NewStore() *Store { return NewStoreWithIDs(uuid.NewString) }

// NewStoreWithIDs returns an empty store using gen for fresh ids. gen must not
// repeat a value within the store's lifetime.
func NewStoreWithIDs(gen func() string) *Store {
	return &Store{shapes: make(map[string]Shape), newID: gen}
}

// OnChange registers fn to run after every mutation (including selection changes).
func (s *Store) OnChange(fn func()) { s.onChange = fn }

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// NewID returns a fresh id that is not used by any shape in the store.
func (s *Store) NewID() string {
	for {
		id := s.newID()
		if _, taken := s.shapes[id]; !taken && id != "" {
			return id
		}
	}
}

// Add appends shape under a fresh id and returns that id. Any id already on the
// shape is replaced.
func (s *Store) Add(shape Shape) string {
	id := s.NewID()
	s.shapes[id] = shape.withID(id)
	s.order = append(s.order, id)
	s.changed()
	return id
}

// Update applies patch to the shape with the given id. It reports false and
// does nothing when the id is absent.
func (s *Store) Update(id string, patch Patch) bool {
	cur, ok := s.shapes[id]
	if !ok || patch == nil {
		return false
	}
	next := patch(cur)
	if next == nil {
		return false
	}
	s.shapes[id] = next.withID(id)
	s.changed()
	return true
}

// Remove deletes the shape with the given id and clears the selection if it
// pointed at it. Unknown ids are ignored.
func (s *Store) Remove(id string) bool {
	if _, ok := s.shapes[id]; !ok {
		return false
	}
	delete(s.shapes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = ""
	}
	s.changed()
	return true
}

// ReplaceAll discards the current list and selection and installs shapes in
// order. Shapes with an empty or repeated id receive a fresh one.
func (s *Store) ReplaceAll(shapes []Shape) {
	s.order = make([]string, 0, len(shapes))
	s.shapes = make(map[string]Shape, len(shapes))
	s.selected = ""
	for _, sh := range shapes {
		if sh == nil {
			continue
		}
		id := sh.ShapeID()
		if _, dup := s.shapes[id]; id == "" || dup {
			id = s.NewID()
			sh = sh.withID(id)
		}
		s.shapes[id] = sh
		s.order = append(s.order, id)
	}
	s.changed()
}

// Snapshot returns a copy of the ordered shape list.
func (s *Store) Snapshot() []Shape {
	out := make([]Shape, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.shapes[id])
	}
	return out
}

// Get returns the shape with the given id.
func (s *Store) Get(id string) (Shape, bool) {
	sh, ok := s.shapes[id]
	return sh, ok
}

// Len returns the number of shapes.
func (s *Store) Len() int { return len(s.order) }

// Select makes id the single selected shape. Unknown ids are ignored.
func (s *Store) Select(id string) bool {
	if _, ok := s.shapes[id]; !ok {
		return false
	}
	if s.selected != id {
		s.selected = id
		s.changed()
	}
	return true
}

// ClearSelection deselects whatever is selected.
func (s *Store) ClearSelection() {
	if s.selected != "" {
		s.selected = ""
		s.changed()
	}
}

// Selected returns the selected id, if any.
func (s *Store) Selected() (string, bool) { return s.selected, s.selected != "" }

// SetEndpoint moves the second point of a pipe. Non-pipes are returned unchanged.
func SetEndpoint(x, y float64) Patch {
	return func(sh Shape) Shape {
		switch v := sh.(type) {
		case MainPipe:
			v.Points[2], v.Points[3] = x, y
			return v
		case LateralPipe:
			v.Points[2], v.Points[3] = x, y
			return v
		}
		return sh
	}
}

// MoveTo places a shape's anchor at (x, y): the center of a well, the top-left
// of a box. Pipes are redrawn rather than moved and are returned unchanged.
func MoveTo(x, y float64) Patch {
	return func(sh Shape) Shape {
		switch v := sh.(type) {
		case Well:
			v.CenterX, v.CenterY = x, y
			return v
		case Border, ValveIcon, FilterIcon, FlushIcon:
			b, _ := BoxOf(v)
			b.X, b.Y = x, y
			return WithBox(v, b, v.Rotation())
		}
		return sh
	}
}
