/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package templates

import (
	"errors"
	"testing"

	"farmlayout/internal/layout"
)

const testCatalog = `
version: 1
layouts:
  - name: T1
    title: three shapes
    shapes:
      - {kind: well, centerX: 10, centerY: 10, radius: 8}
      - {kind: border, x: 0, y: 0, width: 100, height: 60}
      - {kind: mainPipe, points: [10, 10, 90, 10], strokeWidthPx: 4}
`

func TestInstantiateKnownTemplate(t *testing.T) {
	cat, err := Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	st := layout.NewStore()
	pre := st.Add(layout.Well{Radius: 10})
	st.Select(pre)

	ids, err := Instantiate(st, cat, "T1", nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if len(ids) != 3 || st.Len() != 3 {
		t.Fatalf("want 3 new shapes, got ids=%d len=%d", len(ids), st.Len())
	}
	seen := map[string]bool{pre: true}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("id %q reused", id)
		}
		seen[id] = true
	}
	if _, ok := st.Selected(); ok {
		t.Fatalf("instantiation must not leave a selection")
	}
	snap := st.Snapshot()
	if snap[0].Kind() != layout.KindWell || snap[2].Kind() != layout.KindMainPipe {
		t.Fatalf("blueprint order not kept: %v %v", snap[0].Kind(), snap[2].Kind())
	}
}

func TestInstantiateKeepsCallerShapes(t *testing.T) {
	cat, _ := Parse([]byte(testCatalog))
	st := layout.NewStore()
	keepID := st.Add(layout.ValveIcon{Box: layout.Box{Width: 40, Height: 40}})
	keep, _ := st.Get(keepID)

	if _, err := Instantiate(st, cat, "T1", []layout.Shape{keep}); err != nil {
		t.Fatal(err)
	}
	snap := st.Snapshot()
	if len(snap) != 4 || snap[0].ShapeID() != keepID {
		t.Fatalf("kept shape should lead the new batch: %v", snap)
	}
}

func TestInstantiateUnknownLeavesStoreUnchanged(t *testing.T) {
	cat, _ := Parse([]byte(testCatalog))
	st := layout.NewStore()
	st.Add(layout.Well{Radius: 12})
	st.Add(layout.Border{Box: layout.Box{Width: 50, Height: 50}})
	before := st.Snapshot()

	_, err := Instantiate(st, cat, "does-not-exist", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	after := st.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("store changed on unknown template")
	}
	for i := range before {
		if !layout.Equal(before[i], after[i]) {
			t.Fatalf("shape %d changed", i)
		}
	}
}

func TestLookupReturnsIndependentCopies(t *testing.T) {
	cat, _ := Parse([]byte(testCatalog))
	a, _ := cat.Lookup("T1")
	a[0] = layout.WithID(a[0], "mutated")
	b, _ := cat.Lookup("T1")
	if b[0].ShapeID() != "" {
		t.Fatalf("catalog blueprints leaked state between lookups")
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"id":        "layouts:\n  - name: a\n    shapes:\n      - {id: x, kind: well}\n",
		"kind":      "layouts:\n  - name: a\n    shapes:\n      - {kind: sprinkler}\n",
		"points":    "layouts:\n  - name: a\n    shapes:\n      - {kind: mainPipe, points: [1, 2]}\n",
		"duplicate": "layouts:\n  - name: a\n  - name: a\n",
		"noname":    "layouts:\n  - title: x\n",
		"field":     "layouts:\n  - name: a\n    colour: red\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestStandardCatalog(t *testing.T) {
	cat, err := Standard()
	if err != nil {
		t.Fatalf("embedded catalog invalid: %v", err)
	}
	names := cat.Names()
	if len(names) == 0 {
		t.Fatalf("embedded catalog is empty")
	}
	for _, n := range names {
		shapes, err := cat.Lookup(n)
		if err != nil || len(shapes) == 0 {
			t.Fatalf("template %q: %d shapes, err %v", n, len(shapes), err)
		}
	}
	if tpl, ok := cat.Template("single-block-drip"); !ok || tpl.Title == "" {
		t.Fatalf("single-block-drip missing or untitled")
	}
}
