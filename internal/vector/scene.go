/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "farmlayout/internal/layout"

// Scene is the retained node list mirroring a shape list in draw order.
// Nodes survive Sync so that live transform state behaves like a real
// toolkit's node objects.
type Scene struct {
	nodes []Node
	byID  map[string]Node
}

// NewScene builds nodes for shapes in order.
func NewScene(shapes []layout.Shape) *Scene {
	sc := &Scene{byID: map[string]Node{}}
	sc.Sync(shapes)
	return sc
}

// Sync reconciles the scene with shapes: existing nodes are updated in place,
// new shapes get nodes and removed shapes drop theirs.
func (sc *Scene) Sync(shapes []layout.Shape) {
	nodes := make([]Node, 0, len(shapes))
	byID := make(map[string]Node, len(shapes))
	for _, s := range shapes {
		var n Node
		if cur, ok := sc.byID[s.ShapeID()]; ok {
			n = refresh(cur, s)
		} else {
			n = NewNode(s)
		}
		if n == nil {
			continue
		}
		nodes = append(nodes, n)
		byID[s.ShapeID()] = n
	}
	sc.nodes, sc.byID = nodes, byID
}

// Nodes returns the nodes in draw order (bottom first).
func (sc *Scene) Nodes() []Node { return append([]Node(nil), sc.nodes...) }

// Node looks up the node bound to a shape id.
func (sc *Scene) Node(id string) (Node, bool) {
	n, ok := sc.byID[id]
	return n, ok
}

// Pick returns the top-most node under p.
func (sc *Scene) Pick(p Pt) (string, bool) {
	for i := len(sc.nodes) - 1; i >= 0; i-- {
		if sc.nodes[i].Hit(p) {
			return sc.nodes[i].ShapeID(), true
		}
	}
	return "", false
}

// Select highlights the node with id and clears every other highlight.
// An empty id clears all.
func (sc *Scene) Select(id string) {
	for _, n := range sc.nodes {
		if s, ok := n.(Selectable); ok {
			s.SetSelected(n.ShapeID() == id && id != "")
		}
	}
}

// Bounds is the union of all node bounds; ok is false for an empty scene.
func (sc *Scene) Bounds() (Rect, bool) {
	if len(sc.nodes) == 0 {
		return Rect{}, false
	}
	b := sc.nodes[0].Bounds()
	for _, n := range sc.nodes[1:] {
		b = b.Union(n.Bounds())
	}
	return b, true
}
