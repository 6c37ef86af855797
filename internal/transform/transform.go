/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package transform commits drag, resize and rotate gestures from live render
// nodes into shape geometry. Committed sizes never drop below layout.MinSize,
// and node scale is reset to 1:1 after every commit so repeated gestures
// compose instead of compounding.
package transform

import (
	"farmlayout/internal/layout"
	"farmlayout/internal/vector"
)

// Gesture is the state a toolkit reports when a resize/rotate gesture ends.
// X, Y is the node position: top-left for boxes, center for wells.
type Gesture struct {
	X, Y            float64
	ScaleX, ScaleY  float64
	RotationDegrees float64
}

// GestureOf reads the live gesture state from a node.
func GestureOf(n vector.Transformable) Gesture {
	p := n.Position()
	sx, sy := n.Scale()
	return Gesture{X: p.X, Y: p.Y, ScaleX: sx, ScaleY: sy, RotationDegrees: n.Rotation()}
}

// Apply returns s with g committed. Boxes scale width and height independently,
// wells scale their radius by ScaleX only. Pipes are not transformable and come
// back unchanged with ok == false.
func Apply(s layout.Shape, g Gesture) (layout.Shape, bool) {
	switch v := s.(type) {
	case layout.Well:
		v.CenterX, v.CenterY = g.X, g.Y
		v.Radius = max(layout.MinSize, v.Radius*g.ScaleX)
		v.RotationDegrees = g.RotationDegrees
		return v, true
	case layout.Border, layout.ValveIcon, layout.FilterIcon, layout.FlushIcon:
		b, _ := layout.BoxOf(v)
		b = layout.Box{
			X:      g.X,
			Y:      g.Y,
			Width:  max(layout.MinSize, b.Width*g.ScaleX),
			Height: max(layout.MinSize, b.Height*g.ScaleY),
		}
		return layout.WithBox(v, b, g.RotationDegrees), true
	case layout.MainPipe, layout.LateralPipe:
		return s, false
	}
	return s, false
}

// Engine commits gestures against one store.
type Engine struct {
	store *layout.Store
}

func NewEngine(store *layout.Store) *Engine { return &Engine{store: store} }

// Commit writes the node's finished resize/rotate gesture into the store and
// resets the node's scale to 1:1. Stale nodes and pipes are ignored.
func (e *Engine) Commit(n vector.Transformable) (layout.Shape, bool) {
	cur, ok := e.store.Get(n.ShapeID())
	if !ok {
		return nil, false
	}
	next, ok := Apply(cur, GestureOf(n))
	if !ok {
		return cur, false
	}
	e.store.Update(n.ShapeID(), func(layout.Shape) layout.Shape { return next })
	n.SetScale(1, 1)
	return next, true
}

// CommitDrag writes the node's dragged position into the store. Size and
// rotation are untouched.
func (e *Engine) CommitDrag(n vector.Transformable) (layout.Shape, bool) {
	cur, ok := e.store.Get(n.ShapeID())
	if !ok || cur.Kind().IsLine() {
		return cur, false
	}
	p := n.Position()
	e.store.Update(n.ShapeID(), layout.MoveTo(p.X, p.Y))
	next, _ := e.store.Get(n.ShapeID())
	return next, true
}
