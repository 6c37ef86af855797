/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"

	"farmlayout/internal/layout"
)

// Node is a visual item on the render surface bound to one shape.
// It supports bounds and hit-testing in canvas coordinates.
type Node interface {
	ShapeID() string
	Kind() layout.Kind
	Bounds() Rect
	Hit(p Pt) bool
}

// Selectable nodes can be highlighted as the current selection.
type Selectable interface {
	Node
	Selected() bool
	SetSelected(bool)
}

// Transformable nodes carry live drag/resize/rotate state between the
// toolkit's gesture and the transform commit. Scale is relative to the node's
// committed geometry and must be reset to 1:1 once that geometry is updated.
type Transformable interface {
	Selectable
	Position() Pt
	SetPosition(Pt)
	Scale() (sx, sy float64)
	SetScale(sx, sy float64)
	Rotation() float64
	SetRotation(deg float64)
	Transform() Affine2D
}

type baseNode struct {
	id       string
	kind     layout.Kind
	selected bool
}

func (b *baseNode) ShapeID() string    { return b.id }
func (b *baseNode) Kind() layout.Kind  { return b.kind }
func (b *baseNode) Selected() bool     { return b.selected }
func (b *baseNode) SetSelected(v bool) { b.selected = v }

// BodyNode draws a well (circle centered on Position) or a rectangle-like
// shape (top-left at Position). It is draggable and transformable.
type BodyNode struct {
	baseNode
	pos      Pt
	w, h     float64 // committed box size, or 2*radius for wells
	sx, sy   float64
	rotation float64
}

// Position is the top-left of a box or the center of a well.
func (n *BodyNode) Position() Pt              { return n.pos }
func (n *BodyNode) SetPosition(p Pt)          { n.pos = p }
func (n *BodyNode) Scale() (float64, float64) { return n.sx, n.sy }
func (n *BodyNode) SetScale(sx, sy float64)   { n.sx, n.sy = sx, sy }
func (n *BodyNode) Rotation() float64         { return n.rotation }
func (n *BodyNode) SetRotation(deg float64)   { n.rotation = deg }

// Size returns the committed (unscaled) width and height.
func (n *BodyNode) Size() (w, h float64) { return n.w, n.h }

func (n *BodyNode) local() Rect {
	if n.kind == layout.KindWell {
		return Rect{X: -n.w / 2, Y: -n.h / 2, W: n.w, H: n.h}
	}
	return Rect{W: n.w, H: n.h}
}

// Transform maps local geometry to the canvas: translate, rotate, then scale.
func (n *BodyNode) Transform() Affine2D {
	return Translate(n.pos.X, n.pos.Y).Mul(RotateDeg(n.rotation)).Mul(Scale(n.sx, n.sy))
}

func (n *BodyNode) Bounds() Rect { return BoundsOf(n.local(), n.Transform()) }

func (n *BodyNode) Hit(p Pt) bool {
	q := n.Transform().Invert().Apply(p)
	r := n.local()
	if n.kind != layout.KindWell {
		return r.Contains(q)
	}
	rx, ry := r.W/2, r.H/2
	if rx == 0 || ry == 0 {
		return false
	}
	dx, dy := q.X/rx, q.Y/ry
	return dx*dx+dy*dy <= 1
}

// LineHitTolerance widens pipe hit areas beyond half the stroke width.
const LineHitTolerance = 4.0

// LineNode draws a pipe segment. It can be selected but is neither draggable
// nor transformable; pipes are redrawn rather than repositioned.
type LineNode struct {
	baseNode
	a, b   Pt
	width  float64
	dashed bool
}

func (n *LineNode) Points() (Pt, Pt)     { return n.a, n.b }
func (n *LineNode) StrokeWidth() float64 { return n.width }
func (n *LineNode) Dashed() bool         { return n.dashed }

func (n *LineNode) Bounds() Rect {
	pad := n.width / 2
	minX, maxX := math.Min(n.a.X, n.b.X), math.Max(n.a.X, n.b.X)
	minY, maxY := math.Min(n.a.Y, n.b.Y), math.Max(n.a.Y, n.b.Y)
	return Rect{X: minX - pad, Y: minY - pad, W: maxX - minX + 2*pad, H: maxY - minY + 2*pad}
}

func (n *LineNode) Hit(p Pt) bool {
	return SegmentDistance(p, n.a, n.b) <= n.width/2+LineHitTolerance
}

// NewNode builds the visual node for a shape.
func NewNode(s layout.Shape) Node {
	base := baseNode{id: s.ShapeID(), kind: s.Kind()}
	switch v := s.(type) {
	case layout.Well:
		return &BodyNode{baseNode: base, pos: Pt{v.CenterX, v.CenterY}, w: 2 * v.Radius, h: 2 * v.Radius, sx: 1, sy: 1, rotation: v.RotationDegrees}
	case layout.Border, layout.ValveIcon, layout.FilterIcon, layout.FlushIcon:
		b, _ := layout.BoxOf(v)
		return &BodyNode{baseNode: base, pos: Pt{b.X, b.Y}, w: b.Width, h: b.Height, sx: 1, sy: 1, rotation: v.Rotation()}
	case layout.MainPipe:
		return newLineNode(base, v.Segment, false)
	case layout.LateralPipe:
		return newLineNode(base, v.Segment, true)
	}
	return nil
}

func newLineNode(base baseNode, seg layout.Segment, dashed bool) *LineNode {
	p := seg.Points
	return &LineNode{baseNode: base, a: Pt{p[0], p[1]}, b: Pt{p[2], p[3]}, width: seg.StrokeWidthPx, dashed: dashed}
}

// refresh copies committed geometry from s into n, keeping live scale so that a
// missing scale reset shows up as compounding growth.
func refresh(n Node, s layout.Shape) Node {
	fresh := NewNode(s)
	switch cur := n.(type) {
	case *BodyNode:
		if f, ok := fresh.(*BodyNode); ok {
			sx, sy, sel := cur.sx, cur.sy, cur.selected
			*cur = *f
			cur.sx, cur.sy, cur.selected = sx, sy, sel
			return cur
		}
	case *LineNode:
		if f, ok := fresh.(*LineNode); ok {
			sel := cur.selected
			*cur = *f
			cur.selected = sel
			return cur
		}
	}
	return fresh
}
