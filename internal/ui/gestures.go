/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"math"

	"farmlayout/internal/editor"
	"farmlayout/internal/layout"
	"farmlayout/internal/session"
	"farmlayout/internal/vector"
)

// dragMode represents the current pointer interaction.
type dragMode int

const (
	dragNone dragMode = iota
	dragDraw
	dragMove
	dragScaleNW
	dragScaleNE
	dragScaleSW
	dragScaleSE
	dragRotate
)

func (m dragMode) scaling() bool { return m >= dragScaleNW && m <= dragScaleSE }

// Handle geometry in canvas units.
const (
	HandleSize   = 8.0
	RotateOffset = 24.0
	minLiveScale = 0.01
)

// Controller turns raw pointer press/move/release events on the canvas into
// editor actions and transform gestures. It holds no toolkit types, so the
// fyne widget only converts coordinates and forwards events.
type Controller struct {
	sess *session.Session
	mode dragMode
	node vector.Transformable

	start    vector.Pt // pointer at press
	startPos vector.Pt // node position at press
	startRot float64
	anchor   vector.Pt
	center   vector.Pt
}

func NewController(s *session.Session) *Controller { return &Controller{sess: s} }

// Busy reports whether a press is being tracked.
func (c *Controller) Busy() bool { return c.mode != dragNone }

// selectedNode returns the live node of the selected shape if it can be
// resized.
func (c *Controller) selectedNode() (vector.Transformable, bool) {
	id, ok := c.sess.Shapes.Selected()
	if !ok {
		return nil, false
	}
	return c.sess.Transformable(id)
}

// Handles returns the four corner handles (NW, NE, SW, SE) and the rotation
// handle around the selection, in canvas units.
func Handles(n vector.Node) (corners [4]vector.Rect, rot vector.Rect) {
	b := n.Bounds()
	h := HandleSize / 2
	corners = [4]vector.Rect{
		vector.R(b.X-h, b.Y-h, HandleSize, HandleSize),
		vector.R(b.X+b.W-h, b.Y-h, HandleSize, HandleSize),
		vector.R(b.X-h, b.Y+b.H-h, HandleSize, HandleSize),
		vector.R(b.X+b.W-h, b.Y+b.H-h, HandleSize, HandleSize),
	}
	rot = vector.R(b.X+b.W/2-h, b.Y-RotateOffset-h, HandleSize, HandleSize)
	return corners, rot
}

func (c *Controller) handleAt(n vector.Node, p vector.Pt) dragMode {
	corners, rot := Handles(n)
	if rot.Contains(p) {
		return dragRotate
	}
	for i, r := range corners {
		if r.Contains(p) {
			return dragScaleNW + dragMode(i)
		}
	}
	return dragNone
}

// Press handles a pointer-down at p.
func (c *Controller) Press(p vector.Pt) {
	ed := c.sess.Editor
	if ed.State() == editor.Armed {
		ed.PointerDown(p)
		c.mode = dragDraw
		return
	}
	if n, ok := c.selectedNode(); ok {
		if m := c.handleAt(n, p); m != dragNone {
			c.begin(n, m, p)
			return
		}
	}
	ed.PointerDown(p)
	if n, ok := c.selectedNode(); ok && n.Hit(p) {
		c.begin(n, dragMove, p)
	}
}

func (c *Controller) begin(n vector.Transformable, m dragMode, p vector.Pt) {
	c.node, c.mode, c.start = n, m, p
	c.startPos, c.startRot = n.Position(), n.Rotation()
	b := n.Bounds()
	c.center = b.Center()
	switch m {
	case dragScaleNW:
		c.anchor = b.Max()
	case dragScaleNE:
		c.anchor = vector.Pt{X: b.X, Y: b.Y + b.H}
	case dragScaleSW:
		c.anchor = vector.Pt{X: b.X + b.W, Y: b.Y}
	case dragScaleSE:
		c.anchor = b.Min()
	}
}

// Move handles a pointer-move at p while pressed.
func (c *Controller) Move(p vector.Pt) {
	switch {
	case c.mode == dragDraw:
		c.sess.Editor.PointerMove(p)
	case c.mode == dragMove:
		c.node.SetPosition(vector.Pt{X: c.startPos.X + p.X - c.start.X, Y: c.startPos.Y + p.Y - c.start.Y})
	case c.mode.scaling():
		sx := ratio(p.X-c.anchor.X, c.start.X-c.anchor.X)
		sy := ratio(p.Y-c.anchor.Y, c.start.Y-c.anchor.Y)
		if c.node.Kind() == layout.KindWell {
			sy = sx
		}
		c.node.SetScale(sx, sy)
		c.node.SetPosition(vector.Pt{
			X: c.anchor.X + (c.startPos.X-c.anchor.X)*sx,
			Y: c.anchor.Y + (c.startPos.Y-c.anchor.Y)*sy,
		})
	case c.mode == dragRotate:
		a0 := math.Atan2(c.start.Y-c.center.Y, c.start.X-c.center.X)
		a1 := math.Atan2(p.Y-c.center.Y, p.X-c.center.X)
		c.node.SetRotation(c.startRot + (a1-a0)*180/math.Pi)
	}
}

// ratio is cur/start, kept positive so the live node never mirrors; the
// minimum size is enforced at commit.
func ratio(cur, start float64) float64 {
	if start == 0 {
		return 1
	}
	return max(minLiveScale, cur/start)
}

// Release handles a pointer-up at p and commits whatever the press started.
// It returns the id of a finished pipe, if any.
func (c *Controller) Release(p vector.Pt) (string, bool) {
	mode, n := c.mode, c.node
	c.mode, c.node = dragNone, nil
	switch {
	case mode == dragDraw:
		return c.sess.Editor.PointerUp(p)
	case mode == dragMove:
		if n.Position() != c.startPos {
			c.sess.Engine.CommitDrag(n)
		}
	case mode.scaling() || mode == dragRotate:
		c.sess.Engine.Commit(n)
	}
	return "", false
}
