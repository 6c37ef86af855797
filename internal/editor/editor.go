/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor implements the pointer-driven tool state machine of the farm
// layout canvas. Point and area tools create a shape immediately; pipe tools
// arm a one-shot two-point draw gesture.
package editor

import (
	"errors"
	"fmt"
	"log/slog"

	"farmlayout/internal/config"
	"farmlayout/internal/layout"
	applog "farmlayout/internal/log"
	"farmlayout/internal/vector"
)

var (
	// ErrBusy is returned when a tool is chosen while a pipe is being drawn.
	ErrBusy = errors.New("editor: draw in progress")
	// ErrUnknownTool is returned for kinds outside the closed set.
	ErrUnknownTool = errors.New("editor: unknown tool")
)

// State is the interaction state of the machine.
type State int

const (
	Idle State = iota
	Armed
	Drawing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Drawing:
		return "drawing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Picker resolves a canvas point to the top-most shape under it.
// *vector.Scene satisfies it.
type Picker interface {
	Pick(p vector.Pt) (string, bool)
}

// Defaults is the geometry given to shapes created by the instant tools.
type Defaults struct {
	WellRadius        float64
	BorderWidth       float64
	BorderHeight      float64
	IconSize          float64
	MainPipeStroke    float64
	LateralPipeStroke float64
}

// DefaultsFrom takes the instant-tool geometry from the canvas config.
func DefaultsFrom(c config.CanvasConfig) Defaults {
	return Defaults{
		WellRadius:        c.WellRadius,
		BorderWidth:       c.BorderWidth,
		BorderHeight:      c.BorderHeight,
		IconSize:          c.IconSize,
		MainPipeStroke:    c.MainPipeStroke,
		LateralPipeStroke: c.LateralPipeStroke,
	}
}

// Machine sequences tool choices and pointer events into Shape Store
// mutations. It is driven from a single UI goroutine and is not safe for
// concurrent use.
type Machine struct {
	store    *layout.Store
	picker   Picker
	defaults Defaults
	viewport vector.Rect

	state   State
	tool    layout.Kind
	start   vector.Pt
	drawing string // id of the pipe being drawn

	log *slog.Logger
}

// New returns an idle machine. The viewport starts at the configured canvas size.
func New(store *layout.Store, picker Picker, canvas config.CanvasConfig) *Machine {
	return &Machine{
		store:    store,
		picker:   picker,
		defaults: DefaultsFrom(canvas),
		viewport: vector.R(0, 0, canvas.Width, canvas.Height),
		log:      applog.WithComponent("editor"),
	}
}

func (m *Machine) State() State          { return m.state }
func (m *Machine) Tool() layout.Kind     { return m.tool }
func (m *Machine) Drawing() string       { return m.drawing }
func (m *Machine) Viewport() vector.Rect { return m.viewport }

// SetViewport updates the visible part of the canvas. Instant shapes are
// centered in it.
func (m *Machine) SetViewport(r vector.Rect) { m.viewport = r }

// ChooseTool handles a toolbar action. Point and area kinds add a shape
// centered in the viewport, select it and return its id; pipe kinds arm the
// draw gesture and return "". KindNone disarms. Choosing while Drawing
// returns ErrBusy and leaves the draw untouched.
func (m *Machine) ChooseTool(k layout.Kind) (string, error) {
	if m.state == Drawing {
		return "", ErrBusy
	}
	if k == layout.KindNone {
		m.reset()
		return "", nil
	}
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, k)
	}
	// an armed pipe tool is dropped first, so every choice starts from Idle
	m.reset()
	if k.IsLine() {
		m.state, m.tool = Armed, k
		return "", nil
	}
	id := m.store.Add(m.instantShape(k))
	m.store.Select(id)
	m.log.Debug("shape created", slog.String("kind", string(k)), slog.String("id", id))
	return id, nil
}

func (m *Machine) instantShape(k layout.Kind) layout.Shape {
	c := m.viewport.Center()
	d := m.defaults
	if k == layout.KindWell {
		return layout.Well{CenterX: c.X, CenterY: c.Y, Radius: max(layout.MinSize, d.WellRadius)}
	}
	w, h := d.IconSize, d.IconSize
	if k == layout.KindBorder {
		w, h = d.BorderWidth, d.BorderHeight
	}
	w, h = max(layout.MinSize, w), max(layout.MinSize, h)
	s, _ := layout.NewBoxShape(k, layout.Box{X: c.X - w/2, Y: c.Y - h/2, Width: w, Height: h})
	return s
}

func (m *Machine) strokeFor(k layout.Kind) float64 {
	if k == layout.KindLateralPipe {
		return m.defaults.LateralPipeStroke
	}
	return m.defaults.MainPipeStroke
}

// PointerDown starts a draw when armed. When idle it selects the shape under p,
// or clears the selection on empty canvas.
func (m *Machine) PointerDown(p vector.Pt) {
	switch m.state {
	case Armed:
		s, _ := layout.NewPipe(m.tool, p.X, p.Y, p.X, p.Y, m.strokeFor(m.tool))
		m.drawing = m.store.Add(s)
		m.start = p
		m.state = Drawing
	case Idle:
		if m.picker != nil {
			if id, ok := m.picker.Pick(p); ok {
				m.store.Select(id)
				return
			}
		}
		m.store.ClearSelection()
	case Drawing:
		// a second press during a draw is ignored
	}
}

// PointerMove drags the endpoint of the pipe being drawn. It never adds shapes.
func (m *Machine) PointerMove(p vector.Pt) {
	if m.state != Drawing {
		return
	}
	m.store.Update(m.drawing, layout.SetEndpoint(p.X, p.Y))
}

// PointerUp finishes the draw at p and disarms the tool. A release at the start
// point leaves a zero-length pipe. It returns the finished pipe's id.
func (m *Machine) PointerUp(p vector.Pt) (string, bool) {
	if m.state != Drawing {
		return "", false
	}
	id := m.drawing
	m.store.Update(id, layout.SetEndpoint(p.X, p.Y))
	if p == m.start {
		m.log.Debug("zero-length pipe kept", slog.String("id", id))
	}
	m.reset()
	return id, true
}

// DeleteSelected removes the selected shape and returns to Idle. It reports
// false when nothing was selected. Like a second press, a delete during a
// draw is ignored and the draw continues.
func (m *Machine) DeleteSelected() bool {
	if m.state == Drawing {
		return false
	}
	id, ok := m.store.Selected()
	if !ok {
		return false
	}
	m.reset()
	return m.store.Remove(id)
}

func (m *Machine) reset() {
	m.state, m.tool, m.drawing = Idle, layout.KindNone, ""
	m.start = vector.Pt{}
}
