/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"math"
	"testing"

	"farmlayout/internal/layout"
	"farmlayout/internal/session"
	"farmlayout/internal/vector"
)

type noStore struct{}

func (noStore) LoadLayout(context.Context, string) ([]byte, error) { return nil, nil }
func (noStore) SaveLayout(context.Context, string, []byte) error   { return nil }

func newTestSession(t *testing.T) (*session.Session, *Controller) {
	t.Helper()
	s, err := session.Open(context.Background(), noStore{}, "F", session.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return s, NewController(s)
}

func box(t *testing.T, s *session.Session, id string) layout.Box {
	t.Helper()
	sh, ok := s.Shapes.Get(id)
	if !ok {
		t.Fatalf("shape %s missing", id)
	}
	b, ok := layout.BoxOf(sh)
	if !ok {
		t.Fatalf("shape %s is not a box", id)
	}
	return b
}

func TestDrawPipeWithDrag(t *testing.T) {
	s, c := newTestSession(t)
	if _, err := s.Editor.ChooseTool(layout.KindMainPipe); err != nil {
		t.Fatal(err)
	}
	c.Press(vector.Pt{X: 10, Y: 10})
	for x := 20.0; x < 100; x += 20 {
		c.Move(vector.Pt{X: x, Y: 10})
	}
	id, ok := c.Release(vector.Pt{X: 100, Y: 10})
	if !ok || s.Shapes.Len() != 1 {
		t.Fatalf("expected one finished pipe, got %d shapes", s.Shapes.Len())
	}
	sh, _ := s.Shapes.Get(id)
	seg, _ := layout.SegmentOf(sh)
	if seg.Points != [4]float64{10, 10, 100, 10} {
		t.Fatalf("unexpected points %v", seg.Points)
	}
	if c.Busy() {
		t.Fatalf("controller should be idle after release")
	}
}

func TestScaleFromCornerHandle(t *testing.T) {
	s, c := newTestSession(t)
	id, _ := s.Editor.ChooseTool(layout.KindBorder) // 400x300 at (200,150)
	c.Press(vector.Pt{X: 600, Y: 450})
	c.Move(vector.Pt{X: 800, Y: 600})
	c.Release(vector.Pt{X: 800, Y: 600})
	b := box(t, s, id)
	if b.X != 200 || b.Y != 150 || b.Width != 600 || b.Height != 450 {
		t.Fatalf("unexpected box after SE scale: %+v", b)
	}
	n, _ := s.Transformable(id)
	if sx, sy := n.Scale(); sx != 1 || sy != 1 {
		t.Fatalf("live scale not reset: %v,%v", sx, sy)
	}
}

func TestScaleClampsToMinimumSize(t *testing.T) {
	s, c := newTestSession(t)
	id, _ := s.Editor.ChooseTool(layout.KindBorder)
	for i := 0; i < 3; i++ {
		b := box(t, s, id)
		c.Press(vector.Pt{X: b.X, Y: b.Y})
		c.Move(vector.Pt{X: b.X + b.Width - 0.5, Y: b.Y + b.Height - 0.5})
		c.Release(vector.Pt{})
	}
	if b := box(t, s, id); b.Width < layout.MinSize || b.Height < layout.MinSize {
		t.Fatalf("minimum size violated: %+v", b)
	}
}

func TestWellScalesUniformly(t *testing.T) {
	s, c := newTestSession(t)
	id, _ := s.Editor.ChooseTool(layout.KindWell) // r=30 at (400,300)
	c.Press(vector.Pt{X: 430, Y: 330})
	c.Move(vector.Pt{X: 490, Y: 500})
	c.Release(vector.Pt{X: 490, Y: 500})
	sh, _ := s.Shapes.Get(id)
	w := sh.(layout.Well)
	if w.Radius != 60 || w.CenterX != 430 || w.CenterY != 330 {
		t.Fatalf("unexpected well %+v", w)
	}
}

func TestDragMovesAndEmptyPressDeselects(t *testing.T) {
	s, c := newTestSession(t)
	id, _ := s.Editor.ChooseTool(layout.KindBorder)
	s.Shapes.ClearSelection()

	c.Press(vector.Pt{X: 400, Y: 300})
	if sel, _ := s.Shapes.Selected(); sel != id {
		t.Fatalf("press on body should select it")
	}
	c.Move(vector.Pt{X: 450, Y: 320})
	c.Release(vector.Pt{X: 450, Y: 320})
	if b := box(t, s, id); b.X != 250 || b.Y != 170 || b.Width != 400 {
		t.Fatalf("unexpected box after drag: %+v", b)
	}

	c.Press(vector.Pt{X: 790, Y: 590})
	c.Release(vector.Pt{X: 790, Y: 590})
	if _, ok := s.Shapes.Selected(); ok {
		t.Fatalf("press on empty canvas should clear the selection")
	}
}

func TestRotateHandle(t *testing.T) {
	s, c := newTestSession(t)
	id, _ := s.Editor.ChooseTool(layout.KindBorder)
	c.Press(vector.Pt{X: 400, Y: 150 - RotateOffset})
	c.Move(vector.Pt{X: 574, Y: 300})
	c.Release(vector.Pt{X: 574, Y: 300})
	sh, _ := s.Shapes.Get(id)
	if math.Abs(sh.Rotation()-90) > 1e-9 {
		t.Fatalf("rotation = %v, want 90", sh.Rotation())
	}
}

func TestPipesAreNotTransformed(t *testing.T) {
	s, c := newTestSession(t)
	s.Editor.ChooseTool(layout.KindLateralPipe)
	c.Press(vector.Pt{X: 100, Y: 100})
	id, _ := c.Release(vector.Pt{X: 200, Y: 100})
	s.Shapes.Select(id)
	c.Press(vector.Pt{X: 150, Y: 100})
	c.Move(vector.Pt{X: 300, Y: 300})
	c.Release(vector.Pt{X: 300, Y: 300})
	sh, _ := s.Shapes.Get(id)
	seg, _ := layout.SegmentOf(sh)
	if seg.Points != [4]float64{100, 100, 200, 100} {
		t.Fatalf("pipe must not move: %v", seg.Points)
	}
}
