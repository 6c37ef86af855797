/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"farmlayout/internal/layout"
	"farmlayout/internal/render"
	"farmlayout/internal/storage"
	"farmlayout/internal/templates"
	"farmlayout/internal/vector"
)

type memStore struct {
	layouts map[string][]byte
	saves   int
	err     error
}

func (m *memStore) LoadLayout(_ context.Context, id string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.layouts[id], nil
}

func (m *memStore) SaveLayout(_ context.Context, id string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.layouts[id] = append([]byte(nil), data...)
	return nil
}

func catalog(t *testing.T) templates.Source {
	t.Helper()
	c, err := templates.Standard()
	if err != nil {
		t.Fatalf("Standard: %v", err)
	}
	return c
}

func TestOpenDoubleEncodedAndCommitPlain(t *testing.T) {
	ms := &memStore{layouts: map[string][]byte{
		"F1": []byte(`"[{\"kind\":\"well\",\"centerX\":1,\"centerY\":2,\"radius\":10}]"`),
	}}
	ctx := context.Background()
	s, err := Open(ctx, ms, "F1", Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Shapes.Len() != 1 || len(s.Scene.Nodes()) != 1 {
		t.Fatalf("expected one well in store and scene, got %d/%d", s.Shapes.Len(), len(s.Scene.Nodes()))
	}
	if len(s.Diagnostics()) == 0 {
		t.Fatalf("double-encoded input should be reported")
	}
	if s.Dirty() {
		t.Fatalf("freshly opened session must not be dirty")
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ms.layouts["F1"][0] != '[' {
		t.Fatalf("commit should write a plain list, got %s", ms.layouts["F1"])
	}
	again, err := Open(ctx, ms, "F1", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Diagnostics()) != 0 {
		t.Fatalf("re-opened layout should decode cleanly: %v", again.Diagnostics())
	}
	a, b := s.Shapes.Snapshot(), again.Shapes.Snapshot()
	if !layout.Equal(a[0], b[0]) {
		t.Fatalf("round trip changed the shape: %+v vs %+v", a[0], b[0])
	}
}

func TestOpenGarbageYieldsEmptyDrawing(t *testing.T) {
	ms := &memStore{layouts: map[string][]byte{"F": []byte("not json at all")}}
	s, err := Open(context.Background(), ms, "F", Options{})
	if err != nil {
		t.Fatalf("undecodable layout must not fail Open: %v", err)
	}
	if s.Shapes.Len() != 0 || len(s.Diagnostics()) == 0 {
		t.Fatalf("expected empty drawing with diagnostics, got %d shapes, %v", s.Shapes.Len(), s.Diagnostics())
	}

	missing, err := Open(context.Background(), ms, "never-written", Options{})
	if err != nil || missing.Shapes.Len() != 0 || len(missing.Diagnostics()) != 0 {
		t.Fatalf("absent layout should open empty and clean: %v", err)
	}
}

func TestOpenPropagatesRecordErrors(t *testing.T) {
	boom := errors.New("db down")
	if _, err := Open(context.Background(), &memStore{err: boom}, "F", Options{}); !errors.Is(err, boom) {
		t.Fatalf("expected record error, got %v", err)
	}
}

func TestEditingFlowsIntoSceneAndCommit(t *testing.T) {
	ms := &memStore{layouts: map[string][]byte{}}
	s, err := Open(context.Background(), ms, "F", Options{})
	if err != nil {
		t.Fatal(err)
	}
	edits := 0
	s.OnEdit(func() { edits++ })

	id, err := s.Editor.ChooseTool(layout.KindBorder)
	if err != nil || id == "" {
		t.Fatalf("ChooseTool: %q, %v", id, err)
	}
	n, ok := s.Scene.Node(id)
	if !ok || !n.(vector.Selectable).Selected() {
		t.Fatalf("new border should be in the scene and highlighted")
	}
	if edits == 0 || !s.Dirty() {
		t.Fatalf("edit should notify and mark the session dirty")
	}

	tn, ok := s.Transformable(id)
	if !ok {
		t.Fatalf("border must be transformable")
	}
	tn.SetScale(2, 0.5)
	if _, ok := s.Engine.Commit(tn); !ok {
		t.Fatalf("commit failed")
	}
	sh, _ := s.Shapes.Get(id)
	b, _ := layout.BoxOf(sh)
	if b.Width != 800 || b.Height != 150 {
		t.Fatalf("unexpected committed box: %+v", b)
	}
	if sx, sy := tn.Scale(); sx != 1 || sy != 1 {
		t.Fatalf("live scale not reset: %v,%v", sx, sy)
	}

	if err := s.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Dirty() || ms.saves != 1 {
		t.Fatalf("commit should clear dirty state, saves=%d", ms.saves)
	}
	s.Shapes.ClearSelection()
	if s.Dirty() {
		t.Fatalf("selection changes are not edits")
	}
}

func TestNewFromTemplate(t *testing.T) {
	ms := &memStore{layouts: map[string][]byte{}}
	s, err := NewFromTemplate(ms, "F", "well-and-main", Options{Templates: catalog(t)})
	if err != nil {
		t.Fatalf("NewFromTemplate: %v", err)
	}
	if s.Shapes.Len() != 3 || !s.Dirty() {
		t.Fatalf("expected 3 unsaved shapes, got %d dirty=%v", s.Shapes.Len(), s.Dirty())
	}
	if ms.saves != 0 {
		t.Fatalf("template instantiation must not write")
	}
	before := s.EncodedLayout()
	if _, err := s.ApplyTemplate("does-not-exist", true); !errors.Is(err, templates.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if string(s.EncodedLayout()) != string(before) {
		t.Fatalf("unknown template changed the drawing")
	}
	ids, err := s.ApplyTemplate("well-and-main", true)
	if err != nil || len(ids) != 3 || s.Shapes.Len() != 6 {
		t.Fatalf("keep+template should hold 6 shapes, got %d (%v)", s.Shapes.Len(), err)
	}
	if _, err := NewFromTemplate(ms, "F", "well-and-main", Options{}); !errors.Is(err, templates.ErrNotFound) {
		t.Fatalf("no catalog should report not found, got %v", err)
	}
}

func TestCaptureNeedsMount(t *testing.T) {
	s, err := NewFromTemplate(&memStore{layouts: map[string][]byte{}}, "F", "single-block-drip", Options{Templates: catalog(t)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CaptureSnapshotImage(); !errors.Is(err, render.ErrUnavailable) {
		t.Fatalf("unmounted capture should be unavailable, got %v", err)
	}
	s.MountDefault()
	img, err := s.CaptureSnapshotImage()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Fatalf("unexpected snapshot size %v", b)
	}
	s.Unmount()
	if _, err := s.CaptureSnapshotImage(); !errors.Is(err, render.ErrUnavailable) {
		t.Fatalf("capture after unmount should be unavailable")
	}
}

func pixel(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestCapturePrintsLoadedIcons(t *testing.T) {
	icons := render.NewIconCache(context.Background(), render.BuiltinIcons{Size: 64})
	icons.Preload()
	icons.Wait()
	s, err := Open(context.Background(), &memStore{layouts: map[string][]byte{}}, "F", Options{Icons: icons})
	if err != nil {
		t.Fatal(err)
	}
	s.MountDefault()
	if _, err := s.Editor.ChooseTool(layout.KindValveImage); err != nil {
		t.Fatal(err)
	}

	printed, err := s.CaptureSnapshotImage()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	onScreen := render.Rasterize(s.Scene.Nodes(), 800, 600, 1, s.Style(), s.Icons())
	placeholder := render.Rasterize(s.Scene.Nodes(), 800, 600, 1, s.Style(), nil)

	// the valve is 40x40 centered at (400,300); (388,300) is inside its disc
	got := pixel(printed, 388, 300)
	if want := pixel(onScreen, 388, 300); got != want {
		t.Fatalf("printed pixel %v differs from on-screen pixel %v", got, want)
	}
	if got == pixel(placeholder, 388, 300) {
		t.Fatalf("printed icon is still a placeholder: %v", got)
	}
}

func TestCaptureShowsUncommittedGesture(t *testing.T) {
	s, err := Open(context.Background(), &memStore{layouts: map[string][]byte{}}, "F", Options{})
	if err != nil {
		t.Fatal(err)
	}
	s.MountDefault()
	id, _ := s.Editor.ChooseTool(layout.KindBorder) // 400x300 at (200,150)

	before, _ := s.CaptureSnapshotImage()
	if p := pixel(before, 700, 300); p.R < 200 {
		t.Fatalf("right of the border should be background, got %v", p)
	}
	n, ok := s.Transformable(id)
	if !ok {
		t.Fatalf("border has no transformable node")
	}
	n.SetScale(1.25, 1)
	during, err := s.CaptureSnapshotImage()
	if err != nil {
		t.Fatal(err)
	}
	if p := pixel(during, 700, 300); p.R > 100 {
		t.Fatalf("capture should show the live right edge at x=700, got %v", p)
	}
	b, _ := s.Shapes.Get(id)
	if box, _ := layout.BoxOf(b); box.Width != 400 {
		t.Fatalf("capture must not commit the gesture, width %v", box.Width)
	}
}

func TestSQLiteBackedSession(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DriverSQLite, filepath.Join(t.TempDir(), "farm.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.CreateFarmFile(ctx, "F-9", "Plot 9"); err != nil {
		t.Fatal(err)
	}
	s, err := NewFromTemplate(db, "F-9", "two-zone-submain", Options{Templates: catalog(t)})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	back, err := Open(ctx, db, "F-9", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if back.Shapes.Len() != s.Shapes.Len() || len(back.Diagnostics()) != 0 {
		t.Fatalf("sqlite round trip lost shapes: %d vs %d", back.Shapes.Len(), s.Shapes.Len())
	}
	if _, err := Open(ctx, db, "unknown", Options{}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected storage.ErrNotFound, got %v", err)
	}
}
