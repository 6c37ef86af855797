/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session ties one farm file's layout field to a live editing
// session. Open decodes the stored value into a shape store and wires the
// editor, the transform engine and the print bridge around it; Commit
// encodes the store and writes the field back. No other field of the farm
// file is read or written.
package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"

	"farmlayout/internal/codec"
	"farmlayout/internal/config"
	"farmlayout/internal/editor"
	"farmlayout/internal/layout"
	applog "farmlayout/internal/log"
	"farmlayout/internal/render"
	"farmlayout/internal/telemetry"
	"farmlayout/internal/templates"
	"farmlayout/internal/transform"
	"farmlayout/internal/vector"
)

// LayoutStore reads and writes the layout field of a farm-file record.
// storage.DB and backend.Client both satisfy it.
type LayoutStore interface {
	LoadLayout(ctx context.Context, id string) ([]byte, error)
	SaveLayout(ctx context.Context, id string, layout []byte) error
}

// Options configures a session. Zero values are usable: the default canvas,
// no templates, placeholder icons and no telemetry.
type Options struct {
	Canvas    config.CanvasConfig
	Templates templates.Source
	Icons     render.IconLookup
	Style     *render.Style
	Scale     float64 // pixel density of captured snapshots
	Telemetry *telemetry.Client
}

// Session is one open farm file. Like the shape store and scene it wraps, it
// must be used from a single goroutine, CaptureSnapshotImage included: the
// capture reads the live nodes that every edit rewrites.
type Session struct {
	fileID  string
	backing LayoutStore
	opt     Options
	style   render.Style
	saved   []byte
	diags   []string
	log     *slog.Logger
	onEdit  []func()

	Shapes *layout.Store
	Scene  *vector.Scene
	Editor *editor.Machine
	Engine *transform.Engine
	Bridge *render.Bridge
}

func newSession(backing LayoutStore, fileID string, opt Options) *Session {
	if opt.Canvas.Width <= 0 || opt.Canvas.Height <= 0 {
		opt.Canvas = config.Defaults().Canvas
	}
	style := render.DefaultStyle()
	if opt.Style != nil {
		style = *opt.Style
	}
	s := &Session{
		fileID:  fileID,
		backing: backing,
		opt:     opt,
		style:   style,
		log:     applog.WithComponent("session").With(slog.String("file", fileID)),
		Shapes:  layout.NewStore(),
		Scene:   vector.NewScene(nil),
		Bridge:  render.NewBridge(style, opt.Icons, opt.Scale),
	}
	s.Editor = editor.New(s.Shapes, s.Scene, opt.Canvas)
	s.Engine = transform.NewEngine(s.Shapes)
	s.Shapes.OnChange(s.changed)
	return s
}

// changed keeps the scene in step with the store.
func (s *Session) changed() {
	s.Scene.Sync(s.Shapes.Snapshot())
	sel, _ := s.Shapes.Selected()
	s.Scene.Select(sel)
	for _, fn := range s.onEdit {
		fn()
	}
}

// Open loads and decodes the layout field of fileID. Undecodable layouts open
// as an empty drawing; Diagnostics reports what was dropped. Only a failure
// to read the record itself is returned as an error.
func Open(ctx context.Context, backing LayoutStore, fileID string, opt Options) (*Session, error) {
	raw, err := backing.LoadLayout(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("open layout of %q: %w", fileID, err)
	}
	s := newSession(backing, fileID, opt)
	var res codec.Result
	if raw != nil {
		res = codec.DecodeContext(ctx, raw)
	}
	s.diags = res.Diagnostics
	s.Shapes.ReplaceAll(res.Shapes)
	s.saved = s.EncodedLayout()
	s.log.InfoContext(ctx, "layout opened",
		slog.Int("shapes", s.Shapes.Len()),
		slog.Int("diagnostics", len(res.Diagnostics)),
		slog.String("strategy", res.Strategy))
	return s, nil
}

// NewFromTemplate starts a session for fileID holding only the named standard
// layout. Nothing is read from or written to backing until Commit.
func NewFromTemplate(backing LayoutStore, fileID, name string, opt Options) (*Session, error) {
	s := newSession(backing, fileID, opt)
	s.saved = s.EncodedLayout()
	if _, err := s.ApplyTemplate(name, false); err != nil {
		return nil, err
	}
	return s, nil
}

// FileID returns the farm file this session edits.
func (s *Session) FileID() string { return s.fileID }

// Canvas returns the canvas configuration in effect.
func (s *Session) Canvas() config.CanvasConfig { return s.opt.Canvas }

// Icons is the icon lookup shared by the print bridge and any on-screen
// canvas, so printed and displayed icons are the same pictures.
func (s *Session) Icons() render.IconLookup { return s.opt.Icons }

// Style is the palette the print bridge paints with.
func (s *Session) Style() render.Style { return s.style }

// Diagnostics lists the problems found while decoding the stored layout.
func (s *Session) Diagnostics() []string { return append([]string(nil), s.diags...) }

// OnEdit registers fn to run after every store mutation, after the scene has
// been synced.
func (s *Session) OnEdit(fn func()) { s.onEdit = append(s.onEdit, fn) }

// EncodedLayout is the wire form of the current drawing.
func (s *Session) EncodedLayout() []byte { return codec.Encode(s.Shapes.Snapshot()) }

// Dirty reports whether the drawing differs from what was last loaded or
// committed. Selection changes do not count.
func (s *Session) Dirty() bool { return !bytes.Equal(s.EncodedLayout(), s.saved) }

// ApplyTemplate replaces the drawing with the named standard layout, keeping
// the current shapes first when keep is set. An unknown name leaves the
// drawing untouched.
func (s *Session) ApplyTemplate(name string, keep bool) ([]string, error) {
	if s.opt.Templates == nil {
		return nil, fmt.Errorf("%w: %q (no catalog)", templates.ErrNotFound, name)
	}
	var kept []layout.Shape
	if keep {
		kept = s.Shapes.Snapshot()
	}
	ids, err := templates.Instantiate(s.Shapes, s.opt.Templates, name, kept)
	if err != nil {
		s.log.Warn("template not applied", slog.String("template", name), slog.Any("err", err))
		return nil, err
	}
	s.opt.Telemetry.TemplateInstantiated(name, len(ids))
	return ids, nil
}

// Commit encodes the drawing and writes it to the layout field.
func (s *Session) Commit(ctx context.Context) error {
	l := applog.WithOperation(s.log, "commit")
	data := s.EncodedLayout()
	if err := s.backing.SaveLayout(ctx, s.fileID, data); err != nil {
		l.ErrorContext(ctx, "save failed", slog.Any("err", err))
		return fmt.Errorf("commit layout of %q: %w", s.fileID, err)
	}
	s.saved = data
	l.InfoContext(ctx, "layout committed", slog.Int("shapes", s.Shapes.Len()), slog.Int("bytes", len(data)))
	s.opt.Telemetry.LayoutCommitted(s.Shapes.Len(), len(data))
	return nil
}

// Mount attaches the scene to the print bridge as a w x h surface and makes
// it the editor's viewport.
func (s *Session) Mount(w, h float64) {
	s.Editor.SetViewport(vector.R(0, 0, w, h))
	s.Bridge.Mount(render.SceneSurface{Scene: s.Scene, Width: w, Height: h})
}

// MountDefault mounts the configured canvas size.
func (s *Session) MountDefault() { s.Mount(s.opt.Canvas.Width, s.opt.Canvas.Height) }

// Unmount detaches the surface; captures then report render.ErrUnavailable.
func (s *Session) Unmount() { s.Bridge.Unmount() }

// CaptureSnapshotImage implements the print routine's hook. Call it from the
// goroutine that edits the session.
func (s *Session) CaptureSnapshotImage() (image.Image, error) {
	return s.Bridge.CaptureSnapshotImage()
}

// Transformable returns the live node of a resizable shape.
func (s *Session) Transformable(id string) (vector.Transformable, bool) {
	n, ok := s.Scene.Node(id)
	if !ok {
		return nil, false
	}
	t, ok := n.(vector.Transformable)
	return t, ok
}
