//go:build fyne && cgo

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
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"farmlayout/internal/crash"
	"farmlayout/internal/export"
	"farmlayout/internal/layout"
	applog "farmlayout/internal/log"
	"farmlayout/internal/render"
	"farmlayout/internal/session"
	"farmlayout/internal/vector"
)

// LayoutCanvas is the fyne render surface of a session. Canvas units map 1:1
// to fyne's device-independent units; the raster is drawn at the output's
// pixel density with the session's style and icons, the same ones the print
// bridge uses.
type LayoutCanvas struct {
	widget.BaseWidget
	sess *session.Session
	ctl  *Controller
}

var (
	_ desktop.Mouseable = (*LayoutCanvas)(nil)
	_ fyne.Draggable    = (*LayoutCanvas)(nil)
)

func NewLayoutCanvas(s *session.Session) *LayoutCanvas {
	lc := &LayoutCanvas{sess: s, ctl: NewController(s)}
	lc.ExtendBaseWidget(lc)
	s.OnEdit(lc.Refresh)
	return lc
}

func toCanvas(pos fyne.Position) vector.Pt {
	return vector.Pt{X: float64(pos.X), Y: float64(pos.Y)}
}

// Resize mounts the new size as the session's surface and viewport.
func (lc *LayoutCanvas) Resize(size fyne.Size) {
	lc.BaseWidget.Resize(size)
	lc.sess.Mount(float64(size.Width), float64(size.Height))
}

func (lc *LayoutCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	lc.ctl.Press(toCanvas(e.Position))
	lc.Refresh()
}

func (lc *LayoutCanvas) MouseUp(e *desktop.MouseEvent) {
	if !lc.ctl.Busy() {
		return
	}
	lc.ctl.Release(toCanvas(e.Position))
	lc.Refresh()
}

func (lc *LayoutCanvas) Dragged(e *fyne.DragEvent) {
	lc.ctl.Move(toCanvas(e.Position))
	lc.Refresh()
}

func (lc *LayoutCanvas) DragEnd() {}

func (lc *LayoutCanvas) draw(w, h int) image.Image {
	size := lc.Size()
	scale := 1.0
	if size.Width > 0 {
		scale = float64(w) / float64(size.Width)
	}
	return render.Rasterize(lc.sess.Scene.Nodes(), float64(w)/scale, float64(h)/scale, scale, lc.sess.Style(), lc.sess.Icons())
}

func (lc *LayoutCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &layoutCanvasRenderer{lc: lc, raster: canvas.NewRaster(lc.draw)}
	r.objects = append(r.objects, r.raster)
	for i := range r.handles {
		h := canvas.NewRectangle(color.White)
		h.StrokeColor = color.RGBA{R: 20, G: 110, B: 220, A: 255}
		h.StrokeWidth = 1.5
		if i == len(r.handles)-1 {
			h.CornerRadius = HandleSize / 2
		}
		h.Hide()
		r.handles[i] = h
		r.objects = append(r.objects, h)
	}
	return r
}

// layoutCanvasRenderer draws the raster and overlays the resize and rotate
// handles of the selected shape.
type layoutCanvasRenderer struct {
	lc      *LayoutCanvas
	raster  *canvas.Raster
	handles [5]*canvas.Rectangle // NW, NE, SW, SE, rotate
	objects []fyne.CanvasObject
}

func (r *layoutCanvasRenderer) Destroy()                     {}
func (r *layoutCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *layoutCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(320, 240) }

func (r *layoutCanvasRenderer) Refresh() {
	r.Layout(r.lc.Size())
	canvas.Refresh(r.raster)
}

func (r *layoutCanvasRenderer) Layout(size fyne.Size) {
	r.raster.Move(fyne.NewPos(0, 0))
	r.raster.Resize(size)
	n, ok := r.lc.ctl.selectedNode()
	if !ok {
		for _, h := range r.handles {
			h.Hide()
		}
		return
	}
	corners, rot := Handles(n)
	rects := append(corners[:], rot)
	for i, h := range r.handles {
		h.Move(fyne.NewPos(float32(rects[i].X), float32(rects[i].Y)))
		h.Resize(fyne.NewSize(float32(rects[i].W), float32(rects[i].H)))
		h.Show()
		h.Refresh()
	}
}

var toolLabels = []struct {
	kind  layout.Kind
	label string
}{
	{layout.KindWell, "Well"},
	{layout.KindBorder, "Border"},
	{layout.KindMainPipe, "Main pipe"},
	{layout.KindLateralPipe, "Lateral"},
	{layout.KindValveImage, "Valve"},
	{layout.KindFilterImage, "Filter"},
	{layout.KindFlushImage, "Flush"},
}

// Run opens the editor window for opts.Session and blocks until it closes.
func Run(opts RunOptions) error {
	s := opts.Session
	if s == nil {
		return fmt.Errorf("no farm file session to edit")
	}
	l := applog.WithComponent("ui").With(slog.String("file", s.FileID()))
	l.Info("starting UI")
	defer crash.Recover(opts.CrashDir, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fyneApp := app.NewWithID("farmlayout")
	w := fyneApp.NewWindow("Farm layout: " + s.FileID())
	cv := s.Canvas()
	w.Resize(fyne.NewSize(float32(cv.Width), float32(cv.Height)+96))

	lc := NewLayoutCanvas(s)
	if opts.Icons != nil {
		opts.Icons.OnLoad(func(layout.Kind) { fyne.Do(lc.Refresh) })
		opts.Icons.Preload()
	}

	status := widget.NewLabel("Ready")
	if d := s.Diagnostics(); len(d) > 0 {
		status.SetText(fmt.Sprintf("Loaded with %d repair(s): %s", len(d), d[0]))
	}

	tools := container.NewHBox()
	for _, t := range toolLabels {
		t := t
		k := t.kind
		tools.Add(widget.NewButton(t.label, func() {
			if _, err := s.Editor.ChooseTool(k); err != nil {
				status.SetText(err.Error())
				return
			}
			if k.IsLine() {
				status.SetText("Drag on the canvas to draw the " + t.label)
			}
		}))
	}
	tools.Add(widget.NewButton("Delete", func() { s.Editor.DeleteSelected() }))

	tmpl := widget.NewSelect(opts.Templates, nil)
	tmpl.PlaceHolder = "Standard layout..."
	tmpl.OnChanged = func(name string) {
		if name == "" {
			return
		}
		dialog.ShowConfirm("Standard layout", fmt.Sprintf("Replace the current drawing with %q?", name), func(ok bool) {
			defer tmpl.ClearSelected()
			if !ok {
				return
			}
			if _, err := s.ApplyTemplate(name, false); err != nil {
				dialog.ShowError(err, w)
			}
		}, w)
	}

	save := widget.NewButton("Save", func() {
		sctx, done := context.WithTimeout(ctx, 15*time.Second)
		defer done()
		if err := s.Commit(sctx); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Saved " + time.Now().Format("15:04:05"))
	})
	printBtn := widget.NewButton("Print sheet...", func() {
		dialog.ShowFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			path := uc.URI().Path()
			_ = uc.Close()
			withImage, err := export.WriteSheetPDF(s, path, export.SheetOptions{Title: opts.PDFTitle, FarmFile: s.FileID()})
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if !withImage {
				status.SetText("Printed without diagram: canvas not ready")
				return
			}
			status.SetText("Printed to " + path)
		}, w)
	})

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			s.Editor.DeleteSelected()
		case fyne.KeyEscape:
			if _, err := s.Editor.ChooseTool(layout.KindNone); err != nil {
				status.SetText(err.Error())
			}
		}
	})
	w.SetCloseIntercept(func() {
		if !s.Dirty() {
			w.Close()
			return
		}
		dialog.ShowConfirm("Unsaved changes", "Close and discard the unsaved drawing?", func(ok bool) {
			if ok {
				w.Close()
			}
		}, w)
	})

	top := container.NewVBox(tools, container.NewHBox(tmpl, save, printBtn))
	w.SetContent(container.NewBorder(top, status, nil, nil, lc))
	w.ShowAndRun()
	s.Unmount()
	l.Info("UI closed")
	return nil
}
