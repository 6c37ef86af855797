/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render rasterizes the live scene of the layout canvas and exposes
// the snapshot hook used by print routines.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	xvec "golang.org/x/image/vector"

	"farmlayout/internal/layout"
	"farmlayout/internal/vector"
)

// Style holds the colors and widths used to paint the scene.
type Style struct {
	Background  vector.Color
	Ink         vector.Color
	WellFill    vector.Color
	MainPipe    vector.Color
	LateralPipe vector.Color
	Placeholder vector.Color
	Selection   vector.Stroke
	OutlineW    float64
	LateralDash []float64
}

// DefaultStyle is the on-screen and print palette.
func DefaultStyle() Style {
	return Style{
		Background:  vector.White,
		Ink:         vector.Black,
		WellFill:    vector.Color{R: 144, G: 202, B: 249, A: 255},
		MainPipe:    vector.Color{R: 21, G: 101, B: 192, A: 255},
		LateralPipe: vector.Color{R: 46, G: 125, B: 50, A: 255},
		Placeholder: vector.Color{R: 158, G: 158, B: 158, A: 255},
		Selection:   vector.Stroke{Enabled: true, Color: vector.SelectionBlue, Width: 1.5, Dash: []float64{6, 4}},
		OutlineW:    2,
		LateralDash: []float64{10, 5},
	}
}

func rgba(c vector.Color) color.RGBA { return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

// circleSegments is the polygon resolution used for wells.
const circleSegments = 64

// Canvas paints scene nodes onto an RGBA image through a world-to-pixel
// transform.
type Canvas struct {
	img   *image.RGBA
	ras   *xvec.Rasterizer
	view  vector.Affine2D
	style Style
	icons IconLookup
}

// IconLookup returns a loaded icon image, or false while it is not available.
type IconLookup interface {
	Icon(k layout.Kind) (image.Image, bool)
}

// NewCanvas allocates a w x h canvas (in canvas units) rendered at scale
// pixels per unit. icons may be nil; icons then paint as placeholders.
func NewCanvas(w, h, scale float64, style Style, icons IconLookup) *Canvas {
	if scale <= 0 {
		scale = 1
	}
	pw := max(1, int(math.Ceil(w*scale)))
	ph := max(1, int(math.Ceil(h*scale)))
	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: rgba(style.Background)}, image.Point{}, draw.Src)
	return &Canvas{
		img:   img,
		ras:   xvec.NewRasterizer(pw, ph),
		view:  vector.Scale(scale, scale),
		style: style,
		icons: icons,
	}
}

func (c *Canvas) Image() *image.RGBA { return c.img }

// Draw paints nodes in order, bottom first, then the selection outline.
func (c *Canvas) Draw(nodes []vector.Node) {
	var selected vector.Node
	for _, n := range nodes {
		switch v := n.(type) {
		case *vector.BodyNode:
			c.drawBody(v)
		case *vector.LineNode:
			c.drawLine(v)
		}
		if s, ok := n.(vector.Selectable); ok && s.Selected() {
			selected = n
		}
	}
	if selected != nil && c.style.Selection.Enabled {
		b := selected.Bounds().Inset(-4, -4)
		c.strokePolygon(rectCorners(b, vector.Identity), c.style.Selection.Width, c.style.Selection.Dash, rgba(c.style.Selection.Color))
	}
}

func (c *Canvas) drawBody(n *vector.BodyNode) {
	w, h := n.Size()
	m := n.Transform()
	if n.Kind() == layout.KindWell {
		pts := ellipse(w/2, h/2, m)
		c.fillPolygon(pts, rgba(c.style.WellFill))
		c.strokePolygon(pts, c.style.OutlineW, nil, rgba(c.style.Ink))
		return
	}
	local := vector.Rect{W: w, H: h}
	if n.Kind().IsIcon() {
		if c.icons != nil {
			if img, ok := c.icons.Icon(n.Kind()); ok {
				c.drawImage(img, local, m)
				return
			}
		}
		c.strokePolygon(rectCorners(local, m), 1, []float64{4, 3}, rgba(c.style.Placeholder))
		return
	}
	c.strokePolygon(rectCorners(local, m), c.style.OutlineW, nil, rgba(c.style.Ink))
}

func (c *Canvas) drawLine(n *vector.LineNode) {
	a, b := n.Points()
	if a == b {
		return
	}
	col, dash := rgba(c.style.MainPipe), []float64(nil)
	if n.Dashed() {
		col, dash = rgba(c.style.LateralPipe), c.style.LateralDash
	}
	c.strokePath([]vector.Pt{a, b}, n.StrokeWidth(), dash, col, false)
}

// drawImage maps img onto the local rect under m.
func (c *Canvas) drawImage(img image.Image, local vector.Rect, m vector.Affine2D) {
	sb := img.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return
	}
	fit := vector.Translate(local.X, local.Y).
		Mul(vector.Scale(local.W/float64(sb.Dx()), local.H/float64(sb.Dy()))).
		Mul(vector.Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))
	t := c.view.Mul(m).Mul(fit)
	xdraw.BiLinear.Transform(c.img, f64.Aff3{t.A, t.C, t.E, t.B, t.D, t.F}, img, sb, xdraw.Over, nil)
}

func (c *Canvas) fillPolygon(pts []vector.Pt, col color.RGBA) {
	if len(pts) < 3 {
		return
	}
	b := c.img.Bounds()
	c.ras.Reset(b.Dx(), b.Dy())
	p := c.view.Apply(pts[0])
	c.ras.MoveTo(float32(p.X), float32(p.Y))
	for _, q := range pts[1:] {
		p = c.view.Apply(q)
		c.ras.LineTo(float32(p.X), float32(p.Y))
	}
	c.ras.ClosePath()
	c.ras.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

func (c *Canvas) strokePolygon(pts []vector.Pt, width float64, dash []float64, col color.RGBA) {
	c.strokePath(pts, width, dash, col, true)
}

// strokePath strokes a polyline as one quad per (dash) segment. Quads are
// extended by half the width so that corners close.
func (c *Canvas) strokePath(pts []vector.Pt, width float64, dash []float64, col color.RGBA, closed bool) {
	if len(pts) < 2 || width <= 0 {
		return
	}
	if closed {
		pts = append(pts[:len(pts):len(pts)], pts[0])
	}
	phase := 0.0
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		for _, s := range dashSegments(a, b, dash, &phase) {
			c.fillPolygon(segmentQuad(s[0], s[1], width, len(dash) == 0), col)
		}
	}
}

// dashSegments splits a-b into the "on" runs of dash, continuing at *phase.
func dashSegments(a, b vector.Pt, dash []float64, phase *float64) [][2]vector.Pt {
	l := math.Hypot(b.X-a.X, b.Y-a.Y)
	if l == 0 {
		return nil
	}
	if len(dash) == 0 {
		return [][2]vector.Pt{{a, b}}
	}
	period := 0.0
	for _, d := range dash {
		period += d
	}
	if period <= 0 {
		return [][2]vector.Pt{{a, b}}
	}
	at := func(t float64) vector.Pt { return vector.Pt{X: a.X + (b.X-a.X)*t/l, Y: a.Y + (b.Y-a.Y)*t/l} }
	var out [][2]vector.Pt
	t := 0.0
	for t < l {
		off := math.Mod(*phase, period)
		idx, acc := 0, 0.0
		for acc+dash[idx] <= off {
			acc += dash[idx]
			idx = (idx + 1) % len(dash)
		}
		run := math.Min(acc+dash[idx]-off, l-t)
		if idx%2 == 0 {
			out = append(out, [2]vector.Pt{at(t), at(t + run)})
		}
		t += run
		*phase += run
	}
	return out
}

func segmentQuad(a, b vector.Pt, width float64, extend bool) []vector.Pt {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	ux, uy := dx/l, dy/l
	nx, ny := -uy*width/2, ux*width/2
	if extend {
		a = vector.Pt{X: a.X - ux*width/2, Y: a.Y - uy*width/2}
		b = vector.Pt{X: b.X + ux*width/2, Y: b.Y + uy*width/2}
	}
	return []vector.Pt{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}
}

func rectCorners(r vector.Rect, m vector.Affine2D) []vector.Pt {
	return []vector.Pt{
		m.Apply(vector.Pt{X: r.X, Y: r.Y}),
		m.Apply(vector.Pt{X: r.X + r.W, Y: r.Y}),
		m.Apply(vector.Pt{X: r.X + r.W, Y: r.Y + r.H}),
		m.Apply(vector.Pt{X: r.X, Y: r.Y + r.H}),
	}
}

// ellipse returns a polygon around the local origin with radii rx, ry under m.
func ellipse(rx, ry float64, m vector.Affine2D) []vector.Pt {
	pts := make([]vector.Pt, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = m.Apply(vector.Pt{X: rx * math.Cos(a), Y: ry * math.Sin(a)})
	}
	return pts
}

// Rasterize paints nodes on a fresh w x h canvas at the given scale.
func Rasterize(nodes []vector.Node, w, h, scale float64, style Style, icons IconLookup) *image.RGBA {
	c := NewCanvas(w, h, scale, style, icons)
	c.Draw(nodes)
	return c.Image()
}
