/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"farmlayout/internal/layout"
	"farmlayout/internal/render"
	"farmlayout/internal/vector"
)

// SVGOptions controls SVG output. Width and Height are the canvas size in
// canvas units; the shapes keep their canvas coordinates.
type SVGOptions struct {
	Width, Height float64
	Title         string
	Style         *render.Style // nil means render.DefaultStyle
}

// BuildSVG renders shapes as an SVG document in draw order. Icons are drawn as
// labelled frames since their pictures are not embedded.
func BuildSVG(shapes []layout.Shape, opt SVGOptions) ([]byte, error) {
	st := render.DefaultStyle()
	if opt.Style != nil {
		st = *opt.Style
	}
	w, h := opt.Width, opt.Height
	if w <= 0 || h <= 0 {
		w, h = 800, 600
	}

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%gpx\" height=\"%gpx\" viewBox=\"0 0 %g %g\">\n", w, h, w, h)
	if opt.Title != "" {
		wf("  <title>%s</title>\n", escText(opt.Title))
	}
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", w, h, svgColor(st.Background))

	ink := svgColor(st.Ink)
	for _, s := range shapes {
		id := escAttr(s.ShapeID())
		rot := s.Rotation()
		switch v := s.(type) {
		case layout.Well:
			wf("  <circle id=\"%s\" cx=\"%g\" cy=\"%g\" r=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
				id, v.CenterX, v.CenterY, v.Radius, svgColor(st.WellFill), ink, st.OutlineW)
		case layout.Border:
			wf("  <rect id=\"%s\" x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"none\" stroke=\"%s\" stroke-width=\"%g\"%s/>\n",
				id, v.X, v.Y, v.Width, v.Height, ink, st.OutlineW, rotateAttr(rot, v.X, v.Y))
		case layout.ValveIcon, layout.FilterIcon, layout.FlushIcon:
			b, _ := layout.BoxOf(v)
			wf("  <g id=\"%s\"%s>\n", id, rotateAttr(rot, b.X, b.Y))
			wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"none\" stroke=\"%s\" stroke-width=\"1\"/>\n",
				b.X, b.Y, b.Width, b.Height, ink)
			wf("    <text x=\"%g\" y=\"%g\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"%g\" text-anchor=\"middle\" fill=\"%s\">%s</text>\n",
				b.X+b.Width/2, b.Y+b.Height/2+4, math.Max(8, b.Height/3), ink, iconLabel(v.Kind()))
			wf("  </g>\n")
		case layout.MainPipe:
			wf("  <line id=\"%s\" x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
				id, v.Points[0], v.Points[1], v.Points[2], v.Points[3], svgColor(st.MainPipe), v.StrokeWidthPx)
		case layout.LateralPipe:
			wf("  <line id=\"%s\" x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" stroke=\"%s\" stroke-width=\"%g\" stroke-dasharray=\"%s\"/>\n",
				id, v.Points[0], v.Points[1], v.Points[2], v.Points[3], svgColor(st.LateralPipe), v.StrokeWidthPx, dashAttr(st.LateralDash))
		}
	}
	wf("</svg>\n")
	if werr != nil {
		return nil, fmt.Errorf("build svg: %w", werr)
	}
	return buf.Bytes(), nil
}

// WriteSVG writes BuildSVG output to outPath.
func WriteSVG(shapes []layout.Shape, outPath string, opt SVGOptions) error {
	data, err := BuildSVG(shapes, opt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func iconLabel(k layout.Kind) string {
	switch k {
	case layout.KindValveImage:
		return "V"
	case layout.KindFilterImage:
		return "F"
	case layout.KindFlushImage:
		return "FL"
	}
	return ""
}

func rotateAttr(deg, x, y float64) string {
	if deg == 0 {
		return ""
	}
	return fmt.Sprintf(" transform=\"rotate(%g %g %g)\"", deg, x, y)
}

func dashAttr(d []float64) string {
	var b bytes.Buffer
	for i, v := range d {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", v)
	}
	return b.String()
}

func svgColor(c vector.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
