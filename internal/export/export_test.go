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
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"farmlayout/internal/layout"
	"farmlayout/internal/render"
	"farmlayout/internal/vector"
)

func sampleShapes() []layout.Shape {
	return []layout.Shape{
		layout.Border{Base: layout.Base{ID: "b", RotationDegrees: 10}, Box: layout.Box{X: 50, Y: 50, Width: 500, Height: 300}},
		layout.Well{Base: layout.Base{ID: "w"}, CenterX: 100, CenterY: 100, Radius: 30},
		layout.MainPipe{Base: layout.Base{ID: "m"}, Segment: layout.Segment{Points: [4]float64{130, 100, 500, 100}, StrokeWidthPx: 4}},
		layout.LateralPipe{Base: layout.Base{ID: "l"}, Segment: layout.Segment{Points: [4]float64{300, 100, 300, 300}, StrokeWidthPx: 2}},
		layout.FilterIcon{Base: layout.Base{ID: "f<&>"}, Box: layout.Box{X: 150, Y: 80, Width: 40, Height: 40}},
	}
}

func mountedBridge() *render.Bridge {
	b := render.NewBridge(render.DefaultStyle(), nil, 1)
	b.Mount(render.SceneSurface{Scene: vector.NewScene(sampleShapes()), Width: 800, Height: 600})
	return b
}

type failingCapturer struct{}

func (failingCapturer) CaptureSnapshotImage() (image.Image, error) {
	return nil, errors.New("gpu lost")
}

func TestWritePNG(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "layout.png")
	ok, err := WritePNG(mountedBridge(), out)
	if err != nil || !ok {
		t.Fatalf("WritePNG = %v, %v", ok, err)
	}
	st, err := os.Stat(out)
	if err != nil || st.Size() <= 0 {
		t.Fatalf("png missing or empty: %v", err)
	}
}

func TestWritePNGWithoutSurface(t *testing.T) {
	out := filepath.Join(t.TempDir(), "layout.png")
	ok, err := WritePNG(render.NewBridge(render.DefaultStyle(), nil, 1), out)
	if err != nil || ok {
		t.Fatalf("unmounted surface should yield no image and no error, got %v, %v", ok, err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("no file should be written without an image")
	}
	if _, err := WritePNG(failingCapturer{}, out); err == nil {
		t.Fatalf("real capture errors must surface")
	}
}

func TestBuildSVG(t *testing.T) {
	data, err := BuildSVG(sampleShapes(), SVGOptions{Width: 800, Height: 600, Title: "North plot & well"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{
		`viewBox="0 0 800 600"`,
		`<circle id="w" cx="100" cy="100" r="30"`,
		`transform="rotate(10 50 50)"`,
		`stroke-dasharray="10,5"`,
		`id="f&lt;&amp;>"`,
		`<title>North plot &amp; well</title>`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("svg lacks %q:\n%s", want, s)
		}
	}
	if strings.Count(s, "<line ") != 2 {
		t.Fatalf("expected two pipe lines")
	}
}

func TestBuildSheetPDF(t *testing.T) {
	data, included, err := BuildSheetPDF(mountedBridge(), SheetOptions{FarmFile: "F-1"})
	if err != nil || !included {
		t.Fatalf("BuildSheetPDF = %v, %v", included, err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a pdf")
	}

	empty, included, err := BuildSheetPDF(render.NewBridge(render.DefaultStyle(), nil, 1), SheetOptions{})
	if err != nil || included {
		t.Fatalf("unavailable surface should print without a diagram, got %v, %v", included, err)
	}
	if len(empty) == 0 || len(empty) >= len(data) {
		t.Fatalf("sheet without diagram should be smaller: %d vs %d", len(empty), len(data))
	}
}
