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
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// SheetOptions controls the printed layout sheet. Units are points.
type SheetOptions struct {
	Title    string
	FarmFile string
	Printed  time.Time
	// PageWidth and PageHeight default to A4 portrait.
	PageWidth, PageHeight float64
	Margin                float64
}

func (o *SheetOptions) defaults() {
	if o.PageWidth <= 0 || o.PageHeight <= 0 {
		o.PageWidth, o.PageHeight = 595.28, 841.89
	}
	if o.Margin <= 0 {
		o.Margin = 36
	}
	if o.Title == "" {
		o.Title = "Farm micro-irrigation layout"
	}
	if o.Printed.IsZero() {
		o.Printed = time.Now()
	}
}

// BuildSheetPDF lays out a single page with a title block and the captured
// diagram scaled to fit. When no diagram is available the page carries a note
// instead. It reports whether the diagram was included.
func BuildSheetPDF(c Capturer, opt SheetOptions) ([]byte, bool, error) {
	opt.defaults()
	img, err := capture(c)
	if err != nil {
		return nil, false, err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: opt.PageWidth, Ht: opt.PageHeight},
	})
	pdf.SetTitle(opt.Title, false)
	pdf.SetAuthor("farmlayout", false)
	pdf.SetCreationDate(opt.Printed)
	pdf.AddPage()

	m := opt.Margin
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(m, m+16, opt.Title)
	pdf.SetFont("Helvetica", "", 10)
	meta := opt.Printed.Format("2006-01-02 15:04")
	if opt.FarmFile != "" {
		meta = fmt.Sprintf("Farm file %s  |  %s", opt.FarmFile, meta)
	}
	pdf.Text(m, m+32, meta)
	pdf.SetLineWidth(0.5)
	pdf.Line(m, m+40, opt.PageWidth-m, m+40)

	top := m + 52
	boxW, boxH := opt.PageWidth-2*m, opt.PageHeight-top-m
	included := false
	if img != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, false, fmt.Errorf("encode diagram: %w", err)
		}
		pdf.RegisterImageOptionsReader("diagram", gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
		iw, ih := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
		s := min(boxW/iw, boxH/ih)
		pdf.ImageOptions("diagram", m, top, iw*s, ih*s, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetDrawColor(120, 120, 120)
		pdf.Rect(m, top, iw*s, ih*s, "D")
		included = true
	} else {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Text(m, top+14, "Layout diagram not available.")
	}
	if err := pdf.Error(); err != nil {
		return nil, false, fmt.Errorf("build pdf: %w", err)
	}
	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, false, fmt.Errorf("write pdf: %w", err)
	}
	return out.Bytes(), included, nil
}

// WriteSheetPDF writes BuildSheetPDF output to outPath.
func WriteSheetPDF(c Capturer, outPath string, opt SheetOptions) (bool, error) {
	data, included, err := BuildSheetPDF(c, opt)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return false, fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return false, fmt.Errorf("write pdf: %w", err)
	}
	return included, nil
}
