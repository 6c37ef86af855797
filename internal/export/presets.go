/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"farmlayout/internal/layout"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls exporting one layout in several formats.
//
// Files are named <FileID>.(png|svg|pdf) in OutDir/<preset>/. Formats
// defaults to the preset's list.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: pdf, png, svg
	OutDir  string
	FileID  string
	Shapes  []layout.Shape
	SVG     SVGOptions
	Sheet   SheetOptions
}

// BatchResult lists written files and the formats that went out without a
// diagram because the render surface was unavailable.
type BatchResult struct {
	Written      []string
	WithoutImage []string
}

// BatchExport runs exports according to the given preset.
func BatchExport(c Capturer, opt BatchOptions) (BatchResult, error) {
	var res BatchResult
	if opt.FileID == "" {
		return res, fmt.Errorf("file id is empty")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	base := opt.OutDir
	if opt.Preset != "" {
		base = filepath.Join(base, string(opt.Preset))
	}
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		out := filepath.Join(base, opt.FileID+"."+f)
		switch f {
		case "png":
			ok, err := WritePNG(c, out)
			if err != nil {
				return res, fmt.Errorf("png: %w", err)
			}
			if !ok {
				res.WithoutImage = append(res.WithoutImage, f)
				continue
			}
		case "svg":
			if err := WriteSVG(opt.Shapes, out, opt.SVG); err != nil {
				return res, fmt.Errorf("svg: %w", err)
			}
		case "pdf":
			sheet := opt.Sheet
			if sheet.FarmFile == "" {
				sheet.FarmFile = opt.FileID
			}
			ok, err := WriteSheetPDF(c, out, sheet)
			if err != nil {
				return res, fmt.Errorf("pdf: %w", err)
			}
			if !ok {
				res.WithoutImage = append(res.WithoutImage, f)
			}
		default:
			return res, fmt.Errorf("unknown format: %s", f)
		}
		res.Written = append(res.Written, out)
	}
	return res, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}
