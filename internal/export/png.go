/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export contains the print routines that consume the render bridge:
// a PNG of the diagram, an SVG of the shape list and a one-page PDF sheet.
// Every routine degrades to "no image" when the render surface is unavailable.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"farmlayout/internal/render"
)

// Capturer is the print-time snapshot hook; *render.Bridge implements it.
type Capturer interface {
	CaptureSnapshotImage() (image.Image, error)
}

// capture returns the snapshot, or nil when the surface is not mounted.
func capture(c Capturer) (image.Image, error) {
	if c == nil {
		return nil, nil
	}
	img, err := c.CaptureSnapshotImage()
	if errors.Is(err, render.ErrUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("capture diagram: %w", err)
	}
	return img, nil
}

// WritePNG writes the captured diagram to outPath. It reports false, and
// writes nothing, when there is no image to write.
func WritePNG(c Capturer, outPath string) (bool, error) {
	img, err := capture(c)
	if err != nil || img == nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return false, fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return false, fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close png: %w", err)
	}
	return true, nil
}
