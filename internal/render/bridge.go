/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"errors"
	"image"

	"farmlayout/internal/vector"
)

// ErrUnavailable is returned by CaptureSnapshotImage while no render surface is
// mounted. Callers print without the diagram.
var ErrUnavailable = errors.New("render surface not mounted")

// Surface is a mounted drawing surface: a live node list plus its visible size
// in canvas units.
type Surface interface {
	Nodes() []vector.Node
	Size() (w, h float64)
}

// SceneSurface adapts a scene and a fixed canvas size to Surface.
type SceneSurface struct {
	Scene         *vector.Scene
	Width, Height float64
}

func (s SceneSurface) Size() (float64, float64) { return s.Width, s.Height }

func (s SceneSurface) Nodes() []vector.Node {
	if s.Scene == nil {
		return nil
	}
	return s.Scene.Nodes()
}

// Bridge hands the print routine a bitmap of whatever the surface shows at the
// moment of the call. It never touches the shape store. The surface's nodes
// are read live, so mounting and capturing belong to the goroutine that edits
// the scene, the UI goroutine in the editor.
type Bridge struct {
	surface Surface
	style   Style
	icons   IconLookup
	scale   float64
}

// NewBridge returns an unmounted bridge. scale is the pixel density of the
// captured image relative to canvas units.
func NewBridge(style Style, icons IconLookup, scale float64) *Bridge {
	if scale <= 0 {
		scale = 1
	}
	return &Bridge{style: style, icons: icons, scale: scale}
}

// Mount attaches the surface; a nil surface unmounts.
func (b *Bridge) Mount(s Surface) { b.surface = s }

func (b *Bridge) Unmount() { b.Mount(nil) }

// CaptureSnapshotImage rasterizes the mounted surface, including transient
// state such as an in-progress resize.
func (b *Bridge) CaptureSnapshotImage() (image.Image, error) {
	s := b.surface
	if s == nil {
		return nil, ErrUnavailable
	}
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return nil, ErrUnavailable
	}
	return Rasterize(s.Nodes(), w, h, b.scale, b.style, b.icons), nil
}
