/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"farmlayout/internal/layout"
	applog "farmlayout/internal/log"
	"farmlayout/internal/vector"
)

// IconSource loads the picture for an icon kind. Loads may be slow.
type IconSource interface {
	LoadIcon(ctx context.Context, k layout.Kind) (image.Image, error)
}

// IconCache loads icons in the background. Until an icon has loaded, Icon
// reports false and the canvas paints a placeholder frame; a failed load
// keeps the placeholder for good.
type IconCache struct {
	src    IconSource
	ctx    context.Context
	mu     sync.RWMutex
	imgs   map[layout.Kind]image.Image
	state  map[layout.Kind]loadState
	onLoad func(layout.Kind)
	wg     sync.WaitGroup
}

type loadState int

const (
	notRequested loadState = iota
	loading
	loaded
	failed
)

// NewIconCache returns a cache backed by src. Background loads stop when ctx
// is canceled.
func NewIconCache(ctx context.Context, src IconSource) *IconCache {
	return &IconCache{
		src:   src,
		ctx:   ctx,
		imgs:  map[layout.Kind]image.Image{},
		state: map[layout.Kind]loadState{},
	}
}

// OnLoad registers fn to run (on the loader goroutine) after an icon loads,
// typically to schedule a repaint.
func (c *IconCache) OnLoad(fn func(layout.Kind)) {
	c.mu.Lock()
	c.onLoad = fn
	c.mu.Unlock()
}

// Icon returns the loaded picture for k, starting a background load on first use.
func (c *IconCache) Icon(k layout.Kind) (image.Image, bool) {
	c.mu.RLock()
	img, st := c.imgs[k], c.state[k]
	c.mu.RUnlock()
	if st == loaded {
		return img, true
	}
	if st == notRequested {
		c.start(k)
	}
	return nil, false
}

// Preload starts loading every icon kind.
func (c *IconCache) Preload() {
	for _, k := range layout.AllKinds {
		if k.IsIcon() {
			c.start(k)
		}
	}
}

// Wait blocks until all started loads have finished.
func (c *IconCache) Wait() { c.wg.Wait() }

func (c *IconCache) start(k layout.Kind) {
	c.mu.Lock()
	if c.state[k] != notRequested {
		c.mu.Unlock()
		return
	}
	c.state[k] = loading
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		img, err := c.src.LoadIcon(c.ctx, k)
		c.mu.Lock()
		if err != nil || img == nil {
			c.state[k] = failed
			c.mu.Unlock()
			applog.WithComponent("render").Warn("icon load failed; keeping placeholder",
				slog.String("kind", string(k)), slog.Any("err", err))
			return
		}
		c.imgs[k], c.state[k] = img, loaded
		fn := c.onLoad
		c.mu.Unlock()
		if fn != nil {
			fn(k)
		}
	}()
}

// DirIcons loads <kind>.png files from Dir.
type DirIcons struct{ Dir string }

func (d DirIcons) LoadIcon(ctx context.Context, k layout.Kind) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.Dir, string(k)+".png"))
	if err != nil {
		return nil, fmt.Errorf("open icon: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode icon %s: %w", k, err)
	}
	return img, nil
}

// BuiltinIcons draws a labelled roundel for each icon kind. It never fails and
// is the default source when no icon directory is configured.
type BuiltinIcons struct{ Size int }

var builtinLabels = map[layout.Kind]struct {
	label string
	fill  color.RGBA
}{
	layout.KindValveImage:  {"V", color.RGBA{R: 239, G: 108, B: 0, A: 255}},
	layout.KindFilterImage: {"F", color.RGBA{R: 0, G: 137, B: 123, A: 255}},
	layout.KindFlushImage:  {"FL", color.RGBA{R: 94, G: 53, B: 177, A: 255}},
}

func (b BuiltinIcons) LoadIcon(ctx context.Context, k layout.Kind) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	glyph, ok := builtinLabels[k]
	if !ok {
		return nil, fmt.Errorf("no builtin icon for %q", k)
	}
	size := b.Size
	if size <= 0 {
		size = 64
	}
	r := float64(size)/2 - 1
	c := NewCanvas(float64(size), float64(size), 1, Style{Background: vector.Transparent}, nil)
	c.fillPolygon(ellipse(r, r, vector.Translate(float64(size)/2, float64(size)/2)), glyph.fill)
	img := c.Image()

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.White), Face: face}
	w := d.MeasureString(glyph.label).Ceil()
	m := face.Metrics()
	baseline := (size + m.Ascent.Ceil() - m.Descent.Ceil()) / 2
	d.Dot = fixed.Point26_6{X: fixed.I((size - w) / 2), Y: fixed.I(baseline)}
	d.DrawString(glyph.label)
	return img, nil
}
