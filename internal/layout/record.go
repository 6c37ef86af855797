/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"fmt"
)

// Record is the flat wire form of a shape. Only the fields relevant to Kind are
// set; the rest are omitted on encode. The same schema is used by standard
// layout blueprints, which carry no ID.
type Record struct {
	ID              string      `json:"id,omitempty" yaml:"id,omitempty"`
	Kind            Kind        `json:"kind" yaml:"kind"`
	RotationDegrees float64     `json:"rotationDegrees,omitempty" yaml:"rotationDegrees,omitempty"`
	CenterX         *float64    `json:"centerX,omitempty" yaml:"centerX,omitempty"`
	CenterY         *float64    `json:"centerY,omitempty" yaml:"centerY,omitempty"`
	Radius          *float64    `json:"radius,omitempty" yaml:"radius,omitempty"`
	X               *float64    `json:"x,omitempty" yaml:"x,omitempty"`
	Y               *float64    `json:"y,omitempty" yaml:"y,omitempty"`
	Width           *float64    `json:"width,omitempty" yaml:"width,omitempty"`
	Height          *float64    `json:"height,omitempty" yaml:"height,omitempty"`
	Points          []float64   `json:"points,omitempty" yaml:"points,omitempty,flow"`
	StrokeStyle     StrokeStyle `json:"strokeStyle,omitempty" yaml:"strokeStyle,omitempty"`
	StrokeWidthPx   *float64    `json:"strokeWidthPx,omitempty" yaml:"strokeWidthPx,omitempty"`
}

// Defaults used when a record omits a size attribute.
const (
	DefaultWellRadius    = 30.0
	DefaultBoxSize       = 40.0
	DefaultMainStroke    = 4.0
	DefaultLateralStroke = 2.0
)

var (
	ErrUnknownKind = errors.New("unknown shape kind")
	ErrBadPoints   = errors.New("pipe points must hold exactly 4 numbers")
)

func f64(v float64) *float64 { return &v }

func val(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// ToRecord converts a shape to its wire record.
func ToRecord(s Shape) Record {
	r := Record{ID: s.ShapeID(), Kind: s.Kind(), RotationDegrees: s.Rotation()}
	switch v := s.(type) {
	case Well:
		r.CenterX, r.CenterY, r.Radius = f64(v.CenterX), f64(v.CenterY), f64(v.Radius)
	case Border, ValveIcon, FilterIcon, FlushIcon:
		b, _ := BoxOf(v)
		r.X, r.Y, r.Width, r.Height = f64(b.X), f64(b.Y), f64(b.Width), f64(b.Height)
	case MainPipe:
		r.Points = v.Points[:]
		r.StrokeStyle = v.StrokeStyle()
		r.StrokeWidthPx = f64(v.StrokeWidthPx)
	case LateralPipe:
		r.Points = v.Points[:]
		r.StrokeStyle = v.StrokeStyle()
		r.StrokeWidthPx = f64(v.StrokeWidthPx)
	}
	return r
}

// FromRecord converts a wire record into a shape. Missing sizes fall back to the
// kind defaults and are clamped to MinSize; the record's ID is kept as-is
// (possibly empty). StrokeStyle is derived from the kind and ignored on input.
func FromRecord(r Record) (Shape, error) {
	base := Base{ID: r.ID, RotationDegrees: r.RotationDegrees}
	switch r.Kind {
	case KindWell:
		return Well{
			Base:    base,
			CenterX: val(r.CenterX, 0),
			CenterY: val(r.CenterY, 0),
			Radius:  max(MinSize, val(r.Radius, DefaultWellRadius)),
		}, nil
	case KindBorder, KindValveImage, KindFilterImage, KindFlushImage:
		b := Box{
			X:      val(r.X, 0),
			Y:      val(r.Y, 0),
			Width:  max(MinSize, val(r.Width, DefaultBoxSize)),
			Height: max(MinSize, val(r.Height, DefaultBoxSize)),
		}
		s, _ := NewBoxShape(r.Kind, b)
		return withBase(s, base), nil
	case KindMainPipe, KindLateralPipe:
		if len(r.Points) != 4 {
			return nil, fmt.Errorf("%s %q: %w (got %d)", r.Kind, r.ID, ErrBadPoints, len(r.Points))
		}
		def := DefaultMainStroke
		if r.Kind == KindLateralPipe {
			def = DefaultLateralStroke
		}
		s, _ := NewPipe(r.Kind, r.Points[0], r.Points[1], r.Points[2], r.Points[3], val(r.StrokeWidthPx, def))
		return withBase(s, base), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
}

func withBase(s Shape, b Base) Shape {
	switch v := s.(type) {
	case Well:
		v.Base = b
		return v
	case Border:
		v.Base = b
		return v
	case MainPipe:
		v.Base = b
		return v
	case LateralPipe:
		v.Base = b
		return v
	case ValveIcon:
		v.Base = b
		return v
	case FilterIcon:
		v.Base = b
		return v
	case FlushIcon:
		v.Base = b
		return v
	}
	return s
}

// WithRotation returns a copy of s with its rotation set to deg.
func WithRotation(s Shape, deg float64) Shape {
	return withBase(s, Base{ID: s.ShapeID(), RotationDegrees: deg})
}

// Records converts shapes to wire records, preserving order.
func Records(shapes []Shape) []Record {
	out := make([]Record, 0, len(shapes))
	for _, s := range shapes {
		out = append(out, ToRecord(s))
	}
	return out
}
