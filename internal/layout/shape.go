/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout holds the farm-layout diagram model: the closed set of shape
// kinds, their wire record form, and the Store that owns one editing session's
// ordered shape list and selection.
package layout

import "math"

// MinSize is the smallest width, height or radius any committed shape may have.
const MinSize = 5.0

// Kind tags a shape. The set is closed; see AllKinds.
type Kind string

const (
	KindNone        Kind = ""
	KindWell        Kind = "well"
	KindBorder      Kind = "border"
	KindMainPipe    Kind = "mainPipe"
	KindLateralPipe Kind = "lateralPipe"
	KindValveImage  Kind = "valveImage"
	KindFilterImage Kind = "filterImage"
	KindFlushImage  Kind = "flushImage"
)

// AllKinds lists every drawable kind in toolbar order.
var AllKinds = []Kind{KindWell, KindBorder, KindValveImage, KindFilterImage, KindFlushImage, KindMainPipe, KindLateralPipe}

// Valid reports whether k names a drawable kind.
func (k Kind) Valid() bool {
	switch k {
	case KindWell, KindBorder, KindMainPipe, KindLateralPipe, KindValveImage, KindFilterImage, KindFlushImage:
		return true
	}
	return false
}

// IsLine reports whether k is drawn with a two-point gesture.
func (k Kind) IsLine() bool { return k == KindMainPipe || k == KindLateralPipe }

// IsIcon reports whether k is a fixed-aspect icon placement.
func (k Kind) IsIcon() bool {
	return k == KindValveImage || k == KindFilterImage || k == KindFlushImage
}

// StrokeStyle is the dash pattern of a pipe.
type StrokeStyle string

const (
	StrokeSolid  StrokeStyle = "solid"
	StrokeDashed StrokeStyle = "dashed"
)

// Shape is one editable element of the diagram. Implementations are the value
// types Well, Border, MainPipe, LateralPipe, ValveIcon, FilterIcon and FlushIcon;
// the unexported method keeps the set closed to this package.
type Shape interface {
	ShapeID() string
	Kind() Kind
	Rotation() float64
	withID(id string) Shape
}

// Base carries the attributes every kind shares.
type Base struct {
	ID              string
	RotationDegrees float64
}

func (b Base) ShapeID() string   { return b.ID }
func (b Base) Rotation() float64 { return b.RotationDegrees }
func (b *Base) setID(id string)  { b.ID = id }

// Box is the geometry of rectangle-like shapes.
type Box struct {
	X, Y          float64
	Width, Height float64
}

// Segment is a single pipe run: Points is always [x1, y1, x2, y2].
type Segment struct {
	Points        [4]float64
	StrokeWidthPx float64
}

// Start returns the first endpoint.
func (s Segment) Start() (float64, float64) { return s.Points[0], s.Points[1] }

// End returns the second endpoint.
func (s Segment) End() (float64, float64) { return s.Points[2], s.Points[3] }

// Length is the euclidean length of the segment; zero for a degenerate line.
func (s Segment) Length() float64 {
	return math.Hypot(s.Points[2]-s.Points[0], s.Points[3]-s.Points[1])
}

type Well struct {
	Base
	CenterX, CenterY float64
	Radius           float64
}

type Border struct {
	Base
	Box
}

type MainPipe struct {
	Base
	Segment
}

type LateralPipe struct {
	Base
	Segment
}

type ValveIcon struct {
	Base
	Box
}

type FilterIcon struct {
	Base
	Box
}

type FlushIcon struct {
	Base
	Box
}

func (Well) Kind() Kind        { return KindWell }
func (Border) Kind() Kind      { return KindBorder }
func (MainPipe) Kind() Kind    { return KindMainPipe }
func (LateralPipe) Kind() Kind { return KindLateralPipe }
func (ValveIcon) Kind() Kind   { return KindValveImage }
func (FilterIcon) Kind() Kind  { return KindFilterImage }
func (FlushIcon) Kind() Kind   { return KindFlushImage }

func (s Well) withID(id string) Shape        { s.setID(id); return s }
func (s Border) withID(id string) Shape      { s.setID(id); return s }
func (s MainPipe) withID(id string) Shape    { s.setID(id); return s }
func (s LateralPipe) withID(id string) Shape { s.setID(id); return s }
func (s ValveIcon) withID(id string) Shape   { s.setID(id); return s }
func (s FilterIcon) withID(id string) Shape  { s.setID(id); return s }
func (s FlushIcon) withID(id string) Shape   { s.setID(id); return s }

// StrokeStyle is solid for main pipes and dashed for laterals.
func (MainPipe) StrokeStyle() StrokeStyle    { return StrokeSolid }
func (LateralPipe) StrokeStyle() StrokeStyle { return StrokeDashed }

// WithID returns a copy of s carrying id.
func WithID(s Shape, id string) Shape {
	if s == nil {
		return nil
	}
	return s.withID(id)
}

// BoxOf returns the box of a rectangle-like shape.
func BoxOf(s Shape) (Box, bool) {
	switch v := s.(type) {
	case Border:
		return v.Box, true
	case ValveIcon:
		return v.Box, true
	case FilterIcon:
		return v.Box, true
	case FlushIcon:
		return v.Box, true
	case Well, MainPipe, LateralPipe:
		return Box{}, false
	}
	return Box{}, false
}

// WithBox returns a copy of a rectangle-like shape with geometry b and rotation deg.
// Other kinds are returned unchanged.
func WithBox(s Shape, b Box, deg float64) Shape {
	switch v := s.(type) {
	case Border:
		v.Box, v.RotationDegrees = b, deg
		return v
	case ValveIcon:
		v.Box, v.RotationDegrees = b, deg
		return v
	case FilterIcon:
		v.Box, v.RotationDegrees = b, deg
		return v
	case FlushIcon:
		v.Box, v.RotationDegrees = b, deg
		return v
	case Well, MainPipe, LateralPipe:
		return s
	}
	return s
}

// SegmentOf returns the segment of a pipe shape.
func SegmentOf(s Shape) (Segment, bool) {
	switch v := s.(type) {
	case MainPipe:
		return v.Segment, true
	case LateralPipe:
		return v.Segment, true
	}
	return Segment{}, false
}

// NewBoxShape builds a rectangle-like shape of kind k.
func NewBoxShape(k Kind, b Box) (Shape, bool) {
	switch k {
	case KindBorder:
		return Border{Box: b}, true
	case KindValveImage:
		return ValveIcon{Box: b}, true
	case KindFilterImage:
		return FilterIcon{Box: b}, true
	case KindFlushImage:
		return FlushIcon{Box: b}, true
	}
	return nil, false
}

// NewPipe builds a pipe of kind k from (x1,y1) to (x2,y2).
func NewPipe(k Kind, x1, y1, x2, y2, strokeWidth float64) (Shape, bool) {
	seg := Segment{Points: [4]float64{x1, y1, x2, y2}, StrokeWidthPx: strokeWidth}
	switch k {
	case KindMainPipe:
		return MainPipe{Segment: seg}, true
	case KindLateralPipe:
		return LateralPipe{Segment: seg}, true
	}
	return nil, false
}

// Equal reports whether two shapes are the same kind with identical fields.
func Equal(a, b Shape) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}
