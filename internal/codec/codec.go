/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package codec converts between the in-memory shape list and the layout field
// stored on a farm file. Encoding always yields a flat JSON list of records.
// Decoding is tolerant: it accepts every encoding earlier editor versions have
// written, drops what it cannot read, and never fails.
package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"farmlayout/internal/layout"
	applog "farmlayout/internal/log"
)

// Result is the outcome of a decode. Shapes is never nil. Diagnostics lists
// everything that was skipped or repaired, in order.
type Result struct {
	Shapes      []layout.Shape
	Diagnostics []string
	// Strategy names the text strategy that produced the value, if any.
	Strategy string
}

// Clean reports whether the decode needed no repairs.
func (r Result) Clean() bool { return len(r.Diagnostics) == 0 }

func (r *Result) diag(format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

// Encode returns the wire form of shapes: a JSON list of flat records in order.
// Non-finite numbers are written as 0 so that encoding cannot fail.
func Encode(shapes []layout.Shape) []byte {
	recs := layout.Records(shapes)
	for i := range recs {
		sanitize(&recs[i])
	}
	b, err := json.Marshal(recs)
	if err != nil {
		applog.WithComponent("codec").Error("encode failed", slog.Any("err", err))
		return []byte("[]")
	}
	return b
}

func sanitize(r *layout.Record) {
	fix := func(p *float64) {
		if p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0)) {
			*p = 0
		}
	}
	for _, p := range []*float64{r.CenterX, r.CenterY, r.Radius, r.X, r.Y, r.Width, r.Height, r.StrokeWidthPx, &r.RotationDegrees} {
		fix(p)
	}
	if len(r.Points) > 0 {
		pts := make([]float64, len(r.Points))
		copy(pts, r.Points)
		for i := range pts {
			fix(&pts[i])
		}
		r.Points = pts
	}
}

// Decode reads a stored layout value. See DecodeContext.
func Decode(raw any) Result { return DecodeContext(context.Background(), raw) }

// DecodeContext reads a stored layout value of any shape:
//
//   - a structured list ([]any, []map[string]any, []layout.Record) is used as-is
//   - a structured object that is not a list yields no shapes
//   - text ([]byte, json.RawMessage, string) goes through the text strategies
//   - anything else, nil included, yields no shapes
//
// Diagnostics are logged at WARN with the farm file from ctx.
func DecodeContext(ctx context.Context, raw any) Result {
	res := Result{Shapes: []layout.Shape{}}
	switch v := raw.(type) {
	case nil:
	case []layout.Record:
		for i, r := range v {
			res.addRecord(i, r)
		}
	case []map[string]any:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		res.addItems(items)
	case []any:
		res.addItems(v)
	case map[string]any:
		res.diag("stored layout is an object, not a list; ignored")
	case json.RawMessage:
		res.decodeText(string(v))
	case []byte:
		res.decodeText(string(v))
	case string:
		res.decodeText(v)
	default:
		res.diag("stored layout has unsupported type %T; ignored", raw)
	}
	if len(res.Diagnostics) > 0 {
		l := applog.WithOperation(applog.WithComponent("codec"), "decode")
		for _, d := range res.Diagnostics {
			l.WarnContext(ctx, d, slog.String("strategy", res.Strategy))
		}
	}
	return res
}

func (r *Result) addRecord(i int, rec layout.Record) {
	s, err := layout.FromRecord(rec)
	if err != nil {
		r.diag("record %d dropped: %v", i, err)
		return
	}
	r.Shapes = append(r.Shapes, s)
}
