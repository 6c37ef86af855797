/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package codec

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"farmlayout/internal/layout"
)

//go:embed record.schema.json
var recordSchemaJSON string

var recordSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchemaJSON))
})

// maxGroupDepth bounds recursion into legacy group wrappers.
const maxGroupDepth = 8

// legacyKinds maps kind spellings written by older editors.
var legacyKinds = map[string]layout.Kind{
	"circle": layout.KindWell,
	"rect":   layout.KindBorder,
	"line":   layout.KindMainPipe,
	"valve":  layout.KindValveImage,
	"filter": layout.KindFilterImage,
	"flush":  layout.KindFlushImage,
}

// keyAliases maps legacy attribute names to current ones.
var keyAliases = map[string]string{
	"type":        "kind",
	"rotation":    "rotationDegrees",
	"strokeWidth": "strokeWidthPx",
}

var numericKeys = []string{"rotationDegrees", "centerX", "centerY", "radius", "x", "y", "width", "height", "strokeWidthPx"}

func isGroup(kind string) bool { return kind == "group" || kind == "standardLayout" }

func (r *Result) addItems(items []any) {
	n := 0
	r.flatten(items, 0, &n)
}

// flatten walks items in order, descending into legacy group wrappers so that
// grouped shapes land in the flat list at the group's position.
func (r *Result) flatten(items []any, depth int, n *int) {
	for _, it := range items {
		idx := *n
		*n++
		m, ok := it.(map[string]any)
		if !ok {
			r.diag("record %d dropped: not an object (%T)", idx, it)
			continue
		}
		m = normalize(m)
		if kind, _ := m["kind"].(string); isGroup(kind) {
			if depth >= maxGroupDepth {
				r.diag("record %d dropped: groups nested too deeply", idx)
				continue
			}
			children, ok := groupChildren(m)
			if !ok {
				r.diag("record %d dropped: %s without shapes", idx, kind)
				continue
			}
			r.flatten(children, depth+1, n)
			continue
		}
		rec, err := validate(m)
		if err != nil {
			r.diag("record %d dropped: %v", idx, err)
			continue
		}
		r.addRecord(idx, rec)
	}
}

func groupChildren(m map[string]any) ([]any, bool) {
	for _, k := range []string{"shapes", "children"} {
		if c, ok := m[k].([]any); ok {
			return c, true
		}
	}
	return nil, false
}

// normalize returns a copy of m with legacy keys, kind names and numeric
// strings rewritten to the current record schema.
func normalize(in map[string]any) map[string]any {
	m := make(map[string]any, len(in))
	for k, v := range in {
		m[k] = v
	}
	for old, cur := range keyAliases {
		if v, ok := m[old]; ok {
			if _, has := m[cur]; !has {
				m[cur] = v
			}
			delete(m, old)
		}
	}
	if kind, ok := m["kind"].(string); ok {
		if k, legacy := legacyKinds[kind]; legacy {
			if kind == "line" && dashed(m) {
				k = layout.KindLateralPipe
			}
			m["kind"] = string(k)
		}
	}
	delete(m, "dash")
	if f, ok := m["id"].(float64); ok {
		m["id"] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	for _, k := range numericKeys {
		if s, ok := m[k].(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				m[k] = f
			}
		}
	}
	return m
}

func dashed(m map[string]any) bool {
	if d, ok := m["dash"].([]any); ok && len(d) > 0 {
		return true
	}
	s, _ := m["strokeStyle"].(string)
	return s == string(layout.StrokeDashed)
}

// validate checks m against the record schema and converts it.
func validate(m map[string]any) (layout.Record, error) {
	schema, err := recordSchema()
	if err != nil {
		return layout.Record{}, fmt.Errorf("record schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(m))
	if err != nil {
		return layout.Record{}, err
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return layout.Record{}, fmt.Errorf("invalid record: %s", strings.Join(msgs, "; "))
	}
	b, err := json.Marshal(m)
	if err != nil {
		return layout.Record{}, err
	}
	var rec layout.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return layout.Record{}, err
	}
	return rec, nil
}
