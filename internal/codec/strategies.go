/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package codec

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNotStructured = errors.New("text decodes to a string, not a structure")

// textStrategy is one way of turning stored text into a structured value.
type textStrategy struct {
	name  string
	parse func(text string) (any, error)
}

// textChain is tried in order; the first strategy that yields a structured
// value wins.
var textChain = []textStrategy{
	{name: "json", parse: parseJSON},
	{name: "double-encoded", parse: parseDoubleEncoded},
	{name: "single-quoted", parse: parseSingleQuoted},
}

// parseJSON is the plain case. A JSON string literal is not accepted here; it
// is the signature of a double-encoded value.
func parseJSON(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	if _, ok := v.(string); ok {
		return nil, errNotStructured
	}
	return v, nil
}

// parseDoubleEncoded handles text that is the JSON encoding of a JSON string.
func parseDoubleEncoded(text string) (any, error) {
	var inner string
	if err := json.Unmarshal([]byte(text), &inner); err != nil {
		return nil, err
	}
	return parseJSON(inner)
}

// parseSingleQuoted treats ' as the string delimiter and reparses.
func parseSingleQuoted(text string) (any, error) {
	if !strings.Contains(text, "'") {
		return nil, errors.New("no single quotes to normalize")
	}
	return parseJSON(strings.ReplaceAll(text, "'", `"`))
}

func (r *Result) decodeText(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	var errs []error
	for _, s := range textChain {
		v, err := s.parse(text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.Strategy = s.name
		if s.name != textChain[0].name {
			r.diag("stored layout recovered with %s decoding", s.name)
		}
		r.addValue(v)
		return
	}
	r.diag("stored layout is not readable; starting empty: %v", errors.Join(errs...))
}

// addValue places an already structured value.
func (r *Result) addValue(v any) {
	switch t := v.(type) {
	case []any:
		r.addItems(t)
	case map[string]any:
		r.diag("stored layout is an object, not a list; ignored")
	case nil:
	default:
		r.diag("stored layout is a %T, not a list; ignored", v)
	}
}
