/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend talks to the hosting application's farm-file API. Only the
// layout field of a farm file is read or written; the rest of the record is
// ignored.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "farmlayout/internal/log"
)

// ErrNotFound is returned when the server does not know the farm file.
var ErrNotFound = errors.New("farm file not found on server")

// layoutField is the key of the layout value inside a farm-file record.
const layoutField = "layout"

// Client is a minimal HTTP client for the farm-file API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
	log     *slog.Logger
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
// A non-positive timeout falls back to 10s.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     applog.WithComponent("backend"),
	}
}

func (c *Client) do(ctx context.Context, method, id string, body []byte) ([]byte, error) {
	u, err := url.Parse(c.BaseURL + "/api/farm-files/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// LoadLayout fetches the farm file and returns the raw JSON of its layout
// field, exactly as the server stored it. A missing or null field yields nil.
func (c *Client) LoadLayout(ctx context.Context, id string) ([]byte, error) {
	data, err := c.do(ctx, http.MethodGet, id, nil)
	if err != nil {
		c.log.WarnContext(ctx, "load layout failed", slog.String("id", id), slog.Any("err", err))
		return nil, err
	}
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode farm file %q: %w", id, err)
	}
	raw, ok := rec[layoutField]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	return raw, nil
}

// SaveLayout patches only the layout field of the farm file. layout must be
// the encoded shape list.
func (c *Client) SaveLayout(ctx context.Context, id string, layout []byte) error {
	if !json.Valid(layout) {
		return fmt.Errorf("save layout %q: layout is not valid JSON", id)
	}
	body, err := json.Marshal(map[string]json.RawMessage{layoutField: layout})
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodPatch, id, body); err != nil {
		c.log.WarnContext(ctx, "save layout failed", slog.String("id", id), slog.Any("err", err))
		return err
	}
	return nil
}
