/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in, anonymous usage counts and crash reports.
// Nothing identifying a farm or farmer is ever sent: events carry counts only.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "farmlayout/internal/log"
	"farmlayout/internal/version"
)

// Event names.
const (
	EventLayoutCommitted      = "layout_committed"
	EventTemplateInstantiated = "template_instantiated"
)

// Env var names read by FromEnv.
const (
	EnvEventsURL = "FLT_TELEMETRY_URL"
	EnvCrashURL  = "FLT_CRASH_UPLOAD_URL"
	EnvTimeoutMs = "FLT_TELEMETRY_TIMEOUT_MS"
)

// Config controls the sender. Without an events URL every event is dropped,
// even when OptIn is set.
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
}

// FromEnv reads endpoints from the environment. optIn comes from the user
// config (general.telemetry_opt_in).
func FromEnv(optIn bool) Config {
	cfg := Config{
		OptIn:     optIn,
		EventsURL: strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:  strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:   1500 * time.Millisecond,
	}
	if ms := strings.TrimSpace(os.Getenv(EnvTimeoutMs)); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

// Client is an async sender with a bounded queue. It never blocks the caller
// and drops events on errors or when the queue is full.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan map[string]any
	pending atomic.Int64
	once    sync.Once
	closed  chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// SetDefault installs c as the package-level client used by the helpers below.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}

// Default returns the package-level client; nil until SetDefault is called.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events would be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a named event. props must not carry personal data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	c.pending.Add(1)
	select {
	case c.q <- payload:
	default:
		c.pending.Add(-1)
	}
}

// LayoutCommitted records a successful layout save.
func (c *Client) LayoutCommitted(shapes, size int) {
	c.Event(EventLayoutCommitted, map[string]any{"shapes": shapes, "bytes": size})
}

// TemplateInstantiated records a standard layout being applied.
func (c *Client) TemplateInstantiated(template string, shapes int) {
	c.Event(EventTemplateInstantiated, map[string]any{"template": template, "shapes": shapes})
}

// Flush waits up to 500ms for queued and in-flight events.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for c.pending.Load() > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Close stops the sender goroutine. Queued events are dropped.
func (c *Client) Close() {
	if c != nil {
		c.once.Do(func() { close(c.closed) })
	}
}

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", mustJSON(item))
			c.pending.Add(-1)
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (c *Client) post(url, contentType string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		c.log.Debug("telemetry send failed", slog.Any("err", err))
		return
	}
	_ = resp.Body.Close()
}

// UploadCrash posts an already serialized crash report when opted in. It
// blocks for at most the configured timeout.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report)
}
