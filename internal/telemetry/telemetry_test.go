/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type sink struct {
	mu      sync.Mutex
	events  []map[string]any
	crashes [][]byte
}

func (s *sink) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		s.mu.Lock()
		s.events = append(s.events, m)
		s.mu.Unlock()
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.crashes = append(s.crashes, b)
		s.mu.Unlock()
	})
	return httptest.NewServer(mux)
}

func TestDomainEventsAreSent(t *testing.T) {
	s := &sink{}
	srv := s.server()
	defer srv.Close()
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()

	c.LayoutCommitted(7, 512)
	c.TemplateInstantiated("well-and-main", 3)
	c.Flush(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(s.events))
	}
	if s.events[0]["name"] != EventLayoutCommitted || s.events[0]["shapes"] != float64(7) {
		t.Fatalf("unexpected first event: %v", s.events[0])
	}
	if s.events[1]["name"] != EventTemplateInstantiated || s.events[1]["template"] != "well-and-main" {
		t.Fatalf("unexpected second event: %v", s.events[1])
	}
	if _, ok := s.events[0]["ts"].(string); !ok {
		t.Fatalf("missing ts field")
	}
}

func TestUploadCrash(t *testing.T) {
	s := &sink{}
	srv := s.server()
	defer srv.Close()
	c := New(Config{OptIn: true, CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	c.UploadCrash([]byte("STACKTRACE"))
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.crashes) != 1 || string(s.crashes[0]) != "STACKTRACE" {
		t.Fatalf("crash report not uploaded: %q", s.crashes)
	}
}

func TestDisabledClientSendsNothing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	c.LayoutCommitted(1, 1)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(nil)

	var nilClient *Client
	nilClient.TemplateInstantiated("x", 1)
	nilClient.Flush(context.Background())

	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests, got %d", hits)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvEventsURL, " http://127.0.0.1:0 ")
	t.Setenv(EnvCrashURL, "")
	t.Setenv(EnvTimeoutMs, "100")
	cfg := FromEnv(true)
	if !cfg.OptIn || cfg.EventsURL != "http://127.0.0.1:0" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	if !New(cfg).Enabled() {
		t.Fatalf("client should be enabled")
	}
	SetDefault(nil)
	if Default() != nil {
		t.Fatalf("default should be cleared")
	}
}
