/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (m memTokens) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memTokens) Delete(service, key string) error {
	if _, ok := m[service+"/"+key]; !ok {
		return keyring.ErrNotFound
	}
	delete(m, service+"/"+key)
	return nil
}

// isolate points the config file at a temp dir and swaps the keyring for an in-memory map.
func isolate(t *testing.T) (string, memTokens) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, path)
	for _, k := range []string{EnvBackendURL, EnvBackendTimeoutMs, EnvTelemetryOptIn, EnvStorageDriver, EnvStorageDSN, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(k, "")
	}
	mem := memTokens{}
	old := tokenStore
	tokenStore = mem
	t.Cleanup(func() { tokenStore = old })
	return path, mem
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("expected empty token, got %q", tok)
	}
	if cfg.Canvas.Width != 800 || cfg.Canvas.WellRadius != 30 {
		t.Fatalf("canvas defaults not applied: %+v", cfg.Canvas)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.DSN == "" {
		t.Fatalf("expected sqlite default with derived dsn: %+v", cfg.Storage)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path, mem := isolate(t)
	cfg := Defaults()
	cfg.Canvas.Width = 1024
	cfg.Storage.DSN = "/tmp/x.sqlite"
	if err := Save(cfg, "secret-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Canvas.Width != 1024 || got.Storage.DSN != "/tmp/x.sqlite" {
		t.Fatalf("values not persisted: %+v", got)
	}
	if tok != "secret-token" || mem["FarmLayout/backend_token"] != "secret-token" {
		t.Fatalf("token not stored in keyring: %q", tok)
	}
	if err := ForgetToken(); err != nil {
		t.Fatalf("ForgetToken: %v", err)
	}
	if err := ForgetToken(); err != nil {
		t.Fatalf("ForgetToken twice should be a no-op: %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path, _ := isolate(t)
	if err := os.WriteFile(path, []byte("canvas: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	t.Setenv(EnvBackendTimeoutMs, "2500")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvStorageDriver, "POSTGRES")
	t.Setenv(EnvStorageDSN, "postgres://u@h/db")
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogSource, "1")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://example.test:8443" || cfg.Backend.Timeout() != 2500*time.Millisecond {
		t.Fatalf("backend overrides not applied: %+v", cfg.Backend)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("telemetry opt-in expected from env")
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN != "postgres://u@h/db" {
		t.Fatalf("storage overrides not applied: %+v", cfg.Storage)
	}
	if cfg.Logging.Level != "error" || !cfg.Logging.Source {
		t.Fatalf("logging overrides not applied: %+v", cfg.Logging)
	}
}

func TestFileOverlaysDefaults(t *testing.T) {
	path, _ := isolate(t)
	yml := "canvas:\n  width: -5\n  icon_size: 64\nstorage:\n  driver: \" Postgres \"\n  dsn: postgres://u@h/db\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Canvas.Width != 800 {
		t.Fatalf("negative width should fall back to the default, got %v", cfg.Canvas.Width)
	}
	if cfg.Canvas.IconSize != 64 || cfg.Canvas.Height != 600 {
		t.Fatalf("canvas not overlaid: %+v", cfg.Canvas)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected normalization: %+v %+v", cfg.Storage, cfg.Logging)
	}
}

func TestBackendTimeoutFallback(t *testing.T) {
	if got := (BackendConfig{}).Timeout(); got != 15*time.Second {
		t.Fatalf("Timeout() = %v, want 15s", got)
	}
}
