/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

// CanvasConfig holds the visible canvas size and the default geometry of
// shapes created by the instant tools.
type CanvasConfig struct {
	Width             float64 `yaml:"width"`
	Height            float64 `yaml:"height"`
	WellRadius        float64 `yaml:"well_radius"`
	BorderWidth       float64 `yaml:"border_width"`
	BorderHeight      float64 `yaml:"border_height"`
	IconSize          float64 `yaml:"icon_size"`
	MainPipeStroke    float64 `yaml:"main_pipe_stroke"`
	LateralPipeStroke float64 `yaml:"lateral_pipe_stroke"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres"
	DSN    string `yaml:"dsn"`
}

type BackendConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the YAML file in the user config dir. FLT_* variables override
// it at load time and are never written back. Bump ConfigVersion on
// incompatible changes.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Storage       StorageConfig `yaml:"storage"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Canvas: CanvasConfig{
			Width: 800, Height: 600,
			WellRadius:  30,
			BorderWidth: 400, BorderHeight: 300,
			IconSize:          40,
			MainPipeStroke:    4,
			LateralPipeStroke: 2,
		},
		Storage: StorageConfig{Driver: "sqlite", DSN: ""},
		Backend: BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile       = "FLT_CONFIG"
	EnvBackendURL       = "FLT_BACKEND_URL"
	EnvBackendTimeoutMs = "FLT_BACKEND_TIMEOUT_MS"
	EnvTelemetryOptIn   = "FLT_TELEMETRY_OPT_IN"
	EnvStorageDriver    = "FLT_STORAGE_DRIVER"
	EnvStorageDSN       = "FLT_STORAGE_DSN"
	EnvLogLevel         = "FLT_LOG_LEVEL"
	EnvLogFormat        = "FLT_LOG_FORMAT"
	EnvLogSource        = "FLT_LOG_SOURCE"
	EnvLogFile          = "FLT_LOG_FILE"
)

// ConfigPath returns the per-user config file path. FLT_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, "farmlayout", "config.yaml"), nil
}

// DefaultDSN returns the SQLite database path next to the config file.
func DefaultDSN() string {
	p, err := ConfigPath()
	if err != nil {
		return "farmlayout.sqlite"
	}
	return filepath.Join(filepath.Dir(p), "farmlayout.sqlite")
}

// Load returns the defaults overlaid with the YAML file, when there is one,
// and then with FLT_* variables. The backend token comes from the keyring
// and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// fields absent from the file keep their default
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), "", fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	for _, o := range envOverrides {
		if v := strings.TrimSpace(os.Getenv(o.name)); v != "" {
			o.apply(&cfg, v)
		}
	}
	cfg.normalize()
	if cfg.Storage.DSN == "" && cfg.Storage.Driver == "sqlite" {
		cfg.Storage.DSN = DefaultDSN()
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes cfg as YAML and, when token is set, stores it in the OS keyring.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if token == "" {
		return nil
	}
	if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
		return fmt.Errorf("store backend token: %w", err)
	}
	return nil
}

// normalize lower-cases the enumerated settings and puts back the default
// for any canvas size that is zero or negative, since such a size would
// produce invisible shapes.
func (c *AppConfig) normalize() {
	def := Defaults()
	if c.ConfigVersion <= 0 {
		c.ConfigVersion = def.ConfigVersion
	}
	sizes := []struct {
		got *float64
		def float64
	}{
		{&c.Canvas.Width, def.Canvas.Width},
		{&c.Canvas.Height, def.Canvas.Height},
		{&c.Canvas.WellRadius, def.Canvas.WellRadius},
		{&c.Canvas.BorderWidth, def.Canvas.BorderWidth},
		{&c.Canvas.BorderHeight, def.Canvas.BorderHeight},
		{&c.Canvas.IconSize, def.Canvas.IconSize},
		{&c.Canvas.MainPipeStroke, def.Canvas.MainPipeStroke},
		{&c.Canvas.LateralPipeStroke, def.Canvas.LateralPipeStroke},
	}
	for _, s := range sizes {
		if *s.got <= 0 {
			*s.got = s.def
		}
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	c.Storage.DSN = strings.TrimSpace(c.Storage.DSN)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.File = strings.TrimSpace(c.Logging.File)
}

var envOverrides = []struct {
	name  string
	apply func(c *AppConfig, v string)
}{
	{EnvBackendURL, func(c *AppConfig, v string) { c.Backend.BaseURL = v }},
	{EnvBackendTimeoutMs, func(c *AppConfig, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backend.TimeoutMs = n
		}
	}},
	{EnvTelemetryOptIn, func(c *AppConfig, v string) { c.General.TelemetryOptIn = truthy(v) }},
	{EnvStorageDriver, func(c *AppConfig, v string) { c.Storage.Driver = v }},
	{EnvStorageDSN, func(c *AppConfig, v string) { c.Storage.DSN = v }},
	{EnvLogLevel, func(c *AppConfig, v string) { c.Logging.Level = v }},
	{EnvLogFormat, func(c *AppConfig, v string) { c.Logging.Format = v }},
	{EnvLogSource, func(c *AppConfig, v string) { c.Logging.Source = truthy(v) }},
	{EnvLogFile, func(c *AppConfig, v string) { c.Logging.File = v }},
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Timeout returns the backend timeout, falling back to the default for non-positive values.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}
