/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log provides centralized slog-based logging for farmlayout.
// It wraps the standard slog with a small configuration surface and a handler
// that enriches records with the farm file currently being edited.
package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"farmlayout/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization.
// Values can be provided directly or via environment variables:
//   - FLT_LOG_LEVEL=debug|info|warn|error
//   - FLT_LOG_FORMAT=console|json
//   - FLT_LOG_FILE=<path> (enables file logging with rotation)
//   - FLT_LOG_SOURCE=true|false (include source)
//
// Defaults: INFO level, console format, no source.
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string // optional path for file logging (rotated)
	// Writer replaces stderr for the console handler; used by tests.
	Writer io.Writer
}

var current atomic.Pointer[slog.Logger]

type farmFileKey struct{}

// L returns the application logger. The first call before Init configures it
// from the environment.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return current.Load()
}

// Init builds the application logger from opts and installs it as
// slog.Default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	sinks := []slog.Handler{newConsoleHandler(out, lvl, opts.AddSource)}
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		sinks[0] = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
	}
	if path := strings.TrimSpace(opts.File); path != "" {
		rot := &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		sinks = append(sinks, slog.NewJSONHandler(rot, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}))
	}

	logger := slog.New(fanout(sinks)).With(
		slog.String("app", "farmlayout"),
		slog.String("ver", version.Version),
		slog.Time("ts_init", time.Now()),
	)
	current.Store(logger)
	slog.SetDefault(logger)
}

// FromEnv reads FLT_LOG_LEVEL, FLT_LOG_FORMAT, FLT_LOG_SOURCE and
// FLT_LOG_FILE.
func FromEnv() Options {
	opts := Options{Level: "info", Format: "console", File: os.Getenv("FLT_LOG_FILE")}
	if v := os.Getenv("FLT_LOG_LEVEL"); v != "" {
		opts.Level = v
	}
	if v := os.Getenv("FLT_LOG_FORMAT"); v != "" {
		opts.Format = v
	}
	opts.AddSource, _ = strconv.ParseBool(os.Getenv("FLT_LOG_SOURCE"))
	return opts
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// ContextWithFarmFile returns a context whose log records carry farm_file=<id>
// when logged through one of the *Context slog methods.
func ContextWithFarmFile(ctx context.Context, fileID string) context.Context {
	return context.WithValue(ctx, farmFileKey{}, fileID)
}

// FarmFileFrom returns the farm file id stored by ContextWithFarmFile.
func FarmFileFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(farmFileKey{}).(string)
	return id, ok && id != ""
}

// parseLevel accepts slog's level names plus "warning"; anything else is INFO.
func parseLevel(s string) slog.Leveler {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// fanoutHandler stamps the farm file id from the context on each record and
// hands it to every sink that accepts its level.
type fanoutHandler struct{ sinks []slog.Handler }

func fanout(sinks []slog.Handler) slog.Handler { return &fanoutHandler{sinks: sinks} }

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(f.sinks, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	id, tagged := FarmFileFrom(ctx)
	var errs []error
	for _, h := range f.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		rec := r.Clone()
		if tagged {
			rec.AddAttrs(slog.String("farm_file", id))
		}
		errs = append(errs, h.Handle(ctx, rec))
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	out := make([]slog.Handler, len(f.sinks))
	for i, h := range f.sinks {
		out[i] = fn(h)
	}
	return &fanoutHandler{sinks: out}
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

// newConsoleHandler writes one short line per record: RFC3339 time, a
// three-letter level, the message and key=value attributes.
func newConsoleHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			case slog.LevelKey:
				if l, ok := a.Value.Any().(slog.Level); ok {
					return slog.String(slog.LevelKey, levelString(l))
				}
			}
			return a
		},
	})
}

func levelString(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DBG"
	case slog.LevelInfo:
		return "INF"
	case slog.LevelWarn:
		return "WRN"
	case slog.LevelError:
		return "ERR"
	default:
		return l.String()
	}
}
