/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus an autosave of the
// drawing being edited, so a crash never costs the user their layout.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "farmlayout/internal/log"
	"farmlayout/internal/telemetry"
	"farmlayout/internal/version"
)

// Source supplies the unsaved state worth keeping. session.Session
// implements it.
type Source interface {
	FileID() string
	EncodedLayout() []byte
}

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Recover captures a panic, logs it with the stack, writes a crash report and
// an autosave of src's layout into dir (the temp dir when empty), then exits
// with code 2.
//
// Usage: defer crash.Recover(dir, sess)
func Recover(dir string, src Source) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(dir, src, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if src != nil {
		if path, err := Autosave(dir, src); err != nil {
			l.Error("autosave failed", slog.Any("err", err))
		} else {
			l.Info("autosave written", slog.String("path", path))
			fmt.Fprintf(os.Stderr, "Your drawing was autosaved to: %s\n", path)
		}
	}
	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func stamp() string { return time.Now().Format("20060102-150405") }

func resolveDir(dir string) (string, error) {
	if dir == "" {
		return os.TempDir(), nil
	}
	return dir, os.MkdirAll(dir, 0o755)
}

// Autosave writes src's encoded layout to <dir>/<fileID>-autosave-<stamp>.json.
func Autosave(dir string, src Source) (string, error) {
	dir, err := resolveDir(dir)
	if err != nil {
		return "", err
	}
	id := src.FileID()
	if id == "" {
		id = "unsaved"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-autosave-%s.json", filepath.Base(id), stamp()))
	if err := os.WriteFile(path, src.EncodedLayout(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func writeReport(dir string, src Source, panicVal any, stack []byte) (string, error) {
	dir, err := resolveDir(dir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp()))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Farm Layout Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if src != nil {
		fmt.Fprintf(&buf, "FarmFile: %s\n", src.FileID())
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.Default().UploadCrash(buf.Bytes())
	return path, nil
}
