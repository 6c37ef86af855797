/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeSource struct{ id, data string }

func (f fakeSource) FileID() string        { return f.id }
func (f fakeSource) EncodedLayout() []byte { return []byte(f.data) }

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func TestRecoverWritesReportAndAutosave(t *testing.T) {
	silenceStderr(t)
	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	dir := filepath.Join(t.TempDir(), "crash")
	func() {
		defer Recover(dir, fakeSource{id: "F-7", data: `[{"kind":"well"}]`})
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var report, autosave string
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "crash-"):
			report = filepath.Join(dir, e.Name())
		case strings.HasPrefix(e.Name(), "F-7-autosave-"):
			autosave = filepath.Join(dir, e.Name())
		}
	}
	if report == "" || autosave == "" {
		t.Fatalf("missing files in %v", entries)
	}
	b, _ := os.ReadFile(report)
	if !strings.Contains(string(b), "Panic: boom") || !strings.Contains(string(b), "FarmFile: F-7") {
		t.Fatalf("unexpected report: %s", b)
	}
	if b, _ := os.ReadFile(autosave); string(b) != `[{"kind":"well"}]` {
		t.Fatalf("autosave content = %s", b)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(t.TempDir(), nil)
	}()
	if called {
		t.Fatalf("exit must not be called without a panic")
	}
}

func TestWriteReportInTemp(t *testing.T) {
	path, err := writeReport("", nil, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	defer os.Remove(path)
	b, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(b), "Farm Layout Crash Report") || strings.Contains(string(b), "FarmFile:") {
		t.Fatalf("unexpected report: %s", b)
	}
}

func TestAutosaveUnnamed(t *testing.T) {
	path, err := Autosave(t.TempDir(), fakeSource{data: "[]"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(path), "unsaved-autosave-") {
		t.Fatalf("unexpected autosave name %s", path)
	}
}
