/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"farmlayout/internal/backend"
	"farmlayout/internal/codec"
	"farmlayout/internal/config"
	"farmlayout/internal/crash"
	"farmlayout/internal/export"
	applog "farmlayout/internal/log"
	"farmlayout/internal/render"
	"farmlayout/internal/session"
	"farmlayout/internal/storage"
	"farmlayout/internal/telemetry"
	"farmlayout/internal/templates"
	"farmlayout/internal/ui"
	"farmlayout/internal/version"
)

func usage() {
	fmt.Println("farmlayout: micro-irrigation farm layout editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  farmlayout [--remote] <command> ...")
	fmt.Println()
	fmt.Println("  version                          Show version")
	fmt.Println("  templates                        List standard layouts")
	fmt.Println("  decode <file>                    Decode a stored layout value and print the clean wire form")
	fmt.Println("  create <fileID> <title>          Create an empty farm file (local store only)")
	fmt.Println("  new <fileID> <template>          Replace the layout of <fileID> with a standard layout")
	fmt.Println("  render <fileID> <out.png>        Rasterize the layout to PNG")
	fmt.Println("  svg <fileID> <out.svg>           Write the layout as SVG")
	fmt.Println("  pdf <fileID> <out.pdf>           Write a printable layout sheet")
	fmt.Println("  export <fileID> <dir> [web|print] Export with a preset")
	fmt.Println("  ui <fileID>                      Launch the editor (build with -tags fyne)")
	fmt.Println("  login <token>                    Store the backend token in the OS keyring")
	fmt.Println("  logout                           Remove the stored backend token")
	fmt.Println()
	fmt.Println("--remote uses the backend API (backend.base_url, token from the OS keyring) instead of the local database.")
}

// app carries what every command needs.
type app struct {
	cfg      config.AppConfig
	token    string
	remote   bool
	crashDir string
	log      *slog.Logger
	db       *storage.DB
	icons    *render.IconCache
}

func main() {
	cfg, token, cfgErr := config.Load()
	applog.Init(applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: cfg.Logging.Source, File: cfg.Logging.File})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}
	tel := telemetry.New(telemetry.FromEnv(cfg.General.TelemetryOptIn))
	telemetry.SetDefault(tel)
	defer tel.Close()

	a := &app{cfg: cfg, token: token, log: l, crashDir: crashDir()}
	defer crash.Recover(a.crashDir, nil)

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "--remote" {
		a.remote = true
		args = args[1:]
	}
	if len(args) == 0 {
		usage()
		return
	}
	l.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)))

	err := a.run(args)
	tel.Flush(context.Background())
	if a.db != nil {
		_ = a.db.Close()
	}
	var ue usageError
	switch {
	case errors.As(err, &ue):
		fmt.Println(ue.msg)
		usage()
		os.Exit(2)
	case err != nil:
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func need(args []string, n int, msg string) error {
	if len(args) < n+1 {
		return usageError{msg}
	}
	return nil
}

func crashDir() string {
	p, err := config.ConfigPath()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(p), "crash")
}

func (a *app) run(args []string) error {
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return nil
	case "templates":
		return listTemplates()
	case "decode":
		if err := need(args, 1, "decode requires <file>"); err != nil {
			return err
		}
		return decodeFile(args[1])
	case "create":
		if err := need(args, 2, "create requires <fileID> and <title>"); err != nil {
			return err
		}
		return a.create(args[1], strings.Join(args[2:], " "))
	case "new":
		if err := need(args, 2, "new requires <fileID> and <template>"); err != nil {
			return err
		}
		return a.newFromTemplate(args[1], args[2])
	case "render", "svg", "pdf":
		if err := need(args, 2, args[0]+" requires <fileID> and <out>"); err != nil {
			return err
		}
		return a.write(args[0], args[1], args[2])
	case "export":
		if err := need(args, 2, "export requires <fileID> and <dir>"); err != nil {
			return err
		}
		preset := export.PresetWeb
		if len(args) > 3 {
			preset = export.PresetName(args[3])
		}
		return a.batch(args[1], args[2], preset)
	case "ui":
		if err := need(args, 1, "ui requires <fileID>"); err != nil {
			return err
		}
		return a.ui(args[1])
	case "login":
		if err := need(args, 1, "login requires <token>"); err != nil {
			return err
		}
		if err := config.Save(a.cfg, args[1]); err != nil {
			return err
		}
		fmt.Println("Backend token stored.")
		return nil
	case "logout":
		if err := config.ForgetToken(); err != nil {
			return err
		}
		fmt.Println("Backend token removed.")
		return nil
	}
	return usageError{fmt.Sprintf("unknown command %q", args[0])}
}

// store returns the layout store selected on the command line.
func (a *app) store(ctx context.Context) (session.LayoutStore, error) {
	if a.remote {
		return backend.NewClient(a.cfg.Backend.BaseURL, a.token, a.cfg.Backend.Timeout()), nil
	}
	if a.db == nil {
		db, err := storage.Open(ctx, a.cfg.Storage.Driver, a.cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
	}
	return a.db, nil
}

// iconCache returns the icon cache shared by every session's print bridge
// and the editor canvas. Icons are fully loaded before it is handed out, so
// exports never print placeholder frames.
func (a *app) iconCache() *render.IconCache {
	if a.icons == nil {
		a.icons = render.NewIconCache(context.Background(), render.BuiltinIcons{Size: 64})
		a.icons.Preload()
		a.icons.Wait()
	}
	return a.icons
}

func (a *app) options() session.Options {
	opt := session.Options{Canvas: a.cfg.Canvas, Icons: a.iconCache(), Telemetry: telemetry.Default()}
	if cat, err := templates.Standard(); err == nil {
		opt.Templates = cat
	} else {
		a.log.Error("standard layouts unavailable", slog.Any("err", err))
	}
	return opt
}

func (a *app) open(ctx context.Context, fileID string) (*session.Session, error) {
	st, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	s, err := session.Open(applog.ContextWithFarmFile(ctx, fileID), st, fileID, a.options())
	if err != nil {
		return nil, err
	}
	for _, d := range s.Diagnostics() {
		fmt.Println("warning:", d)
	}
	return s, nil
}

func listTemplates() error {
	cat, err := templates.Standard()
	if err != nil {
		return err
	}
	for _, name := range cat.Names() {
		t, _ := cat.Template(name)
		fmt.Printf("%-20s %2d shapes  %s\n", t.Name, len(t.Shapes), t.Title)
	}
	return nil
}

func decodeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	res := codec.Decode(raw)
	for _, d := range res.Diagnostics {
		fmt.Fprintln(os.Stderr, "warning:", d)
	}
	fmt.Fprintf(os.Stderr, "%d shape(s)", len(res.Shapes))
	if res.Strategy != "" {
		fmt.Fprintf(os.Stderr, " via %s", res.Strategy)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Println(string(codec.Encode(res.Shapes)))
	return nil
}

func (a *app) create(fileID, title string) error {
	if a.remote {
		return errors.New("farm files are created by the hosting application; create works on the local store only")
	}
	ctx := context.Background()
	if _, err := a.store(ctx); err != nil {
		return err
	}
	if err := a.db.CreateFarmFile(ctx, fileID, title); err != nil {
		return err
	}
	fmt.Println("Created farm file", fileID)
	return nil
}

func (a *app) newFromTemplate(fileID, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Backend.Timeout())
	defer cancel()
	st, err := a.store(ctx)
	if err != nil {
		return err
	}
	s, err := session.NewFromTemplate(st, fileID, name, a.options())
	if err != nil {
		return err
	}
	defer crash.Recover(a.crashDir, s)
	if err := s.Commit(ctx); err != nil {
		return err
	}
	fmt.Printf("Wrote %d shape(s) from %q to %s\n", s.Shapes.Len(), name, fileID)
	return nil
}

func (a *app) write(kind, fileID, out string) error {
	s, err := a.open(context.Background(), fileID)
	if err != nil {
		return err
	}
	defer crash.Recover(a.crashDir, s)
	s.MountDefault()
	cv := s.Canvas()
	withImage := true
	switch kind {
	case "render":
		withImage, err = export.WritePNG(s, out)
	case "svg":
		err = export.WriteSVG(s.Shapes.Snapshot(), out, export.SVGOptions{Width: cv.Width, Height: cv.Height, Title: fileID})
	case "pdf":
		withImage, err = export.WriteSheetPDF(s, out, export.SheetOptions{FarmFile: fileID, Printed: time.Now()})
	}
	if err != nil {
		return err
	}
	if !withImage {
		fmt.Println("Diagram unavailable; nothing drawn.")
		return nil
	}
	fmt.Println("Wrote", out)
	return nil
}

func (a *app) batch(fileID, dir string, preset export.PresetName) error {
	s, err := a.open(context.Background(), fileID)
	if err != nil {
		return err
	}
	defer crash.Recover(a.crashDir, s)
	s.MountDefault()
	cv := s.Canvas()
	res, err := export.BatchExport(s, export.BatchOptions{
		Preset: preset,
		OutDir: dir,
		FileID: fileID,
		Shapes: s.Shapes.Snapshot(),
		SVG:    export.SVGOptions{Width: cv.Width, Height: cv.Height, Title: fileID},
		Sheet:  export.SheetOptions{FarmFile: fileID},
	})
	if err != nil {
		return err
	}
	for _, p := range res.Written {
		fmt.Println("Wrote", p)
	}
	return nil
}

func (a *app) ui(fileID string) error {
	s, err := a.open(context.Background(), fileID)
	if err != nil {
		return err
	}
	cat, _ := templates.Standard()
	var names []string
	if cat != nil {
		names = cat.Names()
	}
	return ui.Run(ui.RunOptions{Session: s, Templates: names, CrashDir: a.crashDir, Icons: a.iconCache()})
}
