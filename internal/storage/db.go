/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists farm-file records. This subsystem owns only the
// layout column of a farm file; the other columns belong to the hosting
// application and are never rewritten here.
//
// SQLite (pure Go, modernc.org/sqlite) is the default; Postgres is reached
// through the pgx database/sql driver. Both share one schema and the same
// queries, written with ? placeholders and rebound per dialect.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	applog "farmlayout/internal/log"
	"farmlayout/internal/version"
)

// schemaVersion tracks the farm-file schema. Bump it together with a new
// migrations step.
const schemaVersion = 2

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB is an open farm-file database.
type DB struct {
	db      *sql.DB
	dialect string
	log     *slog.Logger
}

// Open connects to the farm-file database and brings its schema up to date.
// For sqlite, dsn is a file path; its directory is created if needed.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("driver", driver))
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("storage dsn is required")
	}
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		db, err = openSQLite(ctx, dsn)
	case DriverPostgres:
		db, err = sql.Open("pgx", dsn)
		if err == nil {
			err = db.PingContext(ctx)
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		l.Error("open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	d := &DB{db: db, dialect: driver, log: applog.WithComponent("storage")}
	if err := d.ensureSchema(ctx); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("farm file store ready")
	return d, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return db, fmt.Errorf("enable WAL: %w", err)
	}
	return db, nil
}

// Close releases the connection pool.
func (d *DB) Close() error { return d.db.Close() }

// rebind rewrites ? placeholders as $n for Postgres.
func (d *DB) rebind(q string) string {
	if d.dialect != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (d *DB) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.rebind(q), args...)
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (d *DB) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id         INTEGER PRIMARY KEY CHECK(id=1),
			schema     INTEGER NOT NULL,
			app        TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS farm_files (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			layout     TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := d.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	var cur int
	err := d.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		ts := now()
		if _, err := d.exec(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, 1, version.String(), ts, ts); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
		cur = 1
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	}
	return d.migrate(ctx, cur)
}

// migrate applies incremental steps from cur up to schemaVersion. A database
// written by a newer build is left alone.
func (d *DB) migrate(ctx context.Context, cur int) error {
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`ALTER TABLE farm_files ADD COLUMN layout_version INTEGER NOT NULL DEFAULT 0`,
				`CREATE INDEX IF NOT EXISTS idx_farm_files_updated ON farm_files(updated_at)`,
			}
		}
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, d.rebind(`UPDATE version SET schema=?, app=?, updated_at=? WHERE id=1`), next, version.String(), now()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		d.log.Info("schema migrated", slog.Int("schema", next))
		cur = next
	}
	return nil
}
