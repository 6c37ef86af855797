/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "data", "farm.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func exerciseLayoutColumn(t *testing.T, db *DB, id string) {
	t.Helper()
	ctx := context.Background()
	if err := db.CreateFarmFile(ctx, id, "North plot"); err != nil {
		t.Fatalf("CreateFarmFile: %v", err)
	}
	raw, err := db.LoadLayout(ctx, id)
	if err != nil || raw != nil {
		t.Fatalf("fresh farm file should have no layout, got %q, %v", raw, err)
	}
	want := `[{"kind":"well","centerX":1,"centerY":2,"radius":10}]`
	if err := db.SaveLayout(ctx, id, []byte(want)); err != nil {
		t.Fatalf("SaveLayout: %v", err)
	}
	if err := db.SaveLayout(ctx, id, []byte(want)); err != nil {
		t.Fatalf("SaveLayout again: %v", err)
	}
	raw, err = db.LoadLayout(ctx, id)
	if err != nil || string(raw) != want {
		t.Fatalf("LoadLayout = %q, %v", raw, err)
	}
	f, err := db.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if f.Title != "North plot" || f.LayoutVersion != 2 || f.UpdatedAt.IsZero() {
		t.Fatalf("unexpected farm file: %+v", f)
	}
	if _, err := db.LoadLayout(ctx, id+"-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadLayout missing = %v", err)
	}
	if err := db.SaveLayout(ctx, id+"-missing", []byte("[]")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SaveLayout missing = %v", err)
	}
}

func TestSQLiteLayoutColumn(t *testing.T) {
	exerciseLayoutColumn(t, openTemp(t), "F-1")
}

func TestSQLiteReopenKeepsSchemaAndData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "farm.sqlite")
	db, err := Open(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.CreateFarmFile(ctx, "a", "A"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveLayout(ctx, "a", []byte("[]")); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	db, err = Open(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	var schema int
	if err := db.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil || schema != schemaVersion {
		t.Fatalf("schema = %d, %v", schema, err)
	}
	list, err := db.List(ctx)
	if err != nil || len(list) != 1 || list[0].ID != "a" {
		t.Fatalf("List = %+v, %v", list, err)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "x"); err == nil {
		t.Fatalf("unknown driver should fail")
	}
	if _, err := Open(context.Background(), DriverSQLite, " "); err == nil {
		t.Fatalf("empty dsn should fail")
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DriverPostgres}
	if got := pg.rebind("UPDATE t SET a=?, b=? WHERE id=?"); got != "UPDATE t SET a=$1, b=$2 WHERE id=$3" {
		t.Fatalf("rebind = %q", got)
	}
	lite := &DB{dialect: DriverSQLite}
	if got := lite.rebind("a=?"); got != "a=?" {
		t.Fatalf("sqlite must keep ? placeholders, got %q", got)
	}
}

func TestPostgresLayoutColumn(t *testing.T) {
	dsn := os.Getenv("FLT_PG_DSN")
	if dsn == "" {
		t.Skip("FLT_PG_DSN not set")
	}
	db, err := Open(context.Background(), DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("Open postgres: %v", err)
	}
	defer db.Close()
	id := "pg-" + t.Name()
	_, _ = db.exec(context.Background(), `DELETE FROM farm_files WHERE id=?`, id)
	exerciseLayoutColumn(t, db, id)
}
