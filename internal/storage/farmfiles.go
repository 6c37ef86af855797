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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	applog "farmlayout/internal/log"
)

// ErrNotFound is returned for farm file ids that do not exist.
var ErrNotFound = errors.New("farm file not found")

// FarmFile is the part of a farm-file record this subsystem can see.
type FarmFile struct {
	ID            string
	Title         string
	LayoutVersion int64
	UpdatedAt     time.Time
}

// CreateFarmFile inserts an empty farm file. The layout column starts NULL.
func (d *DB) CreateFarmFile(ctx context.Context, id, title string) error {
	ts := now()
	if _, err := d.exec(ctx, `INSERT INTO farm_files (id, title, layout, created_at, updated_at) VALUES(?, ?, NULL, ?, ?)`, id, title, ts, ts); err != nil {
		return fmt.Errorf("create farm file %q: %w", id, err)
	}
	return nil
}

// LoadLayout returns the stored layout text for id; nil when the layout has
// never been written.
func (d *DB) LoadLayout(ctx context.Context, id string) ([]byte, error) {
	var raw sql.NullString
	err := d.db.QueryRowContext(ctx, d.rebind(`SELECT layout FROM farm_files WHERE id=?`), id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load layout %q: %w", id, err)
	}
	if !raw.Valid {
		return nil, nil
	}
	return []byte(raw.String), nil
}

// SaveLayout replaces the layout column of id and bumps its layout version.
func (d *DB) SaveLayout(ctx context.Context, id string, layout []byte) error {
	l := applog.WithOperation(d.log, "save_layout")
	res, err := d.exec(ctx, `UPDATE farm_files SET layout=?, layout_version=layout_version+1, updated_at=? WHERE id=?`, string(layout), now(), id)
	if err != nil {
		l.ErrorContext(ctx, "update failed", slog.String("id", id), slog.Any("err", err))
		return fmt.Errorf("save layout %q: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	l.DebugContext(ctx, "layout saved", slog.String("id", id), slog.Int("bytes", len(layout)))
	return nil
}

// Get returns the farm file metadata for id.
func (d *DB) Get(ctx context.Context, id string) (FarmFile, error) {
	var (
		f  FarmFile
		ts string
	)
	err := d.db.QueryRowContext(ctx, d.rebind(`SELECT id, title, layout_version, updated_at FROM farm_files WHERE id=?`), id).
		Scan(&f.ID, &f.Title, &f.LayoutVersion, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return FarmFile{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return FarmFile{}, fmt.Errorf("get farm file %q: %w", id, err)
	}
	f.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	return f, nil
}

// List returns all farm files, most recently updated first.
func (d *DB) List(ctx context.Context) ([]FarmFile, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, title, layout_version, updated_at FROM farm_files ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list farm files: %w", err)
	}
	defer rows.Close()
	var out []FarmFile
	for rows.Next() {
		var (
			f  FarmFile
			ts string
		)
		if err := rows.Scan(&f.ID, &f.Title, &f.LayoutVersion, &ts); err != nil {
			return nil, err
		}
		f.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, f)
	}
	return out, rows.Err()
}
