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
	"os"
	"path/filepath"
	"time"

	applog "meshforge/internal/log"
	"meshforge/internal/snap"
	"meshforge/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// StatsDirName stores per-profile ephemeral data under the profile root.
	StatsDirName  = ".mf"
	StatsFileName = "stats.sqlite"

	// statsSchemaVersion tracks the local SQLite schema for the stats store.
	// Bump this when you perform breaking schema changes and add migrations.
	statsSchemaVersion = 2
)

// StatsPath returns the full path to the profile's stats database file.
func StatsPath(profileRoot string) string {
	return filepath.Join(profileRoot, StatsDirName, StatsFileName)
}

// SessionRecord is one persisted drag session's engine activity.
type SessionRecord struct {
	ID           int64
	StartedAt    time.Time
	EndedAt      time.Time
	Calculations uint64
	SnapsApplied uint64
	Candidates   uint64
	TotalMicros  int64
}

// InitOrOpenStats ensures the per-profile SQLite stats database exists at
// .mf/stats.sqlite, opens it, enables WAL mode, and ensures the meta/version
// tables plus the sessions schema exist. The returned *sql.DB is ready for
// use; callers close it when done.
func InitOrOpenStats(profileRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "stats_init").With(
		slog.String("root", profileRoot),
	)
	if profileRoot == "" {
		return nil, errors.New("profile root is required")
	}
	if err := os.MkdirAll(filepath.Join(profileRoot, StatsDirName), 0o755); err != nil {
		l.Error("create .mf dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .mf dir: %w", err)
	}

	path := StatsPath(profileRoot)
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureStatsMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureStatsSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure stats schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runStatsMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("stats store ready", slog.String("path", path))
	return db, nil
}

func ensureStatsMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, statsSchemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureStatsSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id    INTEGER PRIMARY KEY,
			started_at    TEXT    NOT NULL,
			ended_at      TEXT    NOT NULL,
			calculations  INTEGER NOT NULL,
			snaps_applied INTEGER NOT NULL,
			candidates    INTEGER NOT NULL,
			total_micros  INTEGER NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create stats schema: %w", err)
		}
	}
	return nil
}

// runStatsMigrations applies incremental schema migrations up to
// statsSchemaVersion.
func runStatsMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > statsSchemaVersion {
		// Never downgrade.
		return nil
	}
	for cur < statsSchemaVersion {
		next := cur + 1
		switch next {
		case 2:
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);`); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
		default:
			// Unknown future step; nothing to do.
		}
		cur = next
	}
	return nil
}

// RecordSession persists one drag session's engine stats.
func RecordSession(ctx context.Context, db *sql.DB, started, ended time.Time, st snap.Stats) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, calculations, snaps_applied, candidates, total_micros)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		started.UTC().Format(time.RFC3339Nano),
		ended.UTC().Format(time.RFC3339Nano),
		int64(st.Calculations), int64(st.SnapsApplied), int64(st.Candidates),
		st.TotalDuration.Microseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session id: %w", err)
	}
	return id, nil
}

// RecentSessions returns up to limit sessions, newest first.
func RecentSessions(ctx context.Context, db *sql.DB, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT session_id, started_at, ended_at, calculations, snaps_applied, candidates, total_micros
		 FROM sessions ORDER BY started_at DESC, session_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			rec                 SessionRecord
			started, ended      string
			calcs, snaps, cands int64
		)
		if err := rows.Scan(&rec.ID, &started, &ended, &calcs, &snaps, &cands, &rec.TotalMicros); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		rec.Calculations = uint64(calcs)
		rec.SnapsApplied = uint64(snaps)
		rec.Candidates = uint64(cands)
		out = append(out, rec)
	}
	return out, rows.Err()
}
