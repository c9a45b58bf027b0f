// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/kraklabs/nyx/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	project_id     TEXT PRIMARY KEY,
	root_path      TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	last_scan_at   INTEGER NOT NULL,
	write_pending  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS files (
	project_id       TEXT NOT NULL,
	relative_path    TEXT NOT NULL,
	content_hash     TEXT NOT NULL,
	modified_time    INTEGER NOT NULL,
	rule_set_version INTEGER NOT NULL,
	PRIMARY KEY (project_id, relative_path)
);

CREATE TABLE IF NOT EXISTS findings (
	project_id    TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	rule_id       TEXT NOT NULL,
	severity      INTEGER NOT NULL,
	line          INTEGER NOT NULL,
	column        INTEGER NOT NULL,
	snippet       TEXT NOT NULL,
	message       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS findings_by_file ON findings (project_id, relative_path);
`

// SQLiteIndex implements Index on an embedded modernc.org/sqlite database.
// This is the only index backend nyx ships; there is no remote/Enterprise
// variant in this module.
type SQLiteIndex struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Config configures the embedded index.
type Config struct {
	// DataDir is the directory holding the index database file. Defaults
	// to ~/.nyx/index.
	DataDir string
}

// Open opens (creating if necessary) the embedded index database and
// ensures its schema exists. Any project left with write_pending set from
// a prior crash has the flag cleared; last_scan_at is left as it was and no
// rescan is forced, since Lookup revalidates each file's content hash and
// rule-set version.
func Open(config Config) (*SQLiteIndex, error) {
	if config.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		config.DataDir = filepath.Join(homeDir, ".nyx", "index")
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := filepath.Join(config.DataDir, "nyx.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single shared connection avoids SQLITE_BUSY from concurrent
	// writers; workers only ever read through this handle, the sole writer
	// goroutine serializes its own batches.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	idx := &SQLiteIndex{db: db}
	if err := idx.recoverIncompleteWrites(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("recover incomplete writes: %w", err)
	}
	return idx, nil
}

// recoverIncompleteWrites clears write_pending for any project left marked
// mid-batch by a prior crash. Clearing the flag without touching
// last_scan_at is enough: the scan pipeline always revalidates content hash
// per file, so a stale last_scan_at only affects reporting, not correctness.
func (idx *SQLiteIndex) recoverIncompleteWrites(ctx context.Context) error {
	_, err := idx.db.ExecContext(ctx, `UPDATE projects SET write_pending = 0 WHERE write_pending != 0`)
	return err
}

// Lookup implements Index.
func (idx *SQLiteIndex) Lookup(ctx context.Context, projectID, relativePath, contentHash string, ruleSetVersion int) ([]model.Finding, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, fmt.Errorf("index is closed")
	}

	var storedHash string
	var storedVersion int
	err := idx.db.QueryRowContext(ctx,
		`SELECT content_hash, rule_set_version FROM files WHERE project_id = ? AND relative_path = ?`,
		projectID, relativePath,
	).Scan(&storedHash, &storedVersion)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup file record: %w", err)
	}
	if storedHash != contentHash || storedVersion != ruleSetVersion {
		return nil, nil
	}

	rows, err := idx.db.QueryContext(ctx,
		`SELECT rule_id, severity, line, column, snippet, message FROM findings WHERE project_id = ? AND relative_path = ?`,
		projectID, relativePath,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup findings: %w", err)
	}
	defer rows.Close()

	findings := []model.Finding{}
	for rows.Next() {
		var f model.Finding
		var severity int
		if err := rows.Scan(&f.RuleID, &severity, &f.Line, &f.Column, &f.Snippet, &f.Message); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Severity = model.Severity(severity)
		f.FilePath = relativePath
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return findings, nil
}

// StoreBatch implements Index. The whole batch commits in one transaction.
func (idx *SQLiteIndex) StoreBatch(ctx context.Context, records []model.FileRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return fmt.Errorf("index is closed")
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	touchedProjects := make(map[string]struct{}, len(records))
	for _, rec := range records {
		touchedProjects[rec.ProjectID] = struct{}{}

		if err := idx.ensureProject(ctx, tx, rec.ProjectID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (project_id, relative_path, content_hash, modified_time, rule_set_version)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(project_id, relative_path) DO UPDATE SET
				content_hash = excluded.content_hash,
				modified_time = excluded.modified_time,
				rule_set_version = excluded.rule_set_version`,
			rec.ProjectID, rec.RelativePath, rec.ContentHash, rec.ModifiedTime, rec.RuleSetVersion,
		); err != nil {
			return fmt.Errorf("upsert file record: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM findings WHERE project_id = ? AND relative_path = ?`,
			rec.ProjectID, rec.RelativePath,
		); err != nil {
			return fmt.Errorf("clear stale findings: %w", err)
		}

		for _, f := range rec.Findings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO findings (project_id, relative_path, rule_id, severity, line, column, snippet, message)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.ProjectID, rec.RelativePath, f.RuleID, int(f.Severity), f.Line, f.Column, f.Snippet, f.Message,
			); err != nil {
				return fmt.Errorf("insert finding: %w", err)
			}
		}
	}

	for projectID := range touchedProjects {
		if _, err := tx.ExecContext(ctx,
			`UPDATE projects SET last_scan_at = (SELECT CAST(strftime('%s','now') AS INTEGER)) WHERE project_id = ?`,
			projectID,
		); err != nil {
			return fmt.Errorf("touch project: %w", err)
		}
	}

	return tx.Commit()
}

func (idx *SQLiteIndex) ensureProject(ctx context.Context, tx *sql.Tx, projectID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO projects (project_id, root_path, created_at, last_scan_at)
		 VALUES (?, '', (SELECT CAST(strftime('%s','now') AS INTEGER)), (SELECT CAST(strftime('%s','now') AS INTEGER)))
		 ON CONFLICT(project_id) DO NOTHING`,
		projectID,
	)
	if err != nil {
		return fmt.Errorf("ensure project: %w", err)
	}
	return nil
}

// InitProject creates a project's lifecycle row if it doesn't already
// exist, recording rootPath. Safe to call repeatedly; an existing project's
// root path is left untouched.
func (idx *SQLiteIndex) InitProject(ctx context.Context, projectID, rootPath string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return fmt.Errorf("index is closed")
	}
	_, err := idx.db.ExecContext(ctx,
		`INSERT INTO projects (project_id, root_path, created_at, last_scan_at)
		 VALUES (?, ?, (SELECT CAST(strftime('%s','now') AS INTEGER)), 0)
		 ON CONFLICT(project_id) DO NOTHING`,
		projectID, rootPath,
	)
	if err != nil {
		return fmt.Errorf("init project: %w", err)
	}
	return nil
}

// Purge implements Index.
func (idx *SQLiteIndex) Purge(ctx context.Context, projectID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("purge findings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("purge files: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("purge project: %w", err)
	}

	return tx.Commit()
}

// Project implements Index.
func (idx *SQLiteIndex) Project(ctx context.Context, projectID string) (*model.ProjectRecord, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, fmt.Errorf("index is closed")
	}

	rec, err := idx.scanProject(ctx, projectID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (idx *SQLiteIndex) scanProject(ctx context.Context, projectID string) (*model.ProjectRecord, error) {
	var rec model.ProjectRecord
	err := idx.db.QueryRowContext(ctx,
		`SELECT project_id, root_path, created_at, last_scan_at FROM projects WHERE project_id = ?`,
		projectID,
	).Scan(&rec.ProjectID, &rec.RootPath, &rec.CreatedAt, &rec.LastScanAt)
	if err != nil {
		return nil, err
	}

	if err := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files WHERE project_id = ?`, projectID,
	).Scan(&rec.FileCount); err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}
	if err := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM findings WHERE project_id = ?`, projectID,
	).Scan(&rec.FindingCount); err != nil {
		return nil, fmt.Errorf("count findings: %w", err)
	}
	return &rec, nil
}

// Projects implements Index.
func (idx *SQLiteIndex) Projects(ctx context.Context) ([]model.ProjectRecord, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, fmt.Errorf("index is closed")
	}

	rows, err := idx.db.QueryContext(ctx, `SELECT project_id FROM projects ORDER BY project_id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	records := make([]model.ProjectRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := idx.scanProject(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Close implements Index. Idempotent.
func (idx *SQLiteIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	return idx.db.Close()
}
