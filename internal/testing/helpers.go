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
// SPDX-License-Identifier: AGPL-3.0-or-later

package testing

import (
	"context"
	"testing"

	"github.com/kraklabs/nyx/pkg/model"
	"github.com/kraklabs/nyx/pkg/storage"
)

// SetupTestIndex creates a fresh on-disk SQLite index under a temp
// directory, for tests that need a real storage.Index without touching the
// user's actual index file.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    idx := testing.SetupTestIndex(t)
//	    testing.InsertTestFileRecord(t, idx, "proj", "a.go", "hash1", 1, nil)
//	}
func SetupTestIndex(t *testing.T) *storage.SQLiteIndex {
	t.Helper()

	idx, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open test index: %v", err)
	}
	t.Cleanup(func() {
		_ = idx.Close()
	})
	return idx
}

// InsertTestFileRecord stores one file's findings into idx, creating the
// project row implicitly (StoreBatch does this).
func InsertTestFileRecord(t *testing.T, idx *storage.SQLiteIndex, projectID, relativePath, contentHash string, ruleSetVersion int, findings []model.Finding) {
	t.Helper()

	err := idx.StoreBatch(context.Background(), []model.FileRecord{{
		ProjectID:      projectID,
		RelativePath:   relativePath,
		ContentHash:    contentHash,
		RuleSetVersion: ruleSetVersion,
		Findings:       findings,
	}})
	if err != nil {
		t.Fatalf("failed to insert test file record: %v", err)
	}
}

// NewTestFinding builds a model.Finding with sensible defaults for tests
// that don't care about every field.
func NewTestFinding(ruleID string, severity model.Severity, line, column int) model.Finding {
	return model.Finding{
		RuleID:   ruleID,
		Severity: severity,
		Line:     line,
		Column:   column,
		Message:  ruleID,
	}
}
