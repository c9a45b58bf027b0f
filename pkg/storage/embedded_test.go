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
	"testing"

	"github.com/kraklabs/nyx/pkg/model"
)

func setupTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := Open(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return idx
}

func TestOpen_CreatesSchema(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	if _, err := idx.Projects(context.Background()); err != nil {
		t.Errorf("Projects after Open failed: %v", err)
	}
}

func TestStoreBatch_ThenLookup_Hit(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()
	ctx := context.Background()

	rec := model.FileRecord{
		ProjectID:      "proj1",
		RelativePath:   "pkg/handler.go",
		ContentHash:    "abc123",
		ModifiedTime:   1000,
		RuleSetVersion: 1,
		Findings: []model.Finding{
			{RuleID: "go-weak-hash-md5", Severity: model.SeverityMedium, Line: 10, Column: 2, Snippet: "md5.New()", Message: "weak hash"},
		},
	}

	if err := idx.StoreBatch(ctx, []model.FileRecord{rec}); err != nil {
		t.Fatalf("StoreBatch: %v", err)
	}

	findings, err := idx.Lookup(ctx, "proj1", "pkg/handler.go", "abc123", 1)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(findings) != 1 || findings[0].RuleID != "go-weak-hash-md5" {
		t.Errorf("Lookup() = %+v, want one go-weak-hash-md5 finding", findings)
	}
}

func TestLookup_MissOnHashMismatch(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()
	ctx := context.Background()

	rec := model.FileRecord{ProjectID: "proj1", RelativePath: "a.go", ContentHash: "hash-a", RuleSetVersion: 1}
	if err := idx.StoreBatch(ctx, []model.FileRecord{rec}); err != nil {
		t.Fatalf("StoreBatch: %v", err)
	}

	findings, err := idx.Lookup(ctx, "proj1", "a.go", "hash-b", 1)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if findings != nil {
		t.Errorf("expected cache miss on hash mismatch, got %+v", findings)
	}
}

func TestLookup_MissOnRuleSetVersionMismatch(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()
	ctx := context.Background()

	rec := model.FileRecord{ProjectID: "proj1", RelativePath: "a.go", ContentHash: "hash-a", RuleSetVersion: 1}
	if err := idx.StoreBatch(ctx, []model.FileRecord{rec}); err != nil {
		t.Fatalf("StoreBatch: %v", err)
	}

	findings, err := idx.Lookup(ctx, "proj1", "a.go", "hash-a", 2)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if findings != nil {
		t.Errorf("expected cache miss on rule-set-version mismatch, got %+v", findings)
	}
}

func TestLookup_MissOnUnknownFile(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	findings, err := idx.Lookup(context.Background(), "proj1", "never-seen.go", "x", 1)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if findings != nil {
		t.Errorf("expected nil for unknown file, got %+v", findings)
	}
}

func TestStoreBatch_ReplacesFindingsOnRestore(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()
	ctx := context.Background()

	first := model.FileRecord{
		ProjectID: "proj1", RelativePath: "a.go", ContentHash: "h1", RuleSetVersion: 1,
		Findings: []model.Finding{{RuleID: "r1", Line: 1, Column: 1}},
	}
	if err := idx.StoreBatch(ctx, []model.FileRecord{first}); err != nil {
		t.Fatalf("StoreBatch 1: %v", err)
	}

	second := model.FileRecord{
		ProjectID: "proj1", RelativePath: "a.go", ContentHash: "h2", RuleSetVersion: 1,
		Findings: []model.Finding{{RuleID: "r2", Line: 2, Column: 1}},
	}
	if err := idx.StoreBatch(ctx, []model.FileRecord{second}); err != nil {
		t.Fatalf("StoreBatch 2: %v", err)
	}

	findings, err := idx.Lookup(ctx, "proj1", "a.go", "h2", 1)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(findings) != 1 || findings[0].RuleID != "r2" {
		t.Errorf("Lookup() = %+v, want only r2 (r1 replaced)", findings)
	}
}

func TestPurge_RemovesProjectEntirely(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()
	ctx := context.Background()

	rec := model.FileRecord{ProjectID: "proj1", RelativePath: "a.go", ContentHash: "h1", RuleSetVersion: 1}
	if err := idx.StoreBatch(ctx, []model.FileRecord{rec}); err != nil {
		t.Fatalf("StoreBatch: %v", err)
	}
	if err := idx.Purge(ctx, "proj1"); err != nil {
		t.Fatalf("Purge: %v", err)
	}

	proj, err := idx.Project(ctx, "proj1")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if proj != nil {
		t.Errorf("expected project to be gone after Purge, got %+v", proj)
	}

	findings, err := idx.Lookup(ctx, "proj1", "a.go", "h1", 1)
	if err != nil {
		t.Fatalf("Lookup after purge: %v", err)
	}
	if findings != nil {
		t.Errorf("expected no findings after Purge, got %+v", findings)
	}
}

func TestInitProject_IsIdempotentAndPreservesRootPath(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()
	ctx := context.Background()

	if err := idx.InitProject(ctx, "proj1", "/repo/root"); err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	if err := idx.InitProject(ctx, "proj1", "/different/path"); err != nil {
		t.Fatalf("second InitProject: %v", err)
	}

	proj, err := idx.Project(ctx, "proj1")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if proj == nil {
		t.Fatal("expected project to exist")
	}
	if proj.RootPath != "/repo/root" {
		t.Errorf("RootPath = %q, want unchanged %q", proj.RootPath, "/repo/root")
	}
}

func TestProjects_ListsAllTrackedProjects(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()
	ctx := context.Background()

	for _, id := range []string{"alpha", "beta"} {
		if err := idx.InitProject(ctx, id, "/"+id); err != nil {
			t.Fatalf("InitProject(%s): %v", id, err)
		}
	}

	projects, err := idx.Projects(ctx)
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("Projects() = %d entries, want 2", len(projects))
	}
}

func TestClose_Idempotent(t *testing.T) {
	idx := setupTestIndex(t)
	if err := idx.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestOperations_FailAfterClose(t *testing.T) {
	idx := setupTestIndex(t)
	idx.Close()
	ctx := context.Background()

	if _, err := idx.Lookup(ctx, "p", "f", "h", 1); err == nil {
		t.Error("Lookup should fail after Close")
	}
	if err := idx.StoreBatch(ctx, []model.FileRecord{{ProjectID: "p"}}); err == nil {
		t.Error("StoreBatch should fail after Close")
	}
	if err := idx.Purge(ctx, "p"); err == nil {
		t.Error("Purge should fail after Close")
	}
}
