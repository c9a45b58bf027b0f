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

// Package storage is the incremental index: a content-addressed cache of
// per-file findings keyed on (project_id, path, content hash, rule-set
// version), backed by an embedded SQLite database.
//
// # Quick start
//
//	idx, err := storage.Open(storage.Config{DataDir: "/path/to/data"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
//
//	hit, err := idx.Lookup(ctx, "myproject", "pkg/handler.go", hash, ruleSetVersion)
//	if err == nil && hit != nil {
//	    // cached findings, skip re-analysis
//	}
//
//	err = idx.StoreBatch(ctx, []model.FileRecord{{
//	    ProjectID: "myproject", RelativePath: "pkg/handler.go",
//	    ContentHash: hash, RuleSetVersion: ruleSetVersion, Findings: findings,
//	}})
//
// # Keying
//
// A cache hit requires both the content hash and the rule-set version to
// match; a changed file or a changed rule set invalidates the cached
// findings even if the path is unchanged.
//
// # Atomicity
//
// Batched writes run inside one transaction; a crash mid-batch leaves the
// previous committed state visible, never a half-written batch. On Open, any
// project's leftover in-progress write marker is cleared; no rescan is
// forced, because every Lookup revalidates content hash and rule-set version.
//
// # Thread safety
//
// Index is safe for concurrent use. In this module's pipeline exactly one
// goroutine (the index writer) ever calls StoreBatch/Purge; Lookup is called
// concurrently by every analyzer worker.
package storage
