// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"

	"github.com/kraklabs/nyx/pkg/model"
)

// Index lists the operations the incremental index offers. It is
// implemented by *SQLiteIndex; pkg/scan's pipeline and analyzer workers
// hold the concrete *SQLiteIndex rather than this interface.
type Index interface {
	// Lookup returns the cached findings for (projectID, relativePath) when
	// both contentHash and ruleSetVersion match the stored record. A nil
	// slice with a nil error means no cache hit.
	Lookup(ctx context.Context, projectID, relativePath, contentHash string, ruleSetVersion int) ([]model.Finding, error)

	// StoreBatch persists a batch of file records transactionally: either
	// every record in the batch becomes visible, or none do.
	StoreBatch(ctx context.Context, records []model.FileRecord) error

	// InitProject creates a project's lifecycle row on first index build.
	InitProject(ctx context.Context, projectID, rootPath string) error

	// Purge removes every file and finding associated with projectID.
	Purge(ctx context.Context, projectID string) error

	// Project returns the lifecycle record for projectID, or nil if the
	// project has never been indexed.
	Project(ctx context.Context, projectID string) (*model.ProjectRecord, error)

	// Projects lists every project the index currently tracks.
	Projects(ctx context.Context) ([]model.ProjectRecord, error)

	Close() error
}

// QueryResult is a minimal relational result used by diagnostic/debug
// commands (`nyx index status`) that run ad hoc read-only SQL against the
// index rather than going through the typed Index methods above.
type QueryResult struct {
	Headers []string
	Rows    [][]any
}

// RawQuery runs a read-only SQL query and returns its rows. It exists
// alongside the typed Index methods for operational introspection, never
// for anything on the hot scan path.
func (idx *SQLiteIndex) RawQuery(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, fmt.Errorf("index is closed")
	}

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &QueryResult{Headers: cols}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}
