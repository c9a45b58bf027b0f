// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"testing"
)

func TestRawQuery_ReturnsHeadersAndRows(t *testing.T) {
	idx := setupTestIndex(t)
	defer idx.Close()

	if err := idx.InitProject(context.Background(), "proj1", "/repo"); err != nil {
		t.Fatalf("InitProject: %v", err)
	}

	result, err := idx.RawQuery(context.Background(), `SELECT project_id, root_path FROM projects WHERE project_id = ?`, "proj1")
	if err != nil {
		t.Fatalf("RawQuery: %v", err)
	}
	if len(result.Headers) != 2 {
		t.Fatalf("Headers = %v, want 2 columns", result.Headers)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("Rows = %d, want 1", len(result.Rows))
	}
}

func TestRawQuery_AfterClose(t *testing.T) {
	idx := setupTestIndex(t)
	idx.Close()

	_, err := idx.RawQuery(context.Background(), `SELECT 1`)
	if err == nil {
		t.Error("expected error querying a closed index")
	}
}
