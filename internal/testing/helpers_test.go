// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/nyx/pkg/model"
)

func TestSetupTestIndex(t *testing.T) {
	idx := SetupTestIndex(t)
	require.NotNil(t, idx)

	projects, err := idx.Projects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects, "should start with no projects")
}

func TestInsertTestFileRecord(t *testing.T) {
	idx := SetupTestIndex(t)

	finding := NewTestFinding("go-weak-hash-md5", model.SeverityMedium, 10, 4)
	InsertTestFileRecord(t, idx, "proj1", "auth.go", "hash-abc", 1, []model.Finding{finding})

	found, err := idx.Lookup(context.Background(), "proj1", "auth.go", "hash-abc", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "go-weak-hash-md5", found[0].RuleID)
}

func TestInsertTestFileRecord_IsolatedPerIndex(t *testing.T) {
	idx1 := SetupTestIndex(t)
	InsertTestFileRecord(t, idx1, "proj1", "a.go", "hash1", 1, nil)

	idx2 := SetupTestIndex(t)
	projects, err := idx2.Projects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects, "second index should be isolated from the first")

	projects1, err := idx1.Projects(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects1, 1)
}
