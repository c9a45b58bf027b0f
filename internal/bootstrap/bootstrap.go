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

// Package bootstrap opens or initializes the on-disk index and a project's
// lifecycle row within it, in one call - the common setup every nyx command
// that touches the index needs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/kraklabs/nyx/pkg/model"
	"github.com/kraklabs/nyx/pkg/storage"
)

// ProjectConfig identifies the project a command operates on and where its
// index lives.
type ProjectConfig struct {
	// ProjectID is the logical project identifier. Defaults to the
	// absolute root path when empty.
	ProjectID string

	// RootPath is the directory being scanned/indexed.
	RootPath string

	// DataDir is the directory holding the index database. Empty uses
	// storage.Config's platform default.
	DataDir string
}

// resolve fills in ProjectID from RootPath when the caller left it blank,
// and resolves RootPath to an absolute path.
func (c *ProjectConfig) resolve() error {
	abs, err := filepath.Abs(c.RootPath)
	if err != nil {
		return fmt.Errorf("resolve root path: %w", err)
	}
	c.RootPath = abs
	if c.ProjectID == "" {
		c.ProjectID = abs
	}
	return nil
}

// OpenIndex opens the index database and ensures config.ProjectID's
// lifecycle row exists, creating it on first use. This function is
// idempotent: calling it multiple times against the same DataDir is safe,
// and an existing project's root path is preserved.
func OpenIndex(ctx context.Context, config ProjectConfig, logger *slog.Logger) (*storage.SQLiteIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.resolve(); err != nil {
		return nil, err
	}

	idx, err := storage.Open(storage.Config{DataDir: config.DataDir})
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	if err := idx.InitProject(ctx, config.ProjectID, config.RootPath); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("init project: %w", err)
	}

	logger.Debug("bootstrap.project.ready", "project_id", config.ProjectID, "root_path", config.RootPath)
	return idx, nil
}

// ListProjects returns every project's lifecycle record from the index at
// the given DataDir (platform default when empty).
func ListProjects(ctx context.Context, dataDir string) ([]model.ProjectRecord, error) {
	idx, err := storage.Open(storage.Config{DataDir: dataDir})
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	return idx.Projects(ctx)
}
