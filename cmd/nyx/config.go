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

package main

import (
	"fmt"
	"path/filepath"

	"github.com/kraklabs/nyx/internal/config"
	"github.com/kraklabs/nyx/internal/errors"
	"github.com/kraklabs/nyx/pkg/model"
	"github.com/kraklabs/nyx/pkg/scan"
)

// loadConfig reads nyx.conf/nyx.local from globals.ConfigDir (platform
// default when empty), exiting with ExitUser on a malformed file.
func loadConfig(globals GlobalFlags) *config.Config {
	cfg, err := config.Load(globals.ConfigDir)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	return cfg
}

// scanConfigFromFile translates a loaded config.Config's [scanner]/
// [performance] sections into a scan.Config, leaving RootPath/ProjectID/
// NoIndex for the caller to fill in from CLI flags.
func scanConfigFromFile(cfg *config.Config) (scan.Config, error) {
	minSeverity, err := model.ParseSeverity(cfg.Scanner.MinSeverity)
	if err != nil {
		return scan.Config{}, errors.NewUserError(
			"invalid min_severity in configuration",
			err.Error(),
			"Use one of Low, Medium, High, Critical.",
		)
	}

	mode := scan.Mode(cfg.Scanner.Mode)
	if mode == "" {
		mode = scan.ModeFull
	}
	if !mode.Valid() {
		return scan.Config{}, errors.NewUserError(
			fmt.Sprintf("invalid scanner.mode %q", cfg.Scanner.Mode),
			"mode must be one of full, ast, cfg",
			"Edit nyx.conf or nyx.local and fix the [scanner] mode key.",
		)
	}

	return scan.Config{
		Mode:                      mode,
		MinSeverity:               minSeverity,
		MaxResults:                cfg.Output.MaxResults,
		MaxFileSizeMB:             cfg.Scanner.MaxFileSizeMB,
		ExcludedExtensions:        cfg.Scanner.ExcludedExtensions,
		ExcludedDirectories:       cfg.Scanner.ExcludedDirectories,
		ExcludedFiles:             cfg.Scanner.ExcludedFiles,
		ReadGlobalIgnore:          cfg.Scanner.ReadGlobalIgnore,
		ReadVCSIgnore:             cfg.Scanner.ReadVCSIgnore,
		RequireGitToReadVCSIgnore: cfg.Scanner.RequireGitToReadVCSIgnore,
		OneFileSystem:             cfg.Scanner.OneFileSystem,
		FollowSymlinks:            cfg.Scanner.FollowSymlinks,
		ScanHiddenFiles:           cfg.Scanner.ScanHiddenFiles,
		WorkerThreads:             cfg.Performance.WorkerThreads,
		BatchSize:                 cfg.Performance.BatchSize,
		ChannelMultiplier:         cfg.Performance.ChannelMultiplier,
	}, nil
}

// resolvePath turns a CLI positional path argument into an absolute path,
// defaulting to the current directory when empty.
func resolvePath(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}
