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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/nyx/internal/bootstrap"
	"github.com/kraklabs/nyx/internal/config"
	"github.com/kraklabs/nyx/internal/errors"
	"github.com/kraklabs/nyx/internal/output"
	"github.com/kraklabs/nyx/internal/ui"
	"github.com/kraklabs/nyx/pkg/scan"
	"github.com/kraklabs/nyx/pkg/storage"
)

// runIndexCommand dispatches "nyx index build|status".
func runIndexCommand(args []string, globals GlobalFlags, logger *slog.Logger) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: nyx index {build|status} [PATH] [options]")
		os.Exit(errors.ExitUser)
	}
	switch args[0] {
	case "build":
		runIndexBuild(args[1:], globals, logger)
	case "status":
		runIndexStatus(args[1:], globals, logger)
	default:
		fmt.Fprintf(os.Stderr, "Unknown index subcommand: %s\n", args[0])
		os.Exit(errors.ExitUser)
	}
}

// runIndexBuild builds or refreshes the incremental index for PATH,
// writing nyx.conf with defaults on first run if it's absent.
func runIndexBuild(args []string, globals GlobalFlags, logger *slog.Logger) {
	fs := flag.NewFlagSet("index build", flag.ExitOnError)
	force := fs.Bool("force", false, "Purge the project's existing index entries before rebuilding")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nyx index build [PATH] [options]

Builds or refreshes the incremental index for PATH (default: current
directory). Existing cache entries are reused unless --force is passed.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUser)
	}

	rootPath, err := resolvePath(fs.Args())
	if err != nil {
		errors.FatalError(errors.NewUserError("invalid path", err.Error(), "Pass a valid directory."), globals.JSON)
	}

	fileCfg := loadConfig(globals)
	writeDefaultConfigIfAbsent(globals, fileCfg)

	cfg, err := scanConfigFromFile(fileCfg)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	cfg.RootPath = rootPath
	cfg.ProjectID = rootPath

	ctx := context.Background()
	idx, err := bootstrap.OpenIndex(ctx, bootstrap.ProjectConfig{RootPath: rootPath, DataDir: fileCfg.Database.Path}, logger)
	if err != nil {
		errors.FatalError(errors.NewIndexError("cannot open index", err.Error(), "Run 'nyx clean --all' if the index is corrupted.", err), globals.JSON)
	}
	defer idx.Close()

	if *force {
		if err := idx.Purge(ctx, cfg.ProjectID); err != nil {
			errors.FatalError(errors.NewIndexError("cannot purge existing index entries", err.Error(), "", err), globals.JSON)
		}
		if err := idx.InitProject(ctx, cfg.ProjectID, rootPath); err != nil {
			errors.FatalError(errors.NewIndexError("cannot reinitialize project", err.Error(), "", err), globals.JSON)
		}
	}

	pipeline, err := scan.New(cfg, logger, idx)
	if err != nil {
		errors.FatalError(errors.NewFatalError("cannot build scan pipeline", err.Error(), "", err), globals.JSON)
	}

	progress := NewProgressConfig(globals)
	bar := NewSpinner(progress, "indexing")
	result, err := pipeline.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		errors.FatalError(errors.NewFatalError("index build failed", err.Error(), "", err), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	ui.Success(fmt.Sprintf("indexed %s", rootPath))
	fmt.Printf("  Files analyzed: %s\n", ui.CountText(result.FilesAnalyzed))
	fmt.Printf("  Files cached:   %s\n", ui.CountText(result.FilesCached))
	fmt.Printf("  Findings:       %s\n", ui.CountText(len(result.Findings)))
	fmt.Printf("  Diagnostics:    %s\n", ui.CountText(len(result.Diagnostics)))
	fmt.Printf("  Duration:       %s\n", result.Duration.Round(time.Millisecond))
}

// writeDefaultConfigIfAbsent materializes nyx.conf with built-in defaults
// on first run, matching the teacher's init.go first-run convention.
func writeDefaultConfigIfAbsent(globals GlobalFlags, cfg *config.Config) {
	dir := globals.ConfigDir
	if dir == "" {
		d, err := config.Dir()
		if err != nil {
			return
		}
		dir = d
	}
	confPath := filepath.Join(dir, "nyx.conf")
	if _, err := os.Stat(confPath); err == nil {
		return
	}
	if err := config.Save(cfg, confPath); err != nil {
		ui.Warning(fmt.Sprintf("could not write default %s: %v", confPath, err))
	}
}

// runIndexStatus prints a project's ProjectRecord plus whether the on-disk
// schema's rule_set_version matches the binary's compiled-in version.
func runIndexStatus(args []string, globals GlobalFlags, logger *slog.Logger) {
	fs := flag.NewFlagSet("index status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nyx index status [PATH]\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUser)
	}

	rootPath, err := resolvePath(fs.Args())
	if err != nil {
		errors.FatalError(errors.NewUserError("invalid path", err.Error(), "Pass a valid directory."), globals.JSON)
	}

	fileCfg := loadConfig(globals)
	ctx := context.Background()
	idx, err := bootstrap.OpenIndex(ctx, bootstrap.ProjectConfig{RootPath: rootPath, DataDir: fileCfg.Database.Path}, logger)
	if err != nil {
		errors.FatalError(errors.NewIndexError("cannot open index", err.Error(), "", err), globals.JSON)
	}
	defer idx.Close()

	rec, err := idx.Project(ctx, rootPath)
	if err != nil {
		errors.FatalError(errors.NewIndexError("cannot read project status", err.Error(), "", err), globals.JSON)
	}
	if rec == nil {
		ui.Warning(fmt.Sprintf("project %s has not been indexed yet; run 'nyx index build'", rootPath))
		os.Exit(errors.ExitClean)
	}

	if globals.JSON {
		_ = output.JSON(rec)
		return
	}

	ui.Header("Index Status")
	fmt.Printf("%s %s\n", ui.Label("Project:"), rec.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Root path:"), rec.RootPath)
	fmt.Printf("%s %d\n", ui.Label("Files indexed:"), rec.FileCount)
	fmt.Printf("%s %d\n", ui.Label("Findings stored:"), rec.FindingCount)
	if rec.LastScanAt > 0 {
		fmt.Printf("%s %s\n", ui.Label("Last scan:"), time.Unix(rec.LastScanAt, 0).Format(time.RFC3339))
	} else {
		fmt.Printf("%s never\n", ui.Label("Last scan:"))
	}

	stale := staleFileCount(ctx, idx, rec.ProjectID)
	if stale == 0 {
		fmt.Printf("%s %d, all files current\n", ui.Label("Rule set version:"), scan.RuleSetVersion)
	} else {
		ui.Warningf("%d file(s) indexed under an older rule_set_version; they'll be re-analyzed lazily on next scan", stale)
	}
}

// staleFileCount counts files whose stored rule_set_version doesn't match
// the binary's compiled-in version - per spec.md §9, invalidation is lazy
// per file, not eager on upgrade, so this is informational only.
func staleFileCount(ctx context.Context, idx *storage.SQLiteIndex, projectID string) int {
	res, err := idx.RawQuery(ctx,
		`SELECT COUNT(*) FROM files WHERE project_id = ? AND rule_set_version != ?`,
		projectID, scan.RuleSetVersion)
	if err != nil || len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return 0
	}
	return toInt(res.Rows[0][0])
}
