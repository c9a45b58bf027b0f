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

// Package main implements the nyx CLI: a cross-language static
// vulnerability scanner over pattern matching and taint dataflow analysis.
//
// Usage:
//
//	nyx scan [PATH] [--format F] [--no-index] [--high-only] [--watch]
//	nyx index {build [PATH] [--force] | status [PATH]}
//	nyx list [-v]
//	nyx clean {PROJECT | --all}
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kraklabs/nyx/internal/ui"
)

// GlobalFlags are parsed before the subcommand's own flag set, matching the
// teacher's two-tier main.go / index.go dispatch pattern.
type GlobalFlags struct {
	ConfigDir string
	NoColor   bool
	JSON      bool
	Debug     bool
}

func main() {
	var globals GlobalFlags
	flag.StringVar(&globals.ConfigDir, "config", "", "Path to the nyx config directory (default: platform config dir)")
	flag.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	flag.BoolVar(&globals.JSON, "json", false, "Prefer JSON output where applicable")
	flag.BoolVar(&globals.Debug, "debug", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `nyx - cross-language static vulnerability scanner

Usage:
  nyx <command> [options]

Commands:
  scan          Scan a directory tree for vulnerabilities
  index         Manage the incremental index (build | status)
  list          List known projects
  clean         Purge a project's (or all projects') indexed data

Global Options:
  --config      Path to the nyx config directory
  --no-color    Disable colored output
  --json        Prefer JSON output where applicable
  --debug       Enable debug logging

Examples:
  nyx scan .                         Scan the current directory
  nyx scan . --format json           Emit findings as a JSON array
  nyx scan . --watch                 Scan, then re-scan on file changes
  nyx index build .                  Build/refresh the incremental index
  nyx index status .                 Show index status for a project
  nyx list -v                        List projects with finding counts
  nyx clean my-project --yes         Purge one project's indexed data

`)
	}
	flag.Parse()

	ui.InitColors(globals.NoColor)

	logLevel := slog.LevelInfo
	if globals.Debug {
		logLevel = slog.LevelDebug
	}
	handler := newLogHandler(os.Stderr, logLevel, globals.JSON)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "scan":
		runScan(cmdArgs, globals, logger)
	case "index":
		runIndexCommand(cmdArgs, globals, logger)
	case "list":
		runList(cmdArgs, globals, logger)
	case "clean":
		runClean(cmdArgs, globals, logger)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(2)
	}
}

// newLogHandler builds the text-to-stderr or JSON slog handler, matching
// SPEC_FULL.md's logging section: text by default, JSON when --json or
// NYX_LOG_FORMAT=json is set.
func newLogHandler(w *os.File, level slog.Level, jsonFlag bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if jsonFlag || os.Getenv("NYX_LOG_FORMAT") == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
