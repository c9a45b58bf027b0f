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
	"net/http"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/nyx/internal/bootstrap"
	"github.com/kraklabs/nyx/internal/errors"
	"github.com/kraklabs/nyx/internal/ui"
	"github.com/kraklabs/nyx/pkg/model"
	"github.com/kraklabs/nyx/pkg/report"
	"github.com/kraklabs/nyx/pkg/scan"
	"github.com/kraklabs/nyx/pkg/storage"
)

// runScan executes 'nyx scan': walks PATH, runs the pattern/taint engines
// per the resolved mode, and renders the resulting findings. --watch keeps
// the process alive, re-scanning on filesystem changes.
func runScan(args []string, globals GlobalFlags, logger *slog.Logger) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	format := fs.String("format", "", "Output format: console, json, csv, sarif (default: console)")
	noIndex := fs.Bool("no-index", false, "Skip the incremental index; re-analyze every file")
	highOnly := fs.Bool("high-only", false, "Only report High and Critical findings")
	failOn := fs.String("fail-on", "", "Severity floor that triggers exit 1 (default: min_severity)")
	includeDiagnostics := fs.Bool("include-diagnostics", false, "Include a \"diagnostics\" array alongside --format json")
	watch := fs.Bool("watch", false, "Keep scanning: re-run after filesystem changes")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nyx scan [PATH] [options]

Scans PATH (default: current directory) for vulnerabilities.

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
	cfg, err := scanConfigFromFile(fileCfg)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	cfg.RootPath = rootPath
	cfg.NoIndex = *noIndex
	if *highOnly {
		cfg.MinSeverity = model.SeverityHigh
	}

	outputFormat := report.Format(fileCfg.Output.DefaultFormat)
	if *format != "" {
		outputFormat = report.Format(*format)
	}
	if outputFormat == "" {
		outputFormat = report.FormatConsole
	}
	if !outputFormat.Valid() {
		errors.FatalError(errors.NewUserError(
			fmt.Sprintf("invalid --format %q", outputFormat),
			"format must be one of console, json, csv, sarif",
			"Pass --format console|json|csv|sarif.",
		), globals.JSON)
	}

	failOnSeverity := cfg.MinSeverity
	if *failOn != "" {
		sev, err := model.ParseSeverity(*failOn)
		if err != nil {
			errors.FatalError(errors.NewUserError(
				fmt.Sprintf("invalid --fail-on %q", *failOn),
				err.Error(),
				"Use one of Low, Medium, High, Critical.",
			), globals.JSON)
		}
		failOnSeverity = sev
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("scan.signal", "signal", sig.String())
		cancel()
	}()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	cfg.ProjectID = rootPath

	var idx *storage.SQLiteIndex
	if !cfg.NoIndex {
		idx, err = bootstrap.OpenIndex(ctx, bootstrap.ProjectConfig{RootPath: rootPath, DataDir: fileCfg.Database.Path}, logger)
		if err != nil {
			errors.FatalError(errors.NewIndexError("cannot open index", err.Error(), "Run 'nyx clean --all' if the index is corrupted.", err), globals.JSON)
		}
		defer idx.Close()
	}

	pipeline, err := scan.New(cfg, logger, idx)
	if err != nil {
		errors.FatalError(errors.NewFatalError("cannot build scan pipeline", err.Error(), "", err), globals.JSON)
	}

	progress := NewProgressConfig(globals)
	renderOpts := report.Options{Format: outputFormat, IncludeDiagnostics: *includeDiagnostics, NoColor: globals.NoColor}

	runOnce := func() *scan.Result {
		bar := NewSpinner(progress, "scanning")
		result, err := pipeline.Run(ctx)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			errors.FatalError(errors.NewFatalError("scan failed", err.Error(), "", err), globals.JSON)
		}
		if err := report.Render(os.Stdout, result.Findings, result.Diagnostics, renderOpts); err != nil {
			errors.FatalError(errors.NewFatalError("cannot render findings", err.Error(), "", err), globals.JSON)
		}
		return result
	}

	if *watch {
		ui.Info(fmt.Sprintf("watching %s for changes (ctrl-c to stop)", rootPath))
		err := pipeline.Watch(ctx, func(result *scan.Result) {
			if err := report.Render(os.Stdout, result.Findings, result.Diagnostics, renderOpts); err != nil {
				logger.Warn("scan.watch.render_error", "err", err)
			}
		})
		if err != nil && ctx.Err() == nil {
			errors.FatalError(errors.NewFatalError("watch failed", err.Error(), "", err), globals.JSON)
		}
		return
	}

	result := runOnce()
	os.Exit(exitCodeFor(result.Findings, failOnSeverity))
}

// exitCodeFor implements spec.md §6's exit-code rule, refined by --fail-on:
// exit 1 when any finding meets or exceeds floor, 0 otherwise.
func exitCodeFor(findings []model.Finding, floor model.Severity) int {
	for _, f := range findings {
		if f.Severity >= floor {
			return errors.ExitFindings
		}
	}
	return errors.ExitClean
}
