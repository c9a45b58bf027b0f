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
	"path/filepath"
	"testing"

	"github.com/kraklabs/nyx/internal/config"
)

func TestResolvePathDefaultsToCurrentDirectory(t *testing.T) {
	abs, err := resolvePath(nil)
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if !filepath.IsAbs(abs) {
		t.Errorf("resolvePath(nil) = %q, want an absolute path", abs)
	}
}

func TestResolvePathResolvesRelativeArgument(t *testing.T) {
	abs, err := resolvePath([]string{"."})
	if err != nil {
		t.Fatalf("resolvePath: %v", err)
	}
	if !filepath.IsAbs(abs) {
		t.Errorf("resolvePath([\".\"]) = %q, want an absolute path", abs)
	}
}

func TestScanConfigFromFileAppliesScannerSection(t *testing.T) {
	fileCfg := config.Default()
	fileCfg.Scanner.Mode = "ast"
	fileCfg.Scanner.MinSeverity = "High"
	fileCfg.Performance.WorkerThreads = 2

	cfg, err := scanConfigFromFile(fileCfg)
	if err != nil {
		t.Fatalf("scanConfigFromFile: %v", err)
	}
	if string(cfg.Mode) != "ast" {
		t.Errorf("Mode = %q, want ast", cfg.Mode)
	}
	if cfg.WorkerThreads != 2 {
		t.Errorf("WorkerThreads = %d, want 2", cfg.WorkerThreads)
	}
}

func TestScanConfigFromFileRejectsInvalidMode(t *testing.T) {
	fileCfg := config.Default()
	fileCfg.Scanner.Mode = "bogus"
	if _, err := scanConfigFromFile(fileCfg); err == nil {
		t.Fatal("expected an error for an invalid scanner.mode")
	}
}

func TestScanConfigFromFileRejectsInvalidSeverity(t *testing.T) {
	fileCfg := config.Default()
	fileCfg.Scanner.MinSeverity = "Severe"
	if _, err := scanConfigFromFile(fileCfg); err == nil {
		t.Fatal("expected an error for an invalid scanner.min_severity")
	}
}
