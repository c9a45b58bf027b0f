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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kraklabs/nyx/internal/errors"
)

func TestLoadWithNoFilesReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Scanner.Mode != def.Scanner.Mode || cfg.Scanner.MinSeverity != def.Scanner.MinSeverity {
		t.Errorf("expected defaults, got %+v", cfg.Scanner)
	}
	if cfg.Performance.BatchSize != def.Performance.BatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.Performance.BatchSize, def.Performance.BatchSize)
	}
}

func TestLoadMergesConfAndLocal(t *testing.T) {
	dir := t.TempDir()
	conf := "[scanner]\nmode = \"ast\"\nmin_severity = \"High\"\n"
	local := "[scanner]\nmin_severity = \"Critical\"\n"
	if err := os.WriteFile(filepath.Join(dir, "nyx.conf"), []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nyx.local"), []byte(local), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scanner.Mode != "ast" {
		t.Errorf("Mode = %q, want %q (from nyx.conf, unoverridden)", cfg.Scanner.Mode, "ast")
	}
	if cfg.Scanner.MinSeverity != "Critical" {
		t.Errorf("MinSeverity = %q, want %q (overridden by nyx.local)", cfg.Scanner.MinSeverity, "Critical")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	conf := "[scanner]\nmode = \"full\"\nbogus_key = true\n"
	if err := os.WriteFile(filepath.Join(dir, "nyx.conf"), []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected an error for an unknown config key")
	}
	userErr, ok := err.(*errors.UserError)
	if !ok {
		t.Fatalf("expected *errors.UserError, got %T", err)
	}
	if userErr.ExitCode != errors.ExitUser {
		t.Errorf("ExitCode = %d, want %d", userErr.ExitCode, errors.ExitUser)
	}
}

func TestLoadToleratesMissingLocalOnly(t *testing.T) {
	dir := t.TempDir()
	conf := "[output]\ndefault_format = \"json\"\n"
	if err := os.WriteFile(filepath.Join(dir, "nyx.conf"), []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.DefaultFormat != "json" {
		t.Errorf("DefaultFormat = %q, want %q", cfg.Output.DefaultFormat, "json")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Scanner.MaxFileSizeMB = 42
	path := filepath.Join(dir, "nyx.conf")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Scanner.MaxFileSizeMB != 42 {
		t.Errorf("MaxFileSizeMB = %d, want 42", loaded.Scanner.MaxFileSizeMB)
	}
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "nyx")
	path := filepath.Join(dir, "nyx.conf")
	if err := Save(Default(), path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}
