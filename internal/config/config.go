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

// Package config loads nyx.conf and nyx.local, the two layered TOML files
// that hold every recognized scanner/database/output/performance option.
// nyx.conf carries defaults (written by "nyx index build" on first run if
// absent); nyx.local holds optional user overrides and is merged on top.
// Both live under the platform config directory (os.UserConfigDir()/nyx/).
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/kraklabs/nyx/internal/errors"
)

// Scanner holds [scanner] section options.
type Scanner struct {
	Mode                      string   `toml:"mode"`
	MinSeverity               string   `toml:"min_severity"`
	MaxFileSizeMB             int      `toml:"max_file_size_mb"`
	ExcludedExtensions        []string `toml:"excluded_extensions"`
	ExcludedDirectories       []string `toml:"excluded_directories"`
	ExcludedFiles             []string `toml:"excluded_files"`
	ReadGlobalIgnore          bool     `toml:"read_global_ignore"`
	ReadVCSIgnore             bool     `toml:"read_vcsignore"`
	RequireGitToReadVCSIgnore bool     `toml:"require_git_to_read_vcsignore"`
	OneFileSystem             bool     `toml:"one_file_system"`
	FollowSymlinks            bool     `toml:"follow_symlinks"`
	ScanHiddenFiles           bool     `toml:"scan_hidden_files"`
}

// Database holds [database] section options.
type Database struct {
	Path string `toml:"path"`
}

// Output holds [output] section options.
type Output struct {
	DefaultFormat string `toml:"default_format"`
	MaxResults    int    `toml:"max_results"`
}

// Performance holds [performance] section options.
type Performance struct {
	WorkerThreads        int  `toml:"worker_threads"`
	BatchSize            int  `toml:"batch_size"`
	ChannelMultiplier    int  `toml:"channel_multiplier"`
	RayonThreadStackSize int  `toml:"rayon_thread_stack_size"`
	Prune                bool `toml:"prune"`
}

// Reserved holds config keys spec.md §9 marks UNIMPLEMENTED: accepted and
// type-checked by the TOML decoder but never range-checked and never read
// by any component.
type Reserved struct {
	AutoCleanupDays int  `toml:"auto_cleanup_days"`
	MaxDBSizeMB     int  `toml:"max_db_size_mb"`
	VacuumOnStartup bool `toml:"vacuum_on_startup"`
	Quiet           bool `toml:"quiet"`
	MaxDepth        int  `toml:"max_depth"`
	MinDepth        int  `toml:"min_depth"`
	ScanTimeoutSecs int  `toml:"scan_timeout_secs"`
	MemoryLimitMB   int  `toml:"memory_limit_mb"`
}

// Config is the fully merged, decoded contents of nyx.conf + nyx.local.
type Config struct {
	Scanner     Scanner     `toml:"scanner"`
	Database    Database    `toml:"database"`
	Output      Output      `toml:"output"`
	Performance Performance `toml:"performance"`
	Reserved    Reserved    `toml:"reserved"`
}

// Default returns the built-in defaults, matching spec.md §6/§9 and
// internal/contract's fallback constants.
func Default() *Config {
	return &Config{
		Scanner: Scanner{
			Mode:                      "full",
			MinSeverity:               "Low",
			MaxFileSizeMB:             10,
			ExcludedExtensions:        []string{},
			ExcludedDirectories:       []string{"node_modules", "vendor", ".git", "dist", "build"},
			ExcludedFiles:             []string{},
			ReadGlobalIgnore:          true,
			ReadVCSIgnore:             true,
			RequireGitToReadVCSIgnore: true,
			OneFileSystem:             false,
			FollowSymlinks:            false,
			ScanHiddenFiles:           false,
		},
		Database: Database{Path: ""},
		Output:   Output{DefaultFormat: "console", MaxResults: 0},
		Performance: Performance{
			WorkerThreads:     0,
			BatchSize:         100,
			ChannelMultiplier: 4,
			Prune:             true,
		},
	}
}

// Dir returns the platform config directory nyx.conf/nyx.local live under.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "nyx"), nil
}

// Load reads nyx.conf (defaults) then merges nyx.local (overrides) from
// dir. A missing nyx.conf falls back to Default(); a missing nyx.local is
// not an error. Unknown keys in either file are a User error, exit 2.
func Load(dir string) (*Config, error) {
	if dir == "" {
		d, err := Dir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	cfg := Default()

	confPath := filepath.Join(dir, "nyx.conf")
	if err := decodeStrict(confPath, cfg); err != nil {
		return nil, err
	}

	localPath := filepath.Join(dir, "nyx.local")
	if err := decodeStrict(localPath, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decodeStrict merges path's TOML contents into cfg, in place. A missing
// file is silently skipped; any other read error or unknown key is
// surfaced as a *errors.UserError with exit code ExitUser.
func decodeStrict(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewUserError(
			fmt.Sprintf("cannot read %s", path),
			err.Error(),
			"Check the file's permissions or remove it to use defaults.",
		)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return errors.NewUserError(
			fmt.Sprintf("invalid configuration in %s", path),
			err.Error(),
			"Check for unknown keys or type mismatches against the documented options.",
		)
	}
	return nil
}

// Save writes cfg to path as nyx.conf, creating the parent directory if
// needed. Used by "nyx index build" to materialize defaults on first run.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
