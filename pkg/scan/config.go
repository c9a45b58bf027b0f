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

package scan

import (
	"fmt"
	"runtime"

	"github.com/kraklabs/nyx/internal/contract"
	"github.com/kraklabs/nyx/pkg/model"
)

// RuleSetVersion is the monotonically increasing identifier for the active
// collection of compiled patterns and taint catalogs. Bump it whenever a
// change to pkg/pattern.DefaultCatalog or a pkg/taint catalog could change
// a file's findings for the same bytes - the incremental index uses it to
// invalidate stale cache entries lazily, per file, on next scan.
const RuleSetVersion = 1

// Mode selects which analysis stages the pipeline runs.
type Mode string

const (
	ModeFull Mode = "full"
	ModeAST  Mode = "ast"
	ModeCFG  Mode = "cfg"
)

// Valid reports whether m is one of the three recognized modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeFull, ModeAST, ModeCFG:
		return true
	default:
		return false
	}
}

// runPattern reports whether this mode includes the pattern engine stage.
func (m Mode) runPattern() bool {
	return m == ModeFull || m == ModeAST
}

// runTaint reports whether this mode includes the CFG+taint stage.
func (m Mode) runTaint() bool {
	return m == ModeFull || m == ModeCFG
}

// Config drives one pipeline run: where to look, what to skip, how to
// parallelize, and how to filter results. It corresponds directly to
// spec.md's [scanner]/[performance] config sections; internal/config
// decodes nyx.conf/nyx.local into one of these.
type Config struct {
	// RootPath is the directory the walker starts from.
	RootPath string

	// ProjectID identifies the project row in the index. Empty means the
	// caller (internal/bootstrap) will resolve it from RootPath.
	ProjectID string

	// Mode selects which analysis stages run. Empty defaults to ModeFull.
	Mode Mode

	// MinSeverity discards findings below this floor after collection.
	MinSeverity model.Severity

	// MaxResults truncates a file's findings after ordering and
	// deduplication; 0 means unlimited.
	MaxResults int

	// MaxFileSizeMB rejects files over this size; 0 uses
	// contract.DefaultMaxFileSizeBytes.
	MaxFileSizeMB int

	// ExcludedExtensions, ExcludedDirectories, ExcludedFiles are glob
	// patterns (doublestar syntax) checked against the path relative to
	// RootPath.
	ExcludedExtensions []string
	ExcludedDirectories []string
	ExcludedFiles       []string

	// ReadGlobalIgnore and ReadVCSIgnore enable reading the platform
	// global-ignore file and .gitignore files (respectively) into the
	// walker's exclusion set.
	ReadGlobalIgnore          bool
	ReadVCSIgnore             bool
	RequireGitToReadVCSIgnore bool

	// OneFileSystem refuses to descend into a directory on a different
	// device than RootPath. FollowSymlinks permits traversing symlinked
	// directories/files instead of skipping them. ScanHiddenFiles disables
	// the default hidden-entry (dotfile) exclusion.
	OneFileSystem   bool
	FollowSymlinks  bool
	ScanHiddenFiles bool

	// WorkerThreads sizes the analyzer pool; 0 detects the core count.
	WorkerThreads int

	// BatchSize is the index writer's per-transaction commit granularity;
	// 0 uses contract.DefaultBatchSize.
	BatchSize int

	// ChannelMultiplier sizes the bounded work/finding queues as
	// WorkerThreads * ChannelMultiplier; 0 defaults to 4.
	ChannelMultiplier int

	// NoIndex, when true, skips the incremental index entirely: every file
	// is re-analyzed and nothing is cached or persisted.
	NoIndex bool
}

// resolved is the config with every zero-value default filled in, computed
// once per Run so every component reads consistent effective values.
type resolved struct {
	Config
	maxFileSizeBytes int64
	batchSize        int
	workerThreads    int
	channelCapacity  int
}

func (c Config) resolve() (resolved, error) {
	if c.RootPath == "" {
		return resolved{}, fmt.Errorf("scan: RootPath is required")
	}
	mode := c.Mode
	if mode == "" {
		mode = ModeFull
	}
	if !mode.Valid() {
		return resolved{}, fmt.Errorf("scan: invalid mode %q", c.Mode)
	}
	c.Mode = mode

	workers := c.WorkerThreads
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	multiplier := c.ChannelMultiplier
	if multiplier <= 0 {
		multiplier = 4
	}

	return resolved{
		Config:           c,
		maxFileSizeBytes: contract.MaxFileSizeBytes(c.MaxFileSizeMB),
		batchSize:        contract.EffectiveBatchSize(c.BatchSize),
		workerThreads:    workers,
		channelCapacity:  workers * multiplier,
	}, nil
}
