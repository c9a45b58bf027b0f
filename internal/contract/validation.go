// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package contract validates configuration values read from nyx.conf/nyx.local
// before they reach the Walker or the Index writer.
package contract

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultMaxFileSizeBytes is the fallback soft limit on a single file's
	// size, in bytes, used when max_file_size_mb is unset or non-positive.
	DefaultMaxFileSizeBytes = 10 << 20 // 10 MiB

	// DefaultBatchSize is the fallback index-writer commit granularity when
	// batch_size is unset or non-positive.
	DefaultBatchSize = 100
)

// MaxFileSizeBytes returns the effective soft limit in bytes for a scanned
// file. maxFileSizeMB is the configured max_file_size_mb value (0 means
// unset); the NYX_MAX_FILE_SIZE_BYTES environment variable overrides both
// for test harnesses that need byte-level precision.
func MaxFileSizeBytes(maxFileSizeMB int) int64 {
	if v := os.Getenv("NYX_MAX_FILE_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	if maxFileSizeMB > 0 {
		return int64(maxFileSizeMB) << 20
	}
	return DefaultMaxFileSizeBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateBatchSize checks that batch_size, if set, is a usable commit
// granularity for the index writer. Zero/unset falls back to
// DefaultBatchSize and is always valid; negative values are rejected.
func ValidateBatchSize(batchSize int) *ValidationResult {
	if batchSize < 0 {
		return &ValidationResult{OK: false, Message: fmt.Sprintf("batch_size must be >= 0, got %d", batchSize)}
	}
	return &ValidationResult{OK: true}
}

// EffectiveBatchSize resolves the configured batch_size to the value the
// index writer should actually use.
func EffectiveBatchSize(batchSize int) int {
	if batchSize <= 0 {
		return DefaultBatchSize
	}
	return batchSize
}
