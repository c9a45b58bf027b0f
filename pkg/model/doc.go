// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package model holds the data types shared across Nyx's pipeline stages -
// Severity, Finding, FileRecord, and ProjectRecord - so that pkg/pattern,
// pkg/cfg, pkg/taint, pkg/storage, and pkg/scan can all refer to the same
// vocabulary without importing one another.
package model
