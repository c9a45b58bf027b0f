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

// Package pattern runs compiled tree-sitter queries against a syntax tree
// and turns matches into Findings. Patterns are grouped into per-language
// bundles, compiled once at startup, and shared read-only across analyzer
// workers - the node-kind table in pkg/lang is the only thing pattern
// matching and CFG construction both have to agree on; the queries
// themselves operate directly on grammar node-type strings.
package pattern
