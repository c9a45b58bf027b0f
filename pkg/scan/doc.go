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

// Package scan is the scan pipeline: a parallel Walker feeds a bounded work
// queue, a pool of stateful Analyzer workers turn eligible files into
// Findings (consulting the incremental index before reparsing), and a single
// writer goroutine batches the results into storage.
//
// The pipeline's only ordering guarantee is within a file: findings are
// sorted by (line, column, rule_id) before they reach the index writer.
// Across files, no order is promised.
package scan
