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

// Package report renders a scan.Result in one of four formats: console
// (colorized, grouped by file), json (the bare top-level array spec.md §6
// specifies, or a wrapper object with a sibling "diagnostics" array when
// diagnostics are requested), csv, and sarif.
package report
