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

// Package cfg builds an intra-procedural control-flow graph from a single
// function/method/closure's syntax tree. The graph is represented as an
// arena of basic blocks indexed by small integers, with edges as
// (from, to, kind) records - back-edges make CFGs cyclic, and representing
// them as index pairs rather than owning pointers sidesteps reference-cycle
// ownership entirely. Construction is O(N) in tree nodes; no fixed-point
// iteration happens here, only in the taint dataflow that later consumes
// the graph.
package cfg
