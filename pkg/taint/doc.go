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

// Package taint runs a monotone forward dataflow analysis over a CFG built
// by pkg/cfg, reporting flows from a classified source to a classified sink
// that no sanitizer cleared along the way. The per-program-point state is a
// map of variable name to a label bitset; join at a merge point is
// element-wise set union, which makes the lattice finite and the worklist
// iteration provably terminating.
package taint
