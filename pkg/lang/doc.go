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

// Package lang is the single coupling point between Nyx's grammar layer
// (github.com/smacker/go-tree-sitter and its per-language grammars) and
// the rest of the analysis core. Each Language owns a grammar handle, a
// file-extension set, and a node-kind dispatch table mapping grammar
// node-type identifiers to the internal NodeKind enumeration that the
// pattern engine and the CFG builder both classify against. Adding a
// language means: register a grammar handle, populate its node-kind
// table, and - optionally - give it a CFG backend by registering a
// source/sink/sanitizer catalog in pkg/taint.
package lang
