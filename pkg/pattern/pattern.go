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

package pattern

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/nyx/pkg/lang"
	"github.com/kraklabs/nyx/pkg/model"
)

// Pattern is a named query against a syntax tree for one Language. Patterns
// are immutable once loaded: Compile() returns a new CompiledPattern rather
// than mutating the Pattern in place.
type Pattern struct {
	ID          string
	Language    lang.Language
	Title       string
	Severity    model.Severity
	Description string

	// Query is a tree-sitter query expression, e.g.
	// `(call_expression function: (identifier) @callee (#eq? @callee "eval")) @call`
	Query string

	// Capture names the capture whose span is reported as the finding's
	// location. An empty Capture reports the span of the match's first
	// capture.
	Capture string
}

// CompiledPattern is a Pattern bound to a compiled *sitter.Query, ready to
// be executed against any tree for its Language.
type CompiledPattern struct {
	Pattern Pattern
	query   *sitter.Query
}

// Compile parses p.Query against p.Language's grammar.
func (p Pattern) Compile() (*CompiledPattern, error) {
	grammar := p.Language.Grammar()
	if grammar == nil {
		return nil, fmt.Errorf("pattern %s: language %s has no grammar", p.ID, p.Language)
	}
	q, err := sitter.NewQuery([]byte(p.Query), grammar)
	if err != nil {
		return nil, fmt.Errorf("pattern %s: compile query: %w", p.ID, err)
	}
	return &CompiledPattern{Pattern: p, query: q}, nil
}
