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
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/nyx/pkg/lang"
)

// parserPool owns one tree-sitter parser per Language, created lazily on
// first use. Parsers are not reentrant, so a parserPool belongs to exactly
// one analyzer worker - never shared across goroutines.
type parserPool struct {
	byLanguage map[lang.Language]*sitter.Parser
}

func newParserPool() *parserPool {
	return &parserPool{byLanguage: make(map[lang.Language]*sitter.Parser)}
}

// parse lazily creates (and caches) the parser for language, then parses
// source with it.
func (p *parserPool) parse(ctx context.Context, language lang.Language, source []byte) (*sitter.Tree, error) {
	parser, ok := p.byLanguage[language]
	if !ok {
		parser = sitter.NewParser()
		parser.SetLanguage(language.Grammar())
		p.byLanguage[language] = parser
	}
	return parser.ParseCtx(ctx, nil, source)
}
