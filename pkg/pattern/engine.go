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
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/nyx/pkg/lang"
	"github.com/kraklabs/nyx/pkg/model"
)

// Bundle is an immutable, per-language set of compiled patterns. Bundles
// are built once at startup and shared read-only across analyzer workers;
// running patterns against a tree allocates no shared state.
type Bundle struct {
	language lang.Language
	patterns []*CompiledPattern
}

// NewBundle compiles every pattern in patterns for the given language,
// skipping any whose Language does not match.
func NewBundle(language lang.Language, patterns []Pattern) (*Bundle, error) {
	b := &Bundle{language: language}
	for _, p := range patterns {
		if p.Language != language {
			continue
		}
		cp, err := p.Compile()
		if err != nil {
			return nil, err
		}
		b.patterns = append(b.patterns, cp)
	}
	return b, nil
}

// Len reports how many compiled patterns this bundle holds.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.patterns)
}

// Engine dispatches pattern execution per language. It is immutable after
// construction and safe for concurrent use by multiple analyzer workers.
type Engine struct {
	bundles map[lang.Language]*Bundle
}

// NewEngine compiles one Bundle per language present in the catalog.
func NewEngine(catalog []Pattern) (*Engine, error) {
	byLang := make(map[lang.Language][]Pattern)
	for _, p := range catalog {
		byLang[p.Language] = append(byLang[p.Language], p)
	}

	e := &Engine{bundles: make(map[lang.Language]*Bundle, len(byLang))}
	for l, patterns := range byLang {
		b, err := NewBundle(l, patterns)
		if err != nil {
			return nil, err
		}
		e.bundles[l] = b
	}
	return e, nil
}

// Run evaluates every compiled pattern for language against tree once each,
// converting matches into Findings. It is pure: the only effect is the
// returned slice. filePath is stamped onto every Finding for the caller's
// convenience; findings are not deduplicated, severity-filtered, or
// truncated here - see Filter.
func (e *Engine) Run(language lang.Language, tree *sitter.Tree, source []byte, filePath string) ([]model.Finding, error) {
	bundle, ok := e.bundles[language]
	if !ok || bundle.Len() == 0 {
		return nil, nil
	}

	var findings []model.Finding
	for _, cp := range bundle.patterns {
		cursor := sitter.NewQueryCursor()
		cursor.Exec(cp.query, tree.RootNode())

		for {
			m, ok := cursor.NextMatch()
			if !ok {
				break
			}
			m = cursor.FilterPredicates(m, source)
			if len(m.Captures) == 0 {
				continue
			}

			target := m.Captures[0].Node
			if cp.Pattern.Capture != "" {
				for _, c := range m.Captures {
					if cp.query.CaptureNameForId(c.Index) == cp.Pattern.Capture {
						target = c.Node
						break
					}
				}
			}

			point := target.StartPoint()
			findings = append(findings, model.Finding{
				Language: language.String(),
				RuleID:   cp.Pattern.ID,
				Severity: cp.Pattern.Severity,
				FilePath: filePath,
				Line:     int(point.Row) + 1,
				Column:   int(point.Column) + 1,
				Snippet:  target.Content(source),
				Message:  cp.Pattern.Description,
			})
		}
		cursor.Close()
	}

	return findings, nil
}

// Filter discards findings below minSeverity, then - after per-file
// deduplication - truncates to at most maxResults (0 meaning unlimited).
// This order is the resolution of an open question left unpinned by the
// source: max_results applies after deduplication, not before.
func Filter(findings []model.Finding, minSeverity model.Severity, maxResults int) []model.Finding {
	kept := findings[:0:0]
	for _, f := range findings {
		if f.Severity >= minSeverity {
			kept = append(kept, f)
		}
	}
	kept = model.DedupeFindings(kept)
	if maxResults > 0 && len(kept) > maxResults {
		kept = kept[:maxResults]
	}
	return kept
}
