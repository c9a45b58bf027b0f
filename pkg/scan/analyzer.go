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
	"encoding/hex"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zeebo/blake3"

	"github.com/kraklabs/nyx/pkg/cfg"
	"github.com/kraklabs/nyx/pkg/lang"
	"github.com/kraklabs/nyx/pkg/model"
	"github.com/kraklabs/nyx/pkg/pattern"
	"github.com/kraklabs/nyx/pkg/storage"
	"github.com/kraklabs/nyx/pkg/taint"
)

// fileOutcome is one file's analysis result: either a diagnostic (the file
// was skipped) or a finding set ready for the index writer.
type fileOutcome struct {
	relPath     string
	contentHash string
	cacheHit    bool
	findings    []model.Finding
	diagnostic  *model.Diagnostic
}

// analyzer is one worker's per-thread analysis state: a lazily-initialized
// parser per language and the shared, immutable engine/catalogs handed down
// from the pipeline. Nothing here is safe for concurrent use by more than
// one goroutine - every analyzer belongs to exactly one worker.
type analyzer struct {
	cfg           resolved
	engine        *pattern.Engine
	taintCatalogs map[lang.Language]*taint.Catalog
	idx           *storage.SQLiteIndex
	parsers       *parserPool
	metrics       *metrics
}

func newAnalyzer(cfg resolved, engine *pattern.Engine, taintCatalogs map[lang.Language]*taint.Catalog, idx *storage.SQLiteIndex, m *metrics) *analyzer {
	return &analyzer{
		cfg:           cfg,
		engine:        engine,
		taintCatalogs: taintCatalogs,
		idx:           idx,
		parsers:       newParserPool(),
		metrics:       m,
	}
}

// analyze reads, hashes, and (unless cached) analyzes one walked file.
func (a *analyzer) analyze(ctx context.Context, wf walkFile) fileOutcome {
	content, err := os.ReadFile(wf.fullPath)
	if err != nil {
		a.metrics.filesSkipped.WithLabelValues("unreadable").Inc()
		return fileOutcome{relPath: wf.relPath, diagnostic: &model.Diagnostic{
			FilePath: wf.relPath, Reason: "unreadable", Detail: err.Error(),
		}}
	}

	hash := hashContent(content)

	if a.idx != nil {
		cached, err := a.idx.Lookup(ctx, a.cfg.ProjectID, wf.relPath, hash, RuleSetVersion)
		if err == nil && cached != nil {
			a.metrics.cacheHits.Inc()
			return fileOutcome{relPath: wf.relPath, contentHash: hash, cacheHit: true, findings: cached}
		}
		a.metrics.cacheMisses.Inc()
	}

	tree, err := a.parsers.parse(ctx, wf.language, content)
	if err != nil || tree == nil {
		a.metrics.filesSkipped.WithLabelValues("parser_refusal").Inc()
		reason := "parser_refusal"
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		return fileOutcome{relPath: wf.relPath, contentHash: hash, diagnostic: &model.Diagnostic{
			FilePath: wf.relPath, Reason: reason, Detail: detail,
		}}
	}
	defer tree.Close()

	var findings []model.Finding

	if a.cfg.Mode.runPattern() {
		patternFindings, err := a.engine.Run(wf.language, tree, content, wf.relPath)
		if err != nil {
			a.metrics.filesSkipped.WithLabelValues("pattern_engine_error").Inc()
			return fileOutcome{relPath: wf.relPath, contentHash: hash, diagnostic: &model.Diagnostic{
				FilePath: wf.relPath, Reason: "pattern_engine_error", Detail: err.Error(),
			}}
		}
		findings = append(findings, patternFindings...)
	}

	if a.cfg.Mode.runTaint() && wf.language.HasCFGBackend() {
		catalog := a.taintCatalogs[wf.language]
		for _, fn := range collectFunctionNodes(tree.RootNode(), wf.language) {
			graph, err := cfg.Build(fn, content, wf.language, catalog)
			if err != nil {
				continue
			}
			for _, tf := range taint.Analyze(graph, wf.relPath, catalog) {
				findings = append(findings, taintToFinding(tf, wf.language))
			}
		}
	}

	findings = pattern.Filter(findings, a.cfg.MinSeverity, a.cfg.MaxResults)

	return fileOutcome{relPath: wf.relPath, contentHash: hash, findings: findings}
}

func hashContent(content []byte) string {
	h := blake3.New()
	_, _ = h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// collectFunctionNodes walks tree collecting every node classified as a
// function/method/closure definition. Descent continues into a function's
// own body so nested closures are collected too - per spec.md's "one CFG
// per function/method/closure" contract, each gets its own graph.
func collectFunctionNodes(root *sitter.Node, language lang.Language) []*sitter.Node {
	var out []*sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if lang.Classify(language, n.Type()) == lang.KindFunctionDef {
			out = append(out, n)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return out
}

// taintToFinding adapts a TaintFinding to the reporter/index's common
// Finding shape. The sink site is the reported location - that's where the
// vulnerable call happens - with the source site folded into the message so
// the flow is still visible in every output format.
func taintToFinding(tf model.TaintFinding, language lang.Language) model.Finding {
	return model.Finding{
		Language: language.String(),
		RuleID:   tf.RuleID,
		Severity: tf.Severity,
		FilePath: tf.SinkFile,
		Line:     tf.SinkLine,
		Column:   tf.SinkColumn,
		Snippet:  tf.SinkCall,
		Message: fmt.Sprintf("tainted value %q (from %q at %s:%d) reaches %q",
			tf.SinkVar, tf.SourceVar, tf.SourceFile, tf.SourceLine, tf.SinkCall),
	}
}
