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
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kraklabs/nyx/pkg/lang"
	"github.com/kraklabs/nyx/pkg/model"
	"github.com/kraklabs/nyx/pkg/pattern"
	"github.com/kraklabs/nyx/pkg/storage"
	"github.com/kraklabs/nyx/pkg/taint"
)

// Result summarizes one pipeline run.
type Result struct {
	ProjectID      string
	FilesWalked    int
	FilesAnalyzed  int
	FilesCached    int
	Findings       []model.Finding
	Diagnostics    []model.Diagnostic
	SkipReasons    map[string]int
	Duration       time.Duration
}

// Pipeline runs the scan: a Walker feeds a bounded work queue, a pool of
// Analyzer workers consume it, and a single writer goroutine commits
// batches to the index. Pipeline is built once per Config and is not
// reused across concurrent Run calls.
type Pipeline struct {
	cfg     resolved
	logger  *slog.Logger
	idx     *storage.SQLiteIndex
	engine  *pattern.Engine
	taintC  map[lang.Language]*taint.Catalog
	metrics *metrics
}

// New builds a Pipeline. idx may be nil when cfg.NoIndex is true; callers
// that pass an index are still responsible for closing it.
func New(cfg Config, logger *slog.Logger, idx *storage.SQLiteIndex) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	engine, err := pattern.NewEngine(pattern.DefaultCatalog())
	if err != nil {
		return nil, fmt.Errorf("compile pattern catalog: %w", err)
	}

	taintCatalogs := make(map[lang.Language]*taint.Catalog)
	for _, l := range lang.All() {
		if l.HasCFGBackend() {
			taintCatalogs[l] = taint.NewCatalog(l)
		}
	}

	return &Pipeline{
		cfg:     r,
		logger:  logger,
		idx:     idx,
		engine:  engine,
		taintC:  taintCatalogs,
		metrics: newMetrics(),
	}, nil
}

// Run executes one full scan of cfg.RootPath. It returns a partial Result
// alongside an error when the walk itself fails fatally (e.g. RootPath does
// not exist); per-file problems never surface as an error, only as
// Diagnostics.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	p.logger.Info("scan.pipeline.start", "root", p.cfg.RootPath, "mode", p.cfg.Mode, "workers", p.cfg.workerThreads)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := newWalker(p.cfg, p.logger)
	if err != nil {
		return nil, fmt.Errorf("build walker: %w", err)
	}

	workCh := make(chan walkFile, p.cfg.channelCapacity)
	outcomeCh := make(chan fileOutcome, p.cfg.channelCapacity)

	var walkErr error
	var skipReasons map[string]int
	walkDone := make(chan struct{})
	go func() {
		defer close(walkDone)
		skipReasons, walkErr = w.walk(ctx, workCh)
	}()

	var filesWalked int64
	var workerWG sync.WaitGroup
	for i := 0; i < p.cfg.workerThreads; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			az := newAnalyzer(p.cfg, p.engine, p.taintC, p.idx, p.metrics)
			for {
				select {
				case wf, ok := <-workCh:
					if !ok {
						return
					}
					p.metrics.filesWalked.Inc()
					atomic.AddInt64(&filesWalked, 1)
					outcome := az.analyze(ctx, wf)
					select {
					case outcomeCh <- outcome:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		workerWG.Wait()
		close(outcomeCh)
	}()

	result := &Result{ProjectID: p.cfg.ProjectID}
	writeErr := p.writeOutcomes(ctx, outcomeCh, result)
	if writeErr != nil {
		cancel()
	}

	<-walkDone
	if walkErr != nil {
		return result, fmt.Errorf("walk %s: %w", p.cfg.RootPath, walkErr)
	}
	if writeErr != nil {
		return result, writeErr
	}

	result.FilesWalked = int(atomic.LoadInt64(&filesWalked))
	result.SkipReasons = skipReasons
	result.Duration = time.Since(start)
	p.metrics.scanDuration.Observe(result.Duration.Seconds())

	for _, f := range result.Findings {
		p.metrics.findings.WithLabelValues(f.Severity.String()).Inc()
	}
	for reason, count := range skipReasons {
		p.metrics.filesSkipped.WithLabelValues(reason).Add(float64(count))
	}

	p.logger.Info("scan.pipeline.complete",
		"files_analyzed", result.FilesAnalyzed,
		"files_cached", result.FilesCached,
		"findings", len(result.Findings),
		"diagnostics", len(result.Diagnostics),
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

// writeOutcomes is the pipeline's single index-writer consumer: it batches
// file records up to cfg.batchSize before committing, and always flushes
// whatever remains when outcomeCh closes (end of scan or cancellation).
func (p *Pipeline) writeOutcomes(ctx context.Context, outcomeCh <-chan fileOutcome, result *Result) error {
	batch := make([]model.FileRecord, 0, p.cfg.batchSize)

	flush := func() error {
		if len(batch) == 0 || p.idx == nil {
			batch = batch[:0]
			return nil
		}
		if err := p.idx.StoreBatch(ctx, batch); err != nil {
			return fmt.Errorf("commit index batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for outcome := range outcomeCh {
		if outcome.diagnostic != nil {
			p.logger.Warn("scan.file.diagnostic", "path", outcome.diagnostic.FilePath,
				"reason", outcome.diagnostic.Reason, "detail", outcome.diagnostic.Detail)
			result.Diagnostics = append(result.Diagnostics, *outcome.diagnostic)
			continue
		}

		result.FilesAnalyzed++
		if outcome.cacheHit {
			result.FilesCached++
		}
		for _, f := range outcome.findings {
			f.FilePath = outcome.relPath
			result.Findings = append(result.Findings, f)
		}

		if p.idx != nil && !outcome.cacheHit {
			batch = append(batch, model.FileRecord{
				ProjectID:      p.cfg.ProjectID,
				RelativePath:   outcome.relPath,
				ContentHash:    outcome.contentHash,
				ModifiedTime:   time.Now().Unix(),
				RuleSetVersion: RuleSetVersion,
				Findings:       outcome.findings,
			})
			if len(batch) >= p.cfg.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	sortFindings(result.Findings)
	return nil
}

// sortFindings groups by file, then orders within each file by
// (line, column, rule_id), per spec.md's cross-subsystem ordering
// guarantee. Across files, order is left as encountered - no cross-file
// ordering is promised.
func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].FilePath != findings[j].FilePath {
			return findings[i].FilePath < findings[j].FilePath
		}
		return findings[i].Less(findings[j])
	})
}
