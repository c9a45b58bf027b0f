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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the Prometheus instruments for one pipeline run's
// process. Registration is guarded by a package-level sync.Once so
// multiple Pipelines in the same process (e.g. scan --watch re-running)
// don't panic on double registration.
type metrics struct {
	filesWalked  prometheus.Counter
	filesSkipped *prometheus.CounterVec
	findings     *prometheus.CounterVec
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter

	scanDuration  prometheus.Histogram
	cfgDuration   prometheus.Histogram
	taintDuration prometheus.Histogram
}

var (
	metricsOnce sync.Once
	sharedMetrics *metrics
)

// newMetrics returns the process-wide metrics singleton, registering it
// with the default Prometheus registry on first call.
func newMetrics() *metrics {
	metricsOnce.Do(func() {
		m := &metrics{
			filesWalked: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "nyx_scan_files_walked_total", Help: "Files the walker handed to the work queue",
			}),
			filesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "nyx_scan_files_skipped_total", Help: "Files skipped, labeled by reason",
			}, []string{"reason"}),
			findings: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "nyx_scan_findings_total", Help: "Findings emitted, labeled by severity",
			}, []string{"severity"}),
			cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "nyx_scan_cache_hits_total", Help: "Files served from the incremental index",
			}),
			cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "nyx_scan_cache_misses_total", Help: "Files that required re-analysis",
			}),
			scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name: "nyx_scan_duration_seconds", Help: "Total duration of one scan run",
				Buckets: prometheus.DefBuckets,
			}),
			cfgDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name: "nyx_scan_cfg_build_duration_seconds", Help: "Duration of CFG construction per file",
				Buckets: prometheus.DefBuckets,
			}),
			taintDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name: "nyx_scan_taint_analysis_duration_seconds", Help: "Duration of taint dataflow analysis per file",
				Buckets: prometheus.DefBuckets,
			}),
		}
		prometheus.MustRegister(
			m.filesWalked, m.filesSkipped, m.findings, m.cacheHits, m.cacheMisses,
			m.scanDuration, m.cfgDuration, m.taintDuration,
		)
		sharedMetrics = m
	})
	return sharedMetrics
}
