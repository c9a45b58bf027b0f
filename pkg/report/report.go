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

package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/kraklabs/nyx/internal/output"
	"github.com/kraklabs/nyx/internal/ui"
	"github.com/kraklabs/nyx/pkg/model"
)

// Format selects the renderer.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatSARIF   Format = "sarif"
)

// Valid reports whether f is one of the four recognized formats.
func (f Format) Valid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatSARIF:
		return true
	default:
		return false
	}
}

// Options configures rendering.
type Options struct {
	Format Format

	// IncludeDiagnostics wraps JSON output in {"findings":[...],
	// "diagnostics":[...]} instead of the bare top-level array. Ignored by
	// every other format.
	IncludeDiagnostics bool

	NoColor bool
}

// Render writes findings (and, for JSON with IncludeDiagnostics, diagnostics)
// to w in the selected format.
func Render(w io.Writer, findings []model.Finding, diagnostics []model.Diagnostic, opts Options) error {
	switch opts.Format {
	case "", FormatConsole:
		return renderConsole(w, findings, opts)
	case FormatJSON:
		return renderJSON(w, findings, diagnostics, opts)
	case FormatCSV:
		return renderCSV(w, findings)
	case FormatSARIF:
		return renderSARIF(w, findings)
	default:
		return fmt.Errorf("report: unknown format %q", opts.Format)
	}
}

// renderConsole groups findings by file and prints each file's findings in
// (line, column, rule_id) order, colorized via internal/ui the way the teacher's
// printLocalStatus/printResult commands render summaries.
func renderConsole(w io.Writer, findings []model.Finding, opts Options) error {
	if len(findings) == 0 {
		fmt.Fprintln(w, ui.Green.Sprint("No findings."))
		return nil
	}

	byFile := make(map[string][]model.Finding)
	var files []string
	for _, f := range findings {
		if _, ok := byFile[f.FilePath]; !ok {
			files = append(files, f.FilePath)
		}
		byFile[f.FilePath] = append(byFile[f.FilePath], f)
	}
	sort.Strings(files)

	for _, file := range files {
		fmt.Fprintln(w, ui.Bold.Sprint(file))
		fs := byFile[file]
		sort.SliceStable(fs, func(i, j int) bool { return fs[i].Less(fs[j]) })
		for _, f := range fs {
			fmt.Fprintf(w, "  %d:%d  %s  %s  %s\n",
				f.Line, f.Column, severityColor(f.Severity).Sprint(f.Severity.String()), f.RuleID, f.Message)
		}
	}
	fmt.Fprintf(w, "\n%s finding(s) across %s file(s)\n",
		ui.CountText(len(findings)), ui.CountText(len(files)))
	return nil
}

func severityColor(s model.Severity) interface {
	Sprint(...any) string
} {
	switch s {
	case model.SeverityCritical, model.SeverityHigh:
		return ui.Red
	case model.SeverityMedium:
		return ui.Yellow
	default:
		return ui.Dim
	}
}

// jsonWrapper is the shape emitted when --include-diagnostics accompanies
// --format json; the bare-array default (spec.md §6) is unaffected.
type jsonWrapper struct {
	Findings    []model.Finding    `json:"findings"`
	Diagnostics []model.Diagnostic `json:"diagnostics"`
}

func renderJSON(w io.Writer, findings []model.Finding, diagnostics []model.Diagnostic, opts Options) error {
	if findings == nil {
		findings = []model.Finding{}
	}
	if opts.IncludeDiagnostics {
		if diagnostics == nil {
			diagnostics = []model.Diagnostic{}
		}
		return output.JSONTo(w, jsonWrapper{Findings: findings, Diagnostics: diagnostics})
	}
	return output.JSONTo(w, findings)
}
