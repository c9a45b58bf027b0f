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

package model

import "strconv"

// Label is a bitset tag attached to an expression or value, indicating its
// taint classification: a source, a sanitizer, or a sink category. The
// lattice used by the taint dataflow is (2^Label, subset-of); join is set
// union via bitwise OR.
type Label uint32

const (
	LabelSourceEnv Label = 1 << iota
	LabelSourceUserInput
	LabelSourceFile
	LabelSourceNetwork

	LabelSanitizerShellEscape
	LabelSanitizerSQLEscape
	LabelSanitizerPathClean
	LabelSanitizerHTMLEscape

	LabelSinkProcessSpawn
	LabelSinkSQLExec
	LabelSinkCodeExec
	LabelSinkFileWrite
)

// sourceLabels and sinkLabels partition the label space so a caller can ask
// "is this bitset carrying any source/sink bits at all" without hardcoding
// the split at every call site.
const (
	sourceLabels    = LabelSourceEnv | LabelSourceUserInput | LabelSourceFile | LabelSourceNetwork
	sinkLabels      = LabelSinkProcessSpawn | LabelSinkSQLExec | LabelSinkCodeExec | LabelSinkFileWrite
	sanitizerLabels = LabelSanitizerShellEscape | LabelSanitizerSQLEscape | LabelSanitizerPathClean | LabelSanitizerHTMLEscape
)

// Has reports whether every bit in other is set in l.
func (l Label) Has(other Label) bool {
	return l&other == other
}

// Intersects reports whether l and other share any bit.
func (l Label) Intersects(other Label) bool {
	return l&other != 0
}

// Sources returns only the source bits of l.
func (l Label) Sources() Label {
	return l & sourceLabels
}

// Sinks returns only the sink bits of l.
func (l Label) Sinks() Label {
	return l & sinkLabels
}

// Sanitizers returns only the sanitizer bits of l.
func (l Label) Sanitizers() Label {
	return l & sanitizerLabels
}

// IsZero reports whether no bits are set (the lattice's bottom element).
func (l Label) IsZero() bool {
	return l == 0
}

// sanitizerClears maps each sanitizer bit to the source-category bits it
// clears from a tainted value's label set. A source clears only under its
// matching sanitizer category, per the transfer function in the taint
// dataflow's design.
var sanitizerClears = map[Label]Label{
	LabelSanitizerShellEscape: LabelSourceEnv | LabelSourceUserInput,
	LabelSanitizerSQLEscape:   LabelSourceEnv | LabelSourceUserInput | LabelSourceNetwork,
	LabelSanitizerPathClean:   LabelSourceUserInput | LabelSourceFile,
	LabelSanitizerHTMLEscape:  LabelSourceUserInput | LabelSourceNetwork,
}

// Clears returns the source-category bits that a sanitizer bitset clears.
func Clears(sanitizer Label) Label {
	var cleared Label
	for bit, clears := range sanitizerClears {
		if sanitizer.Intersects(bit) {
			cleared |= clears
		}
	}
	return cleared
}

// sinkRequires maps each sink bit to the source-category bits that, if
// present on an argument reaching that sink, constitute a vulnerable flow.
var sinkRequires = map[Label]Label{
	LabelSinkProcessSpawn: LabelSourceEnv | LabelSourceUserInput | LabelSourceNetwork,
	LabelSinkSQLExec:      LabelSourceUserInput | LabelSourceNetwork | LabelSourceEnv,
	LabelSinkCodeExec:     LabelSourceUserInput | LabelSourceNetwork,
	LabelSinkFileWrite:    LabelSourceUserInput | LabelSourceNetwork,
}

// Requires returns the source-category bits a sink bitset is sensitive to.
func Requires(sink Label) Label {
	var required Label
	for bit, req := range sinkRequires {
		if sink.Intersects(bit) {
			required |= req
		}
	}
	return required
}

// TaintFinding describes one flow from a source site to a sink site with
// the set of labels carried at the sink.
type TaintFinding struct {
	RuleID       string
	Severity     Severity
	SourceFile   string
	SourceLine   int
	SourceColumn int
	SourceVar    string
	SinkFile     string
	SinkLine     int
	SinkColumn   int
	SinkVar      string
	SinkCall     string
	Labels       Label
}

// Key is the deduplication tuple: TaintFindings equal on
// (source_site, sink_site, labels) collapse to the earliest discovery.
func (f TaintFinding) Key() string {
	return strconv.Itoa(f.SourceLine) + "\x00" + strconv.Itoa(f.SinkLine) + "\x00" +
		f.SourceVar + "\x00" + f.SinkVar + "\x00" + f.RuleID + "\x00" +
		strconv.FormatUint(uint64(f.Labels), 10)
}
