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

package taint

import (
	"github.com/kraklabs/nyx/pkg/cfg"
	"github.com/kraklabs/nyx/pkg/model"
)

// site is where a variable picked up its current taint: the earliest
// assignment (or parameter) that introduced a label still active on it.
type site struct {
	line     int
	column   int
	variable string
}

func isEarlier(a, b site) bool {
	if a.line != b.line {
		return a.line < b.line
	}
	return a.column < b.column
}

// flowState is the per-program-point lattice element: a label bitset per
// live variable, plus the provenance site for each variable's current
// taint, tracked in lockstep so a finding can report where a flow began.
type flowState struct {
	labels map[string]model.Label
	origin map[string]site
}

func newFlowState() flowState {
	return flowState{labels: map[string]model.Label{}, origin: map[string]site{}}
}

func (s flowState) clone() flowState {
	out := flowState{
		labels: make(map[string]model.Label, len(s.labels)),
		origin: make(map[string]site, len(s.origin)),
	}
	for k, v := range s.labels {
		out.labels[k] = v
	}
	for k, v := range s.origin {
		out.origin[k] = v
	}
	return out
}

// join is the lattice's meet-over-all-predecessors operator: element-wise
// union of label bitsets, and for provenance, the earliest site seen for
// each variable across the joined paths.
func join(a, b flowState) flowState {
	out := a.clone()
	for k, v := range b.labels {
		out.labels[k] |= v
	}
	for k, v := range b.origin {
		if existing, ok := out.origin[k]; !ok || isEarlier(v, existing) {
			out.origin[k] = v
		}
	}
	return out
}

func equalLabels(a, b flowState) bool {
	if len(a.labels) != len(b.labels) {
		return false
	}
	for k, v := range a.labels {
		if b.labels[k] != v {
			return false
		}
	}
	return true
}

// Analyze runs the worklist fixpoint over graph and reports every flow from
// a classified source to a classified sink that survived to the sink
// without a matching sanitizer clearing it. filePath is recorded on every
// TaintFinding produced.
func Analyze(graph *cfg.CFG, filePath string, catalog *Catalog) []model.TaintFinding {
	inState := make(map[int]flowState, len(graph.Blocks))
	outState := make(map[int]flowState, len(graph.Blocks))
	for _, blk := range graph.Blocks {
		inState[blk.Index] = newFlowState()
		outState[blk.Index] = newFlowState()
	}

	found := map[string]model.TaintFinding{}

	worklist := []int{graph.Entry}
	enqueued := make(map[int]bool, len(graph.Blocks))
	enqueued[graph.Entry] = true

	for len(worklist) > 0 {
		idx := worklist[0]
		worklist = worklist[1:]
		enqueued[idx] = false

		in := computeIn(graph, idx, outState, inState[idx])
		inState[idx] = in

		out, blockFindings := transferBlock(graph.Blocks[idx], in, filePath, catalog)
		for _, f := range blockFindings {
			if _, ok := found[f.Key()]; !ok {
				found[f.Key()] = f
			}
		}

		if !equalLabels(out, outState[idx]) {
			outState[idx] = out
			for _, succ := range graph.Successors(idx) {
				if !enqueued[succ] {
					worklist = append(worklist, succ)
					enqueued[succ] = true
				}
			}
		}
	}

	results := make([]model.TaintFinding, 0, len(found))
	for _, f := range found {
		results = append(results, f)
	}
	return results
}

// computeIn joins the out-states of idx's predecessors. The entry block has
// none, so it keeps its existing (initially empty) in-state - parameters
// enter the lattice as FactParam facts in the entry block itself, not as a
// seeded in-state.
func computeIn(graph *cfg.CFG, idx int, outState map[int]flowState, current flowState) flowState {
	preds := graph.Predecessors(idx)
	if len(preds) == 0 {
		return current
	}
	in := newFlowState()
	for _, p := range preds {
		in = join(in, outState[p])
	}
	return in
}

// transferBlock replays a block's statement facts against a copy of in,
// producing the block's out-state and any TaintFindings discovered while
// doing so.
func transferBlock(blk *cfg.Block, in flowState, filePath string, catalog *Catalog) (flowState, []model.TaintFinding) {
	state := in.clone()
	var findings []model.TaintFinding

	for _, fact := range blk.Statements {
		switch fact.Kind {
		case cfg.FactParam:
			applyParam(state, fact)
		case cfg.FactAssign:
			applyAssign(state, fact)
		case cfg.FactCall:
			findings = append(findings, applyCall(state, fact, filePath, catalog)...)
		case cfg.FactBranchTest, cfg.FactReturn, cfg.FactOther:
			// No state change: branch tests are path-insensitive per the
			// transfer-function table, and return/other facts neither
			// define nor launder a variable.
		}
	}

	return state, findings
}

func applyParam(state flowState, fact cfg.StatementFact) {
	if len(fact.Defs) != 1 || fact.Labels.IsZero() {
		return
	}
	v := fact.Defs[0]
	state.labels[v] |= fact.Labels
	if _, ok := state.origin[v]; !ok {
		state.origin[v] = site{line: fact.Line, column: fact.Column, variable: v}
	}
}

func applyAssign(state flowState, fact cfg.StatementFact) {
	if len(fact.Defs) != 1 {
		return
	}
	v := fact.Defs[0]

	var merged model.Label
	for _, u := range fact.Uses {
		merged |= state.labels[u].Sources()
	}
	merged |= fact.Labels.Sources()

	next := merged
	if fact.Labels.Intersects(model.Label(^uint32(0)).Sanitizers()) {
		cleared := model.Clears(fact.Labels.Sanitizers())
		next = (state.labels[v] &^ cleared) | merged
		next &^= cleared
	}

	if next == 0 {
		delete(state.labels, v)
		delete(state.origin, v)
		return
	}
	state.labels[v] = next
	if _, ok := state.origin[v]; !ok {
		state.origin[v] = site{line: fact.Line, column: fact.Column, variable: v}
	}
}

func applyCall(state flowState, fact cfg.StatementFact, filePath string, catalog *Catalog) []model.TaintFinding {
	sinkBits := fact.Labels.Sinks()
	if sinkBits.IsZero() {
		return nil
	}

	var out []model.TaintFinding
	required := model.Requires(sinkBits)

	for _, u := range fact.Uses {
		taint := state.labels[u]
		if taint.IsZero() || !taint.Intersects(required) {
			continue
		}

		srcLine, srcColumn, srcVar := fact.Line, fact.Column, u
		if origin, ok := state.origin[u]; ok {
			srcLine, srcColumn, srcVar = origin.line, origin.column, origin.variable
		}

		meta := catalog.ruleFor(fact.CallTarget, fact.ReceiverType)
		out = append(out, model.TaintFinding{
			RuleID:       meta.ruleID,
			Severity:     meta.severity,
			SourceFile:   filePath,
			SourceLine:   srcLine,
			SourceColumn: srcColumn,
			SourceVar:    srcVar,
			SinkFile:     filePath,
			SinkLine:     fact.Line,
			SinkColumn:   fact.Column,
			SinkVar:      u,
			SinkCall:     fact.CallTarget,
			Labels:       taint,
		})
	}
	return out
}
