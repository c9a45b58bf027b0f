// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cfg

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/nyx/pkg/lang"
	"github.com/kraklabs/nyx/pkg/model"
)

type stubCatalog struct {
	calls map[string]model.Label
}

func (s stubCatalog) ClassifyCall(target, receiver string) model.Label {
	return s.calls[target]
}

func (s stubCatalog) ExternallyControlledParam(name string) bool {
	return false
}

func parse(t *testing.T, language lang.Language, source string) *sitter.Node {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(language.Grammar())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(source))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tree.RootNode()
}

func findFunctionNode(t *testing.T, root *sitter.Node, language lang.Language) *sitter.Node {
	t.Helper()
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if lang.Classify(language, n.Type()) == lang.KindFunctionDef {
			found = n
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	if found == nil {
		t.Fatal("no function node found in parsed source")
	}
	return found
}

// assertShape checks the invariants from the concurrency/shape section: the
// entry block has no predecessors, the exit block has no successors, and
// every non-exit block has at least one successor.
func assertShape(t *testing.T, g *CFG) {
	t.Helper()
	if len(g.Predecessors(g.Entry)) != 0 {
		t.Errorf("entry block %d has predecessors: %v", g.Entry, g.Predecessors(g.Entry))
	}
	if len(g.Successors(g.Exit)) != 0 {
		t.Errorf("exit block %d has successors: %v", g.Exit, g.Successors(g.Exit))
	}
	for _, blk := range g.Blocks {
		if blk.Index == g.Exit {
			continue
		}
		if len(g.Successors(blk.Index)) == 0 {
			t.Errorf("non-exit block %d has no successors", blk.Index)
		}
	}
}

func TestBuild_StraightLineSequence(t *testing.T) {
	source := "package p\nfunc f() {\n\tx := 1\n\ty := 2\n\t_ = x\n\t_ = y\n}\n"
	root := parse(t, lang.Go, source)
	fn := findFunctionNode(t, root, lang.Go)

	g, err := Build(fn, []byte(source), lang.Go, stubCatalog{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertShape(t, g)
}

func TestBuild_IfElseJoins(t *testing.T) {
	source := "package p\nfunc f(cond bool) {\n\tif cond {\n\t\tx := 1\n\t\t_ = x\n\t} else {\n\t\ty := 2\n\t\t_ = y\n\t}\n}\n"
	root := parse(t, lang.Go, source)
	fn := findFunctionNode(t, root, lang.Go)

	g, err := Build(fn, []byte(source), lang.Go, stubCatalog{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertShape(t, g)

	var trueEdges, falseEdges int
	for _, e := range g.Edges {
		switch e.Kind {
		case EdgeTrueBranch:
			trueEdges++
		case EdgeFalseBranch:
			falseEdges++
		}
	}
	if trueEdges == 0 || falseEdges == 0 {
		t.Errorf("expected both true and false branch edges, got true=%d false=%d", trueEdges, falseEdges)
	}
}

func TestBuild_ForLoopHasBackEdge(t *testing.T) {
	source := "package p\nfunc f() {\n\tfor i := 0; i < 10; i++ {\n\t\t_ = i\n\t}\n}\n"
	root := parse(t, lang.Go, source)
	fn := findFunctionNode(t, root, lang.Go)

	g, err := Build(fn, []byte(source), lang.Go, stubCatalog{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertShape(t, g)

	hasBackEdge := false
	for _, e := range g.Edges {
		if e.Kind == EdgeBackEdge {
			hasBackEdge = true
		}
	}
	if !hasBackEdge {
		t.Error("expected at least one back-edge for the for-loop")
	}
}

func TestBuild_ReturnEdgesStraightToExit(t *testing.T) {
	source := "package p\nfunc f(cond bool) int {\n\tif cond {\n\t\treturn 1\n\t}\n\treturn 0\n}\n"
	root := parse(t, lang.Go, source)
	fn := findFunctionNode(t, root, lang.Go)

	g, err := Build(fn, []byte(source), lang.Go, stubCatalog{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertShape(t, g)

	returnEdges := 0
	for _, e := range g.Edges {
		if e.Kind == EdgeReturn {
			returnEdges++
		}
	}
	if returnEdges < 2 {
		t.Errorf("expected 2 return edges to exit, got %d", returnEdges)
	}
}

func TestBuild_LogicalAndShortCircuitsIntoTwoBlocks(t *testing.T) {
	source := "package p\nfunc f(a, b bool) {\n\tif a && b {\n\t\tx := 1\n\t\t_ = x\n\t}\n}\n"
	root := parse(t, lang.Go, source)
	fn := findFunctionNode(t, root, lang.Go)

	g, err := Build(fn, []byte(source), lang.Go, stubCatalog{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertShape(t, g)

	aBlock, bBlock := -1, -1
	for _, blk := range g.Blocks {
		for _, fact := range blk.Statements {
			if len(fact.Uses) != 1 {
				continue
			}
			switch fact.Uses[0] {
			case "a":
				aBlock = blk.Index
			case "b":
				bBlock = blk.Index
			}
		}
	}
	if aBlock < 0 || bBlock < 0 {
		t.Fatalf("expected separate fact blocks for each operand, got a=%d b=%d", aBlock, bBlock)
	}
	if aBlock == bBlock {
		t.Fatal("a && b must short-circuit into two distinct blocks, not one merged condition block")
	}

	trueToB, falseSkipsB := false, false
	for _, e := range g.Edges {
		if e.From != aBlock {
			continue
		}
		if e.Kind == EdgeTrueBranch && e.To == bBlock {
			trueToB = true
		}
		if e.Kind == EdgeFalseBranch && e.To != bBlock {
			falseSkipsB = true
		}
	}
	if !trueToB {
		t.Error("expected a's true-branch edge to reach b's block")
	}
	if !falseSkipsB {
		t.Error("expected a's false-branch edge to skip b's block (short-circuit)")
	}
}

func TestBuild_RustLetPatternBindsIdentifier(t *testing.T) {
	source := "fn f() {\n\tlet u = std::env::var(\"X\").unwrap();\n\t_ = u;\n}\n"
	root := parse(t, lang.Rust, source)
	fn := findFunctionNode(t, root, lang.Rust)

	g, err := Build(fn, []byte(source), lang.Rust, stubCatalog{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	found := false
	for _, blk := range g.Blocks {
		for _, fact := range blk.Statements {
			if len(fact.Defs) == 1 && fact.Defs[0] == "u" {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected let_declaration's \"pattern\" field to bind u as a def")
	}
}

func TestBuild_RustChainedCallCarriesReceiverType(t *testing.T) {
	source := "fn f(u: String) {\n\tstd::process::Command::new(u).spawn();\n}\n"
	root := parse(t, lang.Rust, source)
	fn := findFunctionNode(t, root, lang.Rust)

	g, err := Build(fn, []byte(source), lang.Rust, stubCatalog{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var gotTarget, gotReceiver string
	for _, blk := range g.Blocks {
		for _, fact := range blk.Statements {
			if fact.CallTarget == "spawn" {
				gotTarget, gotReceiver = fact.CallTarget, fact.ReceiverType
			}
		}
	}
	if gotTarget != "spawn" {
		t.Fatalf("expected a fact with CallTarget spawn, got %q", gotTarget)
	}
	if gotReceiver != "Command" {
		t.Errorf("expected ReceiverType Command from Command::new(u).spawn(), got %q", gotReceiver)
	}
}

func TestBuild_CallFactCarriesCatalogLabels(t *testing.T) {
	source := "package p\nfunc f() {\n\tos.Exec(cmd)\n}\n"
	root := parse(t, lang.Go, source)
	fn := findFunctionNode(t, root, lang.Go)

	catalog := stubCatalog{calls: map[string]model.Label{"Exec": model.LabelSinkProcessSpawn}}
	g, err := Build(fn, []byte(source), lang.Go, catalog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	foundSink := false
	for _, blk := range g.Blocks {
		for _, fact := range blk.Statements {
			if fact.Labels.Has(model.LabelSinkProcessSpawn) {
				foundSink = true
			}
		}
	}
	if !foundSink {
		t.Error("expected a statement fact carrying the sink label from the catalog")
	}
}
