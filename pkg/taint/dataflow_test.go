// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package taint

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/nyx/pkg/cfg"
	"github.com/kraklabs/nyx/pkg/lang"
	"github.com/kraklabs/nyx/pkg/model"
)

func buildGraph(t *testing.T, source string, catalog *Catalog) *cfg.CFG {
	t.Helper()
	return buildGraphLang(t, lang.Go, source, catalog)
}

// buildGraphLang is buildGraph generalized over language, so Rust (and any
// other CFG-backed grammar) scenarios parse for real instead of being
// hand-translated into Go syntax.
func buildGraphLang(t *testing.T, language lang.Language, source string, catalog *Catalog) *cfg.CFG {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(language.Grammar())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(source))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var fn *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if fn != nil {
			return
		}
		if lang.Classify(language, n.Type()) == lang.KindFunctionDef {
			fn = n
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	if fn == nil {
		t.Fatal("no function node found in parsed source")
	}

	g, err := cfg.Build(fn, []byte(source), language, catalog)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestAnalyze_EnvToProcessSpawnFlow(t *testing.T) {
	source := "package p\nfunc f() {\n\tx := os.Getenv(\"NAME\")\n\texec.Command(x)\n}\n"
	catalog := NewCatalog(lang.Go)
	g := buildGraph(t, source, catalog)

	findings := Analyze(g, "f.go", catalog)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(findings), findings)
	}
	if findings[0].RuleID != "go-taint-exec-spawn" {
		t.Errorf("expected go-taint-exec-spawn, got %s", findings[0].RuleID)
	}
	if findings[0].SourceVar != "x" || findings[0].SinkVar != "x" {
		t.Errorf("expected flow through x, got source=%s sink=%s", findings[0].SourceVar, findings[0].SinkVar)
	}
}

func TestAnalyze_SanitizerClearsTaint(t *testing.T) {
	source := "package p\nfunc f() {\n\tx := os.Getenv(\"NAME\")\n\ty := ShellEscape(x)\n\texec.Command(y)\n}\n"
	catalog := NewCatalog(lang.Go)
	g := buildGraph(t, source, catalog)

	findings := Analyze(g, "f.go", catalog)
	if len(findings) != 0 {
		t.Fatalf("expected sanitizer to clear the flow, got %+v", findings)
	}
}

func TestAnalyze_BranchJoinPreservesTaint(t *testing.T) {
	source := "package p\nfunc f(cond bool) {\n\tx := \"\"\n\tif cond {\n\t\tx = os.Getenv(\"NAME\")\n\t}\n\texec.Command(x)\n}\n"
	catalog := NewCatalog(lang.Go)
	g := buildGraph(t, source, catalog)

	findings := Analyze(g, "f.go", catalog)
	if len(findings) != 1 {
		t.Fatalf("expected the true-branch taint to survive the join, got %+v", findings)
	}
}

func TestAnalyze_LoopConvergenceFindsSinkInBody(t *testing.T) {
	source := "package p\nfunc f() {\n\tfor i := 0; i < 3; i++ {\n\t\tx := os.Getenv(\"NAME\")\n\t\texec.Command(x)\n\t}\n}\n"
	catalog := NewCatalog(lang.Go)
	g := buildGraph(t, source, catalog)

	findings := Analyze(g, "f.go", catalog)
	if len(findings) != 1 {
		t.Fatalf("expected exactly 1 deduplicated finding despite the back-edge, got %d: %+v", len(findings), findings)
	}
}

// TestAnalyze_RustEnvToCommandSpawnFlow parses the exact Rust scenario this
// package's analysis is meant to catch: an env var read, unwrapped, and fed
// straight into a spawned process. It exercises both the "pattern"-field def
// for let_declaration and the "value"-field receiver for a chained
// Command::new(...).spawn() call - two things every other test in this
// package, being Go-only, never touched.
func TestAnalyze_RustEnvToCommandSpawnFlow(t *testing.T) {
	source := "fn f() {\n" +
		"\tlet u = std::env::var(\"X\").unwrap();\n" +
		"\tstd::process::Command::new(u).spawn();\n" +
		"}\n"
	catalog := NewCatalog(lang.Rust)
	g := buildGraphLang(t, lang.Rust, source, catalog)

	findings := Analyze(g, "f.rs", catalog)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(findings), findings)
	}
	if findings[0].RuleID != "rust-taint-command-spawn" {
		t.Errorf("expected rust-taint-command-spawn, got %s", findings[0].RuleID)
	}
	if findings[0].Severity != model.SeverityHigh {
		t.Errorf("expected High severity, got %s", findings[0].Severity)
	}
	if findings[0].SourceVar != "u" || findings[0].SinkVar != "u" {
		t.Errorf("expected flow through u, got source=%s sink=%s", findings[0].SourceVar, findings[0].SinkVar)
	}
}

func TestAnalyze_NoSinkNoFindings(t *testing.T) {
	source := "package p\nfunc f() {\n\tx := os.Getenv(\"NAME\")\n\t_ = x\n}\n"
	catalog := NewCatalog(lang.Go)
	g := buildGraph(t, source, catalog)

	findings := Analyze(g, "f.go", catalog)
	if len(findings) != 0 {
		t.Fatalf("expected no findings without a sink, got %+v", findings)
	}
}
