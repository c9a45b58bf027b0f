// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package lang

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

func firstNodeOfType(n *sitter.Node, nodeType string) *sitter.Node {
	if n.Type() == nodeType {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := firstNodeOfType(n.NamedChild(i), nodeType); found != nil {
			return found
		}
	}
	return nil
}

func TestClassifyNodeDisambiguatesLogicalOperators(t *testing.T) {
	tests := []struct {
		name     string
		l        Language
		source   string
		nodeType string
		want     NodeKind
	}{
		{"go &&", Go, "package p\nfunc f(a, b bool) bool { return a && b }\n", "binary_expression", KindLogicalAnd},
		{"go ||", Go, "package p\nfunc f(a, b bool) bool { return a || b }\n", "binary_expression", KindLogicalOr},
		{"go arithmetic stays Other", Go, "package p\nfunc f(a, b int) int { return a + b }\n", "binary_expression", KindOther},
		{"python and", Python, "def f(a, b):\n    return a and b\n", "boolean_operator", KindLogicalAnd},
		{"python or", Python, "def f(a, b):\n    return a or b\n", "boolean_operator", KindLogicalOr},
		{"rust &&", Rust, "fn f(a: bool, b: bool) -> bool { a && b }\n", "binary_expression", KindLogicalAnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := sitter.NewParser()
			parser.SetLanguage(tt.l.Grammar())
			tree, err := parser.ParseCtx(context.Background(), nil, []byte(tt.source))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			node := firstNodeOfType(tree.RootNode(), tt.nodeType)
			if node == nil {
				t.Fatalf("no %s node found", tt.nodeType)
			}
			if got := ClassifyNode(tt.l, node, []byte(tt.source)); got != tt.want {
				t.Errorf("ClassifyNode(%v, %s) = %v, want %v", tt.l, tt.nodeType, got, tt.want)
			}
		})
	}
}

func TestClassifyKnownNodes(t *testing.T) {
	tests := []struct {
		l        Language
		nodeType string
		want     NodeKind
	}{
		{Go, "if_statement", KindIf},
		{Go, "for_statement", KindFor},
		{Go, "call_expression", KindCall},
		{Python, "function_definition", KindFunctionDef},
		{Python, "try_statement", KindTry},
		{JavaScript, "catch_clause", KindCatch},
		{Rust, "match_expression", KindSwitch},
	}

	for _, tt := range tests {
		if got := Classify(tt.l, tt.nodeType); got != tt.want {
			t.Errorf("Classify(%v, %q) = %v, want %v", tt.l, tt.nodeType, got, tt.want)
		}
	}
}

func TestClassifyUnknownNodeIsOther(t *testing.T) {
	if got := Classify(Go, "some_unrecognized_node"); got != KindOther {
		t.Errorf("Classify() for unknown node = %v, want KindOther", got)
	}
}

func TestClassifyUnregisteredLanguageIsOther(t *testing.T) {
	if got := Classify(Unknown, "if_statement"); got != KindOther {
		t.Errorf("Classify() for Unknown language = %v, want KindOther", got)
	}
}
