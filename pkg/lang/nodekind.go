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

package lang

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// NodeKind is the internal classification every grammar's node-type string
// is mapped to. It is the single source of truth the pattern engine and the
// CFG builder both classify against; they never compare raw node-type
// strings directly.
type NodeKind int

const (
	KindOther NodeKind = iota
	KindBlock
	KindIf
	KindWhile
	KindFor
	KindBreak
	KindContinue
	KindReturn
	KindSwitch
	KindSwitchCase
	KindCall
	KindAssign
	KindLogicalAnd
	KindLogicalOr
	KindFunctionDef
	KindParam
	KindTry
	KindCatch
	KindIdentifier
)

// dispatchTable maps a grammar's raw node-type strings to NodeKind. It is
// built once, on the first Classify call (see buildDispatch), and never mutated again,
// so concurrent lookups from analyzer workers need no locking.
type dispatchTable map[string]NodeKind

var (
	dispatchByLang map[Language]dispatchTable
	dispatchOnce   sync.Once
)

func buildDispatch() {
	dispatchByLang = map[Language]dispatchTable{
		Go: {
			"if_statement": KindIf, "for_statement": KindFor,
			"return_statement": KindReturn, "break_statement": KindBreak,
			"continue_statement": KindContinue,
			"expression_switch_statement": KindSwitch, "type_switch_statement": KindSwitch,
			"expression_case": KindSwitchCase, "type_case": KindSwitchCase,
			"call_expression": KindCall, "assignment_statement": KindAssign,
			"short_var_declaration": KindAssign,
			"binary_expression":     KindOther, // refined to KindLogicalAnd/KindLogicalOr by ClassifyNode
			"function_declaration":  KindFunctionDef, "method_declaration": KindFunctionDef,
			"func_literal": KindFunctionDef, "parameter_declaration": KindParam,
			"block": KindBlock, "identifier": KindIdentifier,
		},
		Python: {
			"if_statement": KindIf, "while_statement": KindWhile, "for_statement": KindFor,
			"return_statement": KindReturn, "break_statement": KindBreak, "continue_statement": KindContinue,
			"call": KindCall, "assignment": KindAssign, "augmented_assignment": KindAssign,
			"boolean_operator":   KindOther,
			"function_definition": KindFunctionDef, "parameters": KindParam,
			"try_statement": KindTry, "except_clause": KindCatch,
			"block": KindBlock, "identifier": KindIdentifier,
		},
		JavaScript: {
			"if_statement": KindIf, "while_statement": KindWhile, "for_statement": KindFor,
			"for_in_statement": KindFor, "return_statement": KindReturn,
			"break_statement": KindBreak, "continue_statement": KindContinue,
			"switch_statement": KindSwitch, "switch_case": KindSwitchCase,
			"call_expression": KindCall, "assignment_expression": KindAssign,
			"variable_declarator": KindAssign,
			"binary_expression":   KindOther,
			"function_declaration": KindFunctionDef, "function": KindFunctionDef,
			"arrow_function": KindFunctionDef, "method_definition": KindFunctionDef,
			"formal_parameters": KindParam,
			"try_statement": KindTry, "catch_clause": KindCatch,
			"statement_block": KindBlock, "identifier": KindIdentifier,
		},
		Java: {
			"if_statement": KindIf, "while_statement": KindWhile, "for_statement": KindFor,
			"enhanced_for_statement": KindFor, "return_statement": KindReturn,
			"break_statement": KindBreak, "continue_statement": KindContinue,
			"switch_expression": KindSwitch, "switch_block_statement_group": KindSwitchCase,
			"method_invocation": KindCall, "assignment_expression": KindAssign,
			"local_variable_declaration": KindAssign, "binary_expression": KindOther,
			"method_declaration": KindFunctionDef, "formal_parameters": KindParam,
			"try_statement": KindTry, "catch_clause": KindCatch,
			"block": KindBlock, "identifier": KindIdentifier,
		},
		C: {
			"if_statement": KindIf, "while_statement": KindWhile, "for_statement": KindFor,
			"return_statement": KindReturn, "break_statement": KindBreak, "continue_statement": KindContinue,
			"switch_statement": KindSwitch, "case_statement": KindSwitchCase,
			"call_expression": KindCall, "assignment_expression": KindAssign,
			"init_declarator": KindAssign, "binary_expression": KindOther,
			"function_definition": KindFunctionDef, "parameter_declaration": KindParam,
			"compound_statement": KindBlock, "identifier": KindIdentifier,
		},
		CPP: {
			"if_statement": KindIf, "while_statement": KindWhile, "for_statement": KindFor,
			"for_range_loop": KindFor, "return_statement": KindReturn,
			"break_statement": KindBreak, "continue_statement": KindContinue,
			"switch_statement": KindSwitch, "case_statement": KindSwitchCase,
			"call_expression": KindCall, "assignment_expression": KindAssign,
			"init_declarator": KindAssign, "binary_expression": KindOther,
			"function_definition": KindFunctionDef, "parameter_declaration": KindParam,
			"try_statement": KindTry, "catch_clause": KindCatch,
			"compound_statement": KindBlock, "identifier": KindIdentifier,
		},
		Rust: {
			"if_expression": KindIf, "while_expression": KindWhile,
			"loop_expression": KindWhile, "for_expression": KindFor,
			"return_expression": KindReturn, "break_expression": KindBreak,
			"continue_expression": KindContinue,
			"match_expression": KindSwitch, "match_arm": KindSwitchCase,
			"call_expression": KindCall, "assignment_expression": KindAssign,
			"let_declaration": KindAssign, "binary_expression": KindOther,
			"function_item": KindFunctionDef, "parameters": KindParam,
			"block": KindBlock, "identifier": KindIdentifier,
		},
		PHP: {
			"if_statement": KindIf, "while_statement": KindWhile, "for_statement": KindFor,
			"foreach_statement": KindFor, "return_statement": KindReturn,
			"break_statement": KindBreak, "continue_statement": KindContinue,
			"switch_statement": KindSwitch, "case_statement": KindSwitchCase,
			"function_call_expression": KindCall, "assignment_expression": KindAssign,
			"binary_expression":   KindOther,
			"function_definition": KindFunctionDef, "method_declaration": KindFunctionDef,
			"simple_parameter": KindParam,
			"try_statement": KindTry, "catch_clause": KindCatch,
			"compound_statement": KindBlock, "name": KindIdentifier,
		},
		Ruby: {
			"if": KindIf, "while": KindWhile, "for": KindFor,
			"return": KindReturn, "break": KindBreak, "next": KindContinue,
			"case": KindSwitch, "when": KindSwitchCase,
			"call": KindCall, "method_call": KindCall, "assignment": KindAssign,
			"binary": KindOther, "method": KindFunctionDef, "method_parameters": KindParam,
			"begin": KindTry, "rescue": KindCatch,
			"body_statement": KindBlock, "identifier": KindIdentifier,
		},
	}
}

// Classify maps a raw grammar node-type string to its NodeKind for the
// given Language. Unrecognized node types classify as KindOther.
func Classify(l Language, nodeType string) NodeKind {
	dispatchOnce.Do(buildDispatch)
	if table, ok := dispatchByLang[l]; ok {
		if k, ok := table[nodeType]; ok {
			return k
		}
	}
	return KindOther
}

// binaryNodeType is the raw grammar node type each language uses for a
// two-operand operator expression (arithmetic, comparison, and logical
// alike). It is the only node type ClassifyNode probes for an "operator"
// field, since every other KindOther node type has no logical-operator
// reading to refine.
var binaryNodeType = map[Language]string{
	Go:         "binary_expression",
	Python:     "boolean_operator",
	JavaScript: "binary_expression",
	Java:       "binary_expression",
	C:          "binary_expression",
	CPP:        "binary_expression",
	Rust:       "binary_expression",
	PHP:        "binary_expression",
	Ruby:       "binary",
}

// ClassifyNode is Classify plus one refinement: when the node-type lookup
// alone comes back KindOther and the node is the language's binary-operator
// node, it reads the node's "operator" field text to tell `&&`/`and` and
// `||`/`or` apart from every other binary operator. Everything else
// (arithmetic, comparisons, string concatenation) still classifies as
// KindOther, same as Classify.
func ClassifyNode(l Language, node *sitter.Node, source []byte) NodeKind {
	kind := Classify(l, node.Type())
	if kind != KindOther {
		return kind
	}
	if binaryNodeType[l] != node.Type() {
		return kind
	}
	op := node.ChildByFieldName("operator")
	if op == nil {
		return kind
	}
	start, end := op.StartByte(), op.EndByte()
	if start > end || int(end) > len(source) {
		return kind
	}
	switch string(source[start:end]) {
	case "&&", "and":
		return KindLogicalAnd
	case "||", "or":
		return KindLogicalOr
	}
	return kind
}
