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

package cfg

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/nyx/pkg/lang"
	"github.com/kraklabs/nyx/pkg/model"
)

// loopFrame tracks the header and post-exit block of one enclosing loop, so
// break/continue can resolve to the nearest enclosing loop without a parent
// pointer walk back up the syntax tree.
type loopFrame struct {
	header  int
	postExit int
}

// builder holds the mutable state threaded through one Build call. A fresh
// builder is used per function; nothing here is shared across calls, so no
// synchronization is needed even though many workers build CFGs concurrently.
type builder struct {
	source   []byte
	language lang.Language
	catalog  LabelCatalog

	cfg       *CFG
	loopStack []loopFrame
}

// Build constructs the intra-procedural CFG for a single function, method,
// or closure syntax node. functionNode must classify as lang.KindFunctionDef
// for the given language; its body is walked to produce the graph.
func Build(functionNode *sitter.Node, source []byte, language lang.Language, catalog LabelCatalog) (*CFG, error) {
	b := &builder{source: source, language: language, catalog: catalog}
	b.cfg = &CFG{Entry: 0, Exit: 1}
	b.addBlock() // entry, index 0
	b.addBlock() // exit, index 1

	body := functionBody(functionNode, language)
	current := b.cfg.Entry

	b.extractParams(functionNode, current)

	if body != nil {
		current = b.walkBlock(body, current)
	}
	if current >= 0 {
		b.addEdge(current, b.cfg.Exit, EdgeFallthrough)
	}

	return b.cfg, nil
}

func (b *builder) addBlock() int {
	idx := len(b.cfg.Blocks)
	b.cfg.Blocks = append(b.cfg.Blocks, &Block{Index: idx})
	return idx
}

func (b *builder) addEdge(from, to int, kind EdgeKind) {
	if from < 0 || to < 0 {
		return
	}
	b.cfg.Edges = append(b.cfg.Edges, Edge{From: from, To: to, Kind: kind})
}

func (b *builder) appendFact(blockIdx int, fact StatementFact) {
	blk := b.cfg.Blocks[blockIdx]
	blk.Statements = append(blk.Statements, fact)
}

// functionBody returns the node holding the statement list of a function
// definition. Every CFG-backed grammar names this field "body"; where it
// doesn't, we fall back to the last named child, which is the statement
// block in every one of the eight grammars we target.
func functionBody(fn *sitter.Node, language lang.Language) *sitter.Node {
	if body := fn.ChildByFieldName("body"); body != nil {
		return body
	}
	if fn.NamedChildCount() == 0 {
		return nil
	}
	return fn.NamedChild(int(fn.NamedChildCount()) - 1)
}

func (b *builder) extractParams(fn *sitter.Node, entry int) {
	paramsNode := fn.ChildByFieldName("parameters")
	if paramsNode == nil {
		return
	}
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		p := paramsNode.NamedChild(i)
		name := identifierText(p, b.source)
		if name == "" {
			continue
		}
		var labels model.Label
		if b.catalog != nil && b.catalog.ExternallyControlledParam(name) {
			labels = model.LabelSourceUserInput
		}
		b.appendFact(entry, StatementFact{
			Kind:   FactParam,
			Defs:   []string{name},
			Labels: labels,
			Line:   int(p.StartPoint().Row) + 1,
			Column: int(p.StartPoint().Column) + 1,
		})
	}
}

// walkBlock walks a statement-list node's named children in order, folding
// straight-line statements into the current block and branching out to
// dedicated handlers for control constructs. It returns the index of the
// block control falls through to after the whole list, or -1 if every path
// out of the list is divergent (return/break/continue exhausted it).
func (b *builder) walkBlock(block *sitter.Node, current int) int {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		if current < 0 {
			// Everything after a divergent statement is unreachable; it is
			// skipped without being walked, so it contributes no blocks,
			// edges or facts.
			continue
		}
		stmt := block.NamedChild(i)
		current = b.walkStatement(stmt, current)
	}
	return current
}

func (b *builder) walkStatement(stmt *sitter.Node, current int) int {
	kind := lang.ClassifyNode(b.language, stmt, b.source)
	switch kind {
	case lang.KindIf:
		return b.walkIf(stmt, current)
	case lang.KindWhile:
		return b.walkWhile(stmt, current)
	case lang.KindFor:
		return b.walkFor(stmt, current)
	case lang.KindSwitch:
		return b.walkSwitch(stmt, current)
	case lang.KindBreak:
		return b.walkBreak(stmt, current)
	case lang.KindContinue:
		return b.walkContinue(stmt, current)
	case lang.KindReturn:
		return b.walkReturn(stmt, current)
	case lang.KindTry:
		return b.walkTry(stmt, current)
	case lang.KindLogicalAnd, lang.KindLogicalOr:
		return b.walkLogical(stmt, current)
	case lang.KindFunctionDef:
		// Nested/anonymous function bodies are an opaque statement at this
		// scope: they get their own CFG when the caller recurses into them,
		// not a facts entry in the enclosing one.
		return current
	default:
		b.appendFact(current, b.extractFact(stmt, kind))
		return current
	}
}

// walkLogical handles a bare `a && b` / `a || b` expression statement
// (valid wherever side effects live in the operands, e.g. `check(x) &&
// commit(x)`). It reuses wireCondition to split short-circuit evaluation
// into blocks, then folds both outcomes back into one merge block since an
// expression statement has no true/false successor of its own.
func (b *builder) walkLogical(stmt *sitter.Node, current int) int {
	merge := b.addBlock()
	b.wireCondition(stmt, current, merge, merge, func(n *sitter.Node) StatementFact {
		return b.extractFact(n, lang.Classify(b.language, n.Type()))
	})
	return merge
}

func (b *builder) walkIf(stmt *sitter.Node, current int) int {
	cond := stmt.ChildByFieldName("condition")
	thenNode := stmt.ChildByFieldName("consequence")
	elseNode := stmt.ChildByFieldName("alternative")
	if thenNode == nil {
		thenNode = b.fallbackChild(stmt, lang.KindBlock)
	}

	thenEntry := b.addBlock()
	haveElse := elseNode != nil
	elseEntry := -1
	if haveElse {
		elseEntry = b.addBlock()
	}
	merge := b.addBlock()

	falseTarget := merge
	if haveElse {
		falseTarget = elseEntry
	}
	if cond != nil {
		b.wireCondition(cond, current, thenEntry, falseTarget, b.extractBranchTest)
	} else {
		b.addEdge(current, thenEntry, EdgeTrueBranch)
		b.addEdge(current, falseTarget, EdgeFalseBranch)
	}

	thenExit := thenEntry
	if thenNode != nil {
		thenExit = b.walkBranchBody(thenNode, thenEntry)
	}
	if thenExit >= 0 {
		b.addEdge(thenExit, merge, EdgeFallthrough)
	}

	elseExit := elseEntry
	if haveElse {
		elseExit = b.walkBranchBody(elseNode, elseEntry)
		if elseExit >= 0 {
			b.addEdge(elseExit, merge, EdgeFallthrough)
		}
	}

	if thenExit < 0 && haveElse && elseExit < 0 {
		return -1
	}
	return merge
}

// walkBranchBody handles both a braced block and a single bare statement,
// since several grammars allow `if (c) stmt;` without a block node.
func (b *builder) walkBranchBody(node *sitter.Node, entry int) int {
	if lang.Classify(b.language, node.Type()) == lang.KindBlock {
		return b.walkBlock(node, entry)
	}
	return b.walkStatement(node, entry)
}

func (b *builder) walkWhile(stmt *sitter.Node, current int) int {
	header := b.addBlock()
	b.addEdge(current, header, EdgeFallthrough)

	bodyNode := stmt.ChildByFieldName("body")
	postExit := b.addBlock()

	b.loopStack = append(b.loopStack, loopFrame{header: header, postExit: postExit})
	bodyEntry := b.addBlock()

	cond := stmt.ChildByFieldName("condition")
	if cond != nil {
		b.wireCondition(cond, header, bodyEntry, postExit, b.extractBranchTest)
	} else {
		b.addEdge(header, bodyEntry, EdgeTrueBranch)
		b.addEdge(header, postExit, EdgeFalseBranch)
	}

	bodyExit := bodyEntry
	if bodyNode != nil {
		bodyExit = b.walkBranchBody(bodyNode, bodyEntry)
	}
	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	if bodyExit >= 0 {
		b.addEdge(bodyExit, header, EdgeBackEdge)
	}
	return postExit
}

// walkFor desugars init -> condition-header -> body -> step -> back-edge to
// the header, per the construction-rules table. Grammars that omit any of
// init/condition/step (PHP's foreach, Go's range-for) simply leave that
// field nil and the stage is skipped.
func (b *builder) walkFor(stmt *sitter.Node, current int) int {
	initNode := stmt.ChildByFieldName("initializer")
	if initNode != nil {
		b.appendFact(current, b.extractFact(initNode, lang.KindAssign))
	}

	header := b.addBlock()
	b.addEdge(current, header, EdgeFallthrough)

	postExit := b.addBlock()
	stepBlock := b.addBlock()
	stepNode := stmt.ChildByFieldName("update")
	if stepNode != nil {
		b.appendFact(stepBlock, b.extractFact(stepNode, lang.KindAssign))
	}

	b.loopStack = append(b.loopStack, loopFrame{header: stepBlock, postExit: postExit})
	bodyNode := stmt.ChildByFieldName("body")
	bodyEntry := b.addBlock()

	cond := stmt.ChildByFieldName("condition")
	if cond != nil {
		b.wireCondition(cond, header, bodyEntry, postExit, b.extractBranchTest)
	} else {
		b.addEdge(header, bodyEntry, EdgeTrueBranch)
		b.addEdge(header, postExit, EdgeFalseBranch)
	}

	bodyExit := bodyEntry
	if bodyNode != nil {
		bodyExit = b.walkBranchBody(bodyNode, bodyEntry)
	}
	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	if bodyExit >= 0 {
		b.addEdge(bodyExit, stepBlock, EdgeFallthrough)
	}
	b.addEdge(stepBlock, header, EdgeBackEdge)
	return postExit
}

func (b *builder) walkSwitch(stmt *sitter.Node, current int) int {
	merge := b.addBlock()
	any := false
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		arm := stmt.NamedChild(i)
		if lang.Classify(b.language, arm.Type()) != lang.KindSwitchCase {
			continue
		}
		any = true
		armEntry := b.addBlock()
		b.addEdge(current, armEntry, EdgeTrueBranch)
		armExit := b.walkBlock(arm, armEntry)
		if armExit >= 0 {
			b.addEdge(armExit, merge, EdgeFallthrough)
		}
	}
	if !any {
		b.addEdge(current, merge, EdgeFallthrough)
	}
	return merge
}

func (b *builder) walkBreak(stmt *sitter.Node, current int) int {
	if len(b.loopStack) == 0 {
		return current
	}
	frame := b.loopStack[len(b.loopStack)-1]
	b.addEdge(current, frame.postExit, EdgeFallthrough)
	return -1
}

func (b *builder) walkContinue(stmt *sitter.Node, current int) int {
	if len(b.loopStack) == 0 {
		return current
	}
	frame := b.loopStack[len(b.loopStack)-1]
	b.addEdge(current, frame.header, EdgeBackEdge)
	return -1
}

func (b *builder) walkReturn(stmt *sitter.Node, current int) int {
	b.appendFact(current, b.extractFact(stmt, lang.KindReturn))
	b.addEdge(current, b.cfg.Exit, EdgeReturn)
	return -1
}

// walkTry attaches an exception edge from every statement in the try body
// to the catch block's entry, per the construction-rules table, then joins
// both paths at a merge block.
func (b *builder) walkTry(stmt *sitter.Node, current int) int {
	tryBody := stmt.ChildByFieldName("body")
	catchNode := b.fallbackChild(stmt, lang.KindCatch)

	catchEntry := b.addBlock()
	merge := b.addBlock()

	tryEntry := b.addBlock()
	b.addEdge(current, tryEntry, EdgeFallthrough)

	tryExit := tryEntry
	if tryBody != nil {
		for i := 0; i < int(tryBody.NamedChildCount()); i++ {
			s := tryBody.NamedChild(i)
			b.addEdge(tryExit, catchEntry, EdgeException)
			tryExit = b.walkStatement(s, tryExit)
			if tryExit < 0 {
				break
			}
		}
	}

	catchExit := catchEntry
	if catchNode != nil {
		catchExit = b.walkBranchBody(catchNode, catchEntry)
	}

	if tryExit >= 0 {
		b.addEdge(tryExit, merge, EdgeFallthrough)
	}
	if catchExit >= 0 {
		b.addEdge(catchExit, merge, EdgeFallthrough)
	}
	if tryExit < 0 && catchExit < 0 {
		return -1
	}
	return merge
}

// fallbackChild finds a named child classifying as want, for grammars that
// don't expose the construct via a named field.
func (b *builder) fallbackChild(stmt *sitter.Node, want lang.NodeKind) *sitter.Node {
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		c := stmt.NamedChild(i)
		if lang.Classify(b.language, c.Type()) == want {
			return c
		}
	}
	return nil
}

// extractFact builds a StatementFact for a straight-line statement: its
// defs/uses from identifier scanning, and its labels from the catalog when
// the statement is a call.
func (b *builder) extractFact(stmt *sitter.Node, kind lang.NodeKind) StatementFact {
	factKind := FactOther
	switch kind {
	case lang.KindAssign:
		factKind = FactAssign
	case lang.KindCall:
		factKind = FactCall
	case lang.KindReturn:
		factKind = FactReturn
	}

	fact := StatementFact{
		Kind:   factKind,
		Line:   int(stmt.StartPoint().Row) + 1,
		Column: int(stmt.StartPoint().Column) + 1,
	}

	if factKind == FactAssign {
		// Most grammars name the bound side "left" (Go's short_var_declaration,
		// JS's assignment_expression). Rust's let_declaration names it
		// "pattern" instead, since the left side is a pattern, not a plain
		// lvalue.
		lhs := stmt.ChildByFieldName("left")
		if lhs == nil {
			lhs = stmt.ChildByFieldName("pattern")
		}
		if lhs != nil {
			if name := identifierText(lhs, b.source); name != "" {
				fact.Defs = []string{name}
			}
		}
	}

	collectUses(stmt, b.source, &fact.Uses)

	callNode := findCallNode(stmt, b.language, b.source)
	if callNode != nil {
		target, receiver := callIdentifiers(callNode, b.language, b.source)
		fact.CallTarget = target
		fact.ReceiverType = receiver
		if fact.Kind == FactOther {
			fact.Kind = FactCall
		}
		if b.catalog != nil {
			fact.Labels = b.catalog.ClassifyCall(target, receiver)
		}
	}

	return fact
}

// extractBranchTest builds the path-insensitive fact for an if/while/for
// condition expression: recorded for its uses only, per
// "kind = branch_test: no state change".
func (b *builder) extractBranchTest(cond *sitter.Node) StatementFact {
	fact := StatementFact{
		Kind:   FactBranchTest,
		Line:   int(cond.StartPoint().Row) + 1,
		Column: int(cond.StartPoint().Column) + 1,
	}
	collectUses(cond, b.source, &fact.Uses)
	return fact
}

// wireCondition wires a (possibly compound) boolean expression between
// entry and its trueTarget/falseTarget blocks. A plain expression becomes
// one fact block with both edges; a top-level `a && b` / `a || b` recurses
// through splitLogical so the second operand only gets its own block on the
// non-short-circuiting path, per the CFG construction rule for logical
// operators. leafFact builds the StatementFact for each leaf operand: if/
// while/for conditions pass extractBranchTest, a bare logical expression
// statement passes extractFact so its operands still classify as calls.
func (b *builder) wireCondition(cond *sitter.Node, entry, trueTarget, falseTarget int, leafFact func(*sitter.Node) StatementFact) {
	switch lang.ClassifyNode(b.language, cond, b.source) {
	case lang.KindLogicalAnd:
		b.splitLogical(cond, entry, trueTarget, falseTarget, true, leafFact)
	case lang.KindLogicalOr:
		b.splitLogical(cond, entry, trueTarget, falseTarget, false, leafFact)
	default:
		b.appendFact(entry, leafFact(cond))
		b.addEdge(entry, trueTarget, EdgeTrueBranch)
		b.addEdge(entry, falseTarget, EdgeFalseBranch)
	}
}

// splitLogical evaluates a node's left operand in entry, then - on the
// non-short-circuiting outcome only (false for &&, true for ||) - evaluates
// the right operand in a fresh block before reaching trueTarget/falseTarget.
// Both operands recurse through wireCondition, so a chain like `a && b && c`
// unfolds into one block per operand.
func (b *builder) splitLogical(node *sitter.Node, entry, trueTarget, falseTarget int, isAnd bool, leafFact func(*sitter.Node) StatementFact) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil {
		b.appendFact(entry, leafFact(node))
		b.addEdge(entry, trueTarget, EdgeTrueBranch)
		b.addEdge(entry, falseTarget, EdgeFalseBranch)
		return
	}

	rhsEntry := b.addBlock()
	if isAnd {
		b.wireCondition(left, entry, rhsEntry, falseTarget, leafFact)
	} else {
		b.wireCondition(left, entry, trueTarget, rhsEntry, leafFact)
	}
	b.wireCondition(right, rhsEntry, trueTarget, falseTarget, leafFact)
}

// findCallNode returns the node itself if it classifies as a call, or
// searches its named children one level down (covers `x := f(y)` where the
// assignment wraps the call expression). The result passes through
// unwrapTransparent so a trailing `.unwrap()`/`.expect()` doesn't hide the
// call that actually produces the value.
func findCallNode(n *sitter.Node, language lang.Language, source []byte) *sitter.Node {
	if lang.Classify(language, n.Type()) == lang.KindCall {
		return unwrapTransparent(n, language, source)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if lang.Classify(language, c.Type()) == lang.KindCall {
			return unwrapTransparent(c, language, source)
		}
	}
	return nil
}

// unwrapTransparent sees through Rust's Result/Option-unwrapping combinators
// (`std::env::var("X").unwrap()`) so the fact attaches to the call that
// actually reads the source, not to the bare "unwrap"/"expect" call sitting
// on top of it. Scoped to Rust: no other target grammar has this idiom.
func unwrapTransparent(call *sitter.Node, language lang.Language, source []byte) *sitter.Node {
	if language != lang.Rust {
		return call
	}
	fn := call.ChildByFieldName("function")
	if fn == nil {
		fn = call.ChildByFieldName("method")
	}
	if fn == nil {
		return call
	}
	field := fn.ChildByFieldName("field")
	if field == nil {
		return call
	}
	switch nodeText(field, source) {
	case "unwrap", "expect":
	default:
		return call
	}
	for _, recvField := range []string{"operand", "object", "receiver", "value", "argument"} {
		if recv := fn.ChildByFieldName(recvField); recv != nil {
			if lang.Classify(language, recv.Type()) == lang.KindCall {
				return unwrapTransparent(recv, language, source)
			}
			return call
		}
	}
	return call
}

// callIdentifiers extracts the callee identifier and, when the call is a
// method invocation on a receiver, the receiver's lexeme (used as a stand-in
// for receiver type since static typing is unavailable from syntax alone).
func callIdentifiers(call *sitter.Node, language lang.Language, source []byte) (target, receiver string) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		fn = call.ChildByFieldName("method")
	}
	if fn == nil {
		return identifierText(call, source), ""
	}

	// A selector/member/field access (pkg.Call, obj.method, a.b.c) - field
	// names for the receiver half vary across grammars: Go's
	// selector_expression uses "operand", JS/TS/Java/PHP member access uses
	// "object", Python's attribute uses "object" too, Rust's field_expression
	// uses "value", and C++'s field_expression uses "argument".
	for _, recvField := range []string{"operand", "object", "receiver", "value", "argument"} {
		if recv := fn.ChildByFieldName(recvField); recv != nil {
			receiver = receiverTypeName(recv, language, source)
			break
		}
	}
	for _, nameField := range []string{"field", "property", "name", "attribute"} {
		if name := fn.ChildByFieldName(nameField); name != nil {
			target = nodeText(name, source)
			return
		}
	}
	target = nodeText(fn, source)
	return
}

// receiverTypeName turns a receiver expression into a type-like lexeme for
// catalog matching. Most receivers are already a bare variable (Go's "cmd"
// in cmd.Run()) and are used as-is. Rust's idiomatic chained-construction
// call (Command::new(u).spawn()) makes the receiver itself a call
// expression rather than a variable; in that case the type name is the
// last path segment of the constructor's callee (Command::new's "path" is
// the scoped_identifier Command, whose own "name" field is the bare
// identifier "Command").
func receiverTypeName(recv *sitter.Node, language lang.Language, source []byte) string {
	if lang.Classify(language, recv.Type()) == lang.KindCall {
		fn := recv.ChildByFieldName("function")
		if fn == nil {
			fn = recv.ChildByFieldName("method")
		}
		if fn != nil {
			if path := fn.ChildByFieldName("path"); path != nil {
				if name := path.ChildByFieldName("name"); name != nil {
					return nodeText(name, source)
				}
				return nodeText(path, source)
			}
		}
	}
	return nodeText(recv, source)
}

// collectUses walks n's subtree and appends every identifier lexeme found,
// stopping at a nested function-definition boundary per
// "rvalue identifier references reachable without a nested function
// boundary".
func collectUses(n *sitter.Node, source []byte, out *[]string) {
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "identifier" {
			*out = append(*out, nodeText(node, source))
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			// Stop at lambda/function-literal boundaries: their bodies get
			// their own fact extraction when Build recurses into them.
			if isAnyFunctionKind(child.Type()) {
				continue
			}
			walk(child)
		}
	}
	walk(n)
}

func isAnyFunctionKind(nodeType string) bool {
	switch nodeType {
	case "func_literal", "function", "arrow_function", "lambda":
		return true
	}
	return false
}

func identifierText(n *sitter.Node, source []byte) string {
	if n.Type() == "identifier" || n.Type() == "name" {
		return nodeText(n, source)
	}
	if name := n.ChildByFieldName("name"); name != nil {
		return nodeText(name, source)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "identifier" {
			return nodeText(c, source)
		}
	}
	return ""
}

func nodeText(n *sitter.Node, source []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(source) || start > end {
		return ""
	}
	return string(source[start:end])
}
