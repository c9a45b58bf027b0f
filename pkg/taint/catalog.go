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
	"strings"

	"github.com/kraklabs/nyx/pkg/lang"
	"github.com/kraklabs/nyx/pkg/model"
)

// ruleMeta pairs a taint finding's rule identity with its reported
// severity, so a single catalog entry answers both ClassifyCall's label
// question and the reporter's rule-id/severity question.
type ruleMeta struct {
	ruleID   string
	severity model.Severity
}

// Catalog classifies call targets and receiver types into taint labels for
// one Language. It implements cfg.LabelCatalog.
type Catalog struct {
	language language

	// byCall matches on the bare call-target identifier (function name or
	// method name with no receiver qualification).
	byCall map[string]model.Label
	// byReceiverCall matches "receiverType.callTarget" exactly, for calls
	// that are only meaningful on a specific receiver (os/exec.Cmd.Run vs.
	// some unrelated type's Run method).
	byReceiverCall map[string]model.Label

	meta map[string]ruleMeta

	// externalParams names parameter identifiers this language's web/CLI
	// entrypoint conventions treat as externally controlled.
	externalParams map[string]bool
}

type language = lang.Language

// ClassifyCall implements cfg.LabelCatalog.
func (c *Catalog) ClassifyCall(callTarget, receiverType string) model.Label {
	if callTarget == "" {
		return 0
	}
	if receiverType != "" {
		if l, ok := c.byReceiverCall[receiverType+"."+callTarget]; ok {
			return l
		}
	}
	return c.byCall[callTarget]
}

// ExternallyControlledParam implements cfg.LabelCatalog.
func (c *Catalog) ExternallyControlledParam(paramName string) bool {
	return c.externalParams[strings.ToLower(paramName)]
}

// ruleFor returns the rule identity registered for a call, trying the
// receiver-qualified key before the bare call-target key, mirroring
// ClassifyCall's own lookup order.
func (c *Catalog) ruleFor(callTarget, receiverType string) ruleMeta {
	if receiverType != "" {
		if m, ok := c.meta[receiverType+"."+callTarget]; ok {
			return m
		}
	}
	if m, ok := c.meta[callTarget]; ok {
		return m
	}
	return ruleMeta{ruleID: "taint-flow", severity: model.SeverityMedium}
}

// NewCatalog builds the built-in source/sink/sanitizer catalog for l. Only
// the eight CFG-backed languages (see lang.Language.HasCFGBackend) have
// non-empty catalogs; calling this for a pattern-only language returns an
// empty Catalog that classifies nothing.
func NewCatalog(l lang.Language) *Catalog {
	c := &Catalog{
		language:       l,
		byCall:         map[string]model.Label{},
		byReceiverCall: map[string]model.Label{},
		meta:           map[string]ruleMeta{},
		externalParams: map[string]bool{"req": true, "r": true, "request": true},
	}

	switch l {
	case lang.Go:
		c.registerCall("Getenv", model.LabelSourceEnv, "go-taint-env-source", model.SeverityLow)
		c.registerReceiverCall("exec.Cmd", "Run", model.LabelSinkProcessSpawn, "go-taint-exec-spawn", model.SeverityHigh)
		c.registerReceiverCall("exec.Cmd", "Start", model.LabelSinkProcessSpawn, "go-taint-exec-spawn", model.SeverityHigh)
		c.registerCall("Command", model.LabelSinkProcessSpawn, "go-taint-exec-spawn", model.SeverityHigh)
		c.registerReceiverCall("exec.Cmd", "Output", model.LabelSinkProcessSpawn, "go-taint-exec-spawn", model.SeverityHigh)
		c.registerReceiverCall("sql.DB", "Query", model.LabelSinkSQLExec, "go-taint-sql-exec", model.SeverityHigh)
		c.registerReceiverCall("sql.DB", "QueryRow", model.LabelSinkSQLExec, "go-taint-sql-exec", model.SeverityHigh)
		c.registerReceiverCall("sql.DB", "Exec", model.LabelSinkSQLExec, "go-taint-sql-exec", model.SeverityHigh)
		c.registerCall("WriteFile", model.LabelSinkFileWrite, "go-taint-file-write", model.SeverityMedium)
		c.registerCall("ShellEscape", model.LabelSanitizerShellEscape, "", 0)
		c.registerCall("Clean", model.LabelSanitizerPathClean, "", 0)

	case lang.Python:
		c.registerCall("getenv", model.LabelSourceEnv, "py-taint-env-source", model.SeverityLow)
		c.registerCall("system", model.LabelSinkProcessSpawn, "py-taint-os-system", model.SeverityHigh)
		c.registerCall("popen", model.LabelSinkProcessSpawn, "py-taint-os-popen", model.SeverityHigh)
		c.registerCall("call", model.LabelSinkProcessSpawn, "py-taint-subprocess-call", model.SeverityHigh)
		c.registerCall("execute", model.LabelSinkSQLExec, "py-taint-sql-exec", model.SeverityHigh)
		c.registerCall("eval", model.LabelSinkCodeExec, "py-taint-eval", model.SeverityHigh)
		c.registerCall("exec", model.LabelSinkCodeExec, "py-taint-exec", model.SeverityHigh)
		c.registerCall("quote", model.LabelSanitizerShellEscape, "", 0)
		c.registerCall("escape", model.LabelSanitizerHTMLEscape, "", 0)

	case lang.JavaScript, lang.TypeScript:
		c.registerCall("exec", model.LabelSinkProcessSpawn, "js-taint-child-process-exec", model.SeverityHigh)
		c.registerCall("execSync", model.LabelSinkProcessSpawn, "js-taint-child-process-exec", model.SeverityHigh)
		c.registerCall("spawn", model.LabelSinkProcessSpawn, "js-taint-child-process-spawn", model.SeverityHigh)
		c.registerCall("query", model.LabelSinkSQLExec, "js-taint-sql-exec", model.SeverityHigh)
		c.registerCall("eval", model.LabelSinkCodeExec, "js-taint-eval", model.SeverityHigh)
		c.registerCall("escapeHtml", model.LabelSanitizerHTMLEscape, "", 0)

	case lang.Java:
		c.registerCall("getenv", model.LabelSourceEnv, "java-taint-env-source", model.SeverityLow)
		c.registerReceiverCall("Runtime", "exec", model.LabelSinkProcessSpawn, "java-taint-runtime-exec", model.SeverityHigh)
		c.registerCall("executeQuery", model.LabelSinkSQLExec, "java-taint-sql-exec", model.SeverityHigh)
		c.registerCall("executeUpdate", model.LabelSinkSQLExec, "java-taint-sql-exec", model.SeverityHigh)
		c.registerCall("escapeHtml4", model.LabelSanitizerHTMLEscape, "", 0)

	case lang.C, lang.CPP:
		c.registerCall("getenv", model.LabelSourceEnv, "c-taint-env-source", model.SeverityLow)
		c.registerCall("system", model.LabelSinkProcessSpawn, "c-taint-system", model.SeverityCritical)
		c.registerCall("execve", model.LabelSinkProcessSpawn, "c-taint-exec", model.SeverityHigh)
		c.registerCall("popen", model.LabelSinkProcessSpawn, "c-taint-popen", model.SeverityHigh)

	case lang.Rust:
		c.registerCall("var", model.LabelSourceEnv, "rust-taint-env-source", model.SeverityLow)
		c.registerReceiverCall("Command", "spawn", model.LabelSinkProcessSpawn, "rust-taint-command-spawn", model.SeverityHigh)
		c.registerReceiverCall("Command", "output", model.LabelSinkProcessSpawn, "rust-taint-command-spawn", model.SeverityHigh)
	}

	return c
}

func (c *Catalog) registerCall(name string, label model.Label, ruleID string, severity model.Severity) {
	if label == 0 {
		return
	}
	c.byCall[name] |= label
	if ruleID != "" {
		c.meta[name] = ruleMeta{ruleID: ruleID, severity: severity}
	}
}

func (c *Catalog) registerReceiverCall(receiverType, name string, label model.Label, ruleID string, severity model.Severity) {
	if label == 0 {
		return
	}
	key := receiverType + "." + name
	c.byReceiverCall[key] |= label
	if ruleID != "" {
		c.meta[key] = ruleMeta{ruleID: ruleID, severity: severity}
	}
}
