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

package pattern

import (
	"github.com/kraklabs/nyx/pkg/lang"
	"github.com/kraklabs/nyx/pkg/model"
)

// DefaultCatalog returns Nyx's built-in pattern set. These are syntactic,
// single-node rules (no data flow); source-to-sink flows are the taint
// engine's job (pkg/taint), not the pattern engine's.
func DefaultCatalog() []Pattern {
	return []Pattern{
		{
			ID: "go-weak-hash-md5", Language: lang.Go, Severity: model.SeverityMedium,
			Title:       "Use of MD5",
			Description: "MD5 is cryptographically broken; use crypto/sha256 or better",
			Query:       `(selector_expression field: (field_identifier) @fn (#match? @fn "^Sum(128)?$")) @call`,
			Capture:     "call",
		},
		{
			ID: "go-unsafe-pointer", Language: lang.Go, Severity: model.SeverityLow,
			Title:       "Use of unsafe.Pointer",
			Description: "unsafe.Pointer bypasses Go's type and memory safety",
			Query:       `(selector_expression operand: (identifier) @pkg field: (field_identifier) @fn (#eq? @pkg "unsafe") (#eq? @fn "Pointer")) @call`,
			Capture:     "call",
		},
		{
			ID: "py-eval-exec", Language: lang.Python, Severity: model.SeverityHigh,
			Title:       "Use of eval/exec",
			Description: "eval/exec on unvalidated input allows arbitrary code execution",
			Query:       `(call function: (identifier) @fn (#match? @fn "^(eval|exec)$")) @call`,
			Capture:     "call",
		},
		{
			ID: "py-assert-removed-in-optimized", Language: lang.Python, Severity: model.SeverityLow,
			Title:       "assert used for validation",
			Description: "assert statements are stripped under python -O; do not use them for security checks",
			Query:       `(assert_statement) @stmt`,
			Capture:     "stmt",
		},
		{
			ID: "js-eval", Language: lang.JavaScript, Severity: model.SeverityHigh,
			Title:       "Use of eval",
			Description: "eval on unvalidated input allows arbitrary code execution",
			Query:       `(call_expression function: (identifier) @fn (#eq? @fn "eval")) @call`,
			Capture:     "call",
		},
		{
			ID: "js-new-function", Language: lang.JavaScript, Severity: model.SeverityMedium,
			Title:       "Dynamic Function construction",
			Description: "new Function(str) compiles and runs a string as code, same risk class as eval",
			Query:       `(new_expression constructor: (identifier) @ctor (#eq? @ctor "Function")) @call`,
			Capture:     "call",
		},
		{
			ID: "ts-eval", Language: lang.TypeScript, Severity: model.SeverityHigh,
			Title:       "Use of eval",
			Description: "eval on unvalidated input allows arbitrary code execution",
			Query:       `(call_expression function: (identifier) @fn (#eq? @fn "eval")) @call`,
			Capture:     "call",
		},
		{
			ID: "java-weak-hash-md5", Language: lang.Java, Severity: model.SeverityMedium,
			Title:       "Use of MD5",
			Description: "MD5 is cryptographically broken; use SHA-256 or better",
			Query:       `(method_invocation name: (identifier) @fn arguments: (argument_list (string_literal) @alg) (#eq? @fn "getInstance") (#match? @alg "\"MD5\"")) @call`,
			Capture:     "call",
		},
		{
			ID: "java-runtime-exec", Language: lang.Java, Severity: model.SeverityHigh,
			Title:       "Runtime.exec call",
			Description: "Runtime.exec spawns a shell process; validate arguments to avoid command injection",
			Query:       `(method_invocation object: (identifier) @obj name: (identifier) @fn (#eq? @obj "Runtime") (#eq? @fn "exec")) @call`,
			Capture:     "call",
		},
		{
			ID: "c-strcpy", Language: lang.C, Severity: model.SeverityHigh,
			Title:       "Use of strcpy",
			Description: "strcpy performs no bounds checking; prefer strncpy or a bounded copy",
			Query:       `(call_expression function: (identifier) @fn (#eq? @fn "strcpy")) @call`,
			Capture:     "call",
		},
		{
			ID: "c-gets", Language: lang.C, Severity: model.SeverityCritical,
			Title:       "Use of gets",
			Description: "gets cannot bound its input and is a classic buffer-overflow vector",
			Query:       `(call_expression function: (identifier) @fn (#eq? @fn "gets")) @call`,
			Capture:     "call",
		},
		{
			ID: "cpp-strcpy", Language: lang.CPP, Severity: model.SeverityHigh,
			Title:       "Use of strcpy",
			Description: "strcpy performs no bounds checking; prefer strncpy, std::string, or std::copy",
			Query:       `(call_expression function: (identifier) @fn (#eq? @fn "strcpy")) @call`,
			Capture:     "call",
		},
		{
			ID: "rust-unsafe-block", Language: lang.Rust, Severity: model.SeverityLow,
			Title:       "unsafe block",
			Description: "unsafe blocks opt out of Rust's memory-safety guarantees; review invariants by hand",
			Query:       `(unsafe_block) @block`,
			Capture:     "block",
		},
		{
			ID: "rust-unwrap", Language: lang.Rust, Severity: model.SeverityLow,
			Title:       "use of unwrap()",
			Description: "unwrap() panics on Err/None; prefer explicit error handling at a trust boundary",
			Query:       `(call_expression function: (field_expression field: (field_identifier) @fn) (#eq? @fn "unwrap")) @call`,
			Capture:     "call",
		},
		{
			ID: "php-eval", Language: lang.PHP, Severity: model.SeverityHigh,
			Title:       "Use of eval",
			Description: "eval on unvalidated input allows arbitrary code execution",
			Query:       `(function_call_expression function: (name) @fn (#eq? @fn "eval")) @call`,
			Capture:     "call",
		},
		{
			ID: "ruby-eval", Language: lang.Ruby, Severity: model.SeverityHigh,
			Title:       "Use of eval",
			Description: "eval on unvalidated input allows arbitrary code execution",
			Query:       `(call method: (identifier) @fn (#eq? @fn "eval")) @call`,
			Capture:     "call",
		},
	}
}
