// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the Nyx CLI.
//
// It defines UserError, a type that carries structured error information
// about what went wrong, why, and how to fix it, plus the four exit codes
// the scan pipeline's error taxonomy collapses onto: success, findings
// present, user error, and rule/index/fatal error.
//
//	err := errors.NewRuleError(
//	    "Malformed pattern bundle",
//	    "rule go-sql-injection: missing query expression",
//	    "Check the rule bundle for syntax errors",
//	    underlyingErr,
//	)
//	errors.FatalError(err, false)
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes, matching the scan pipeline's error taxonomy one-to-one.
const (
	// ExitClean indicates a successful scan with no findings at or above min_severity.
	ExitClean = 0

	// ExitFindings indicates a successful scan that produced at least one finding.
	ExitFindings = 1

	// ExitUser indicates a user error: invalid config value, unknown flag, missing path.
	ExitUser = 2

	// ExitFatal indicates a rule load failure, index corruption, or other fatal error.
	ExitFatal = 3
)

// UserError represents an error with structured context for end users.
//
// It carries three levels of information - Message (what went wrong),
// Cause (why), and Fix (how to resolve it) - plus the exit code the CLI
// should use and, optionally, a wrapped underlying error.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As compatibility.
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates an error for invalid config, bad flags, or a missing
// path, with exit code ExitUser.
func NewUserError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitUser}
}

// NewRuleError creates an error for a malformed pattern bundle detected at
// load time, with exit code ExitFatal.
func NewRuleError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitFatal, Err: err}
}

// NewIndexError creates an error for index corruption (not transient
// lock contention, which is retried rather than surfaced), with exit
// code ExitFatal.
func NewIndexError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitFatal, Err: err}
}

// NewFatalError creates a generic fatal error (panics caught at the worker
// boundary that exceed per-file recovery, pipeline supervisor shutdown
// failures), with exit code ExitFatal.
func NewFatalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitFatal, Err: err}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display. Color
// output respects NO_COLOR and can be disabled explicitly with noColor.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON is the JSON-serializable form of a UserError.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to its JSON-serializable form.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints err and exits with its exit code. For a UserError it
// uses Format() or ToJSON() depending on jsonOutput; for any other error
// it prints a bare message and exits ExitFatal. A nil err returns
// immediately; any other err never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitFatal)
}
