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

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kraklabs/nyx/pkg/model"
)

func sampleFindings() []model.Finding {
	return []model.Finding{
		{RuleID: "go-sql-injection", Severity: model.SeverityCritical, FilePath: "pkg/db/query.go", Line: 42, Column: 5, Message: "unsanitized input reaches Query"},
		{RuleID: "go-weak-hash", Severity: model.SeverityLow, FilePath: "pkg/hash/md5.go", Line: 3, Column: 1, Message: "MD5 used for password hashing"},
	}
}

func TestFormatValid(t *testing.T) {
	for _, f := range []Format{FormatConsole, FormatJSON, FormatCSV, FormatSARIF, ""} {
		if f != "" && !f.Valid() {
			t.Errorf("Format(%q).Valid() = false, want true", f)
		}
	}
	if Format("xml").Valid() {
		t.Error("Format(\"xml\").Valid() = true, want false")
	}
}

func TestRenderJSONDefaultIsBareArray(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleFindings(), nil, Options{Format: FormatJSON}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var findings []model.Finding
	if err := json.Unmarshal(buf.Bytes(), &findings); err != nil {
		t.Fatalf("expected a bare JSON array, got %s: %v", buf.String(), err)
	}
	if len(findings) != 2 {
		t.Errorf("got %d findings, want 2", len(findings))
	}
}

func TestRenderJSONWithDiagnosticsIsWrapped(t *testing.T) {
	var buf bytes.Buffer
	diags := []model.Diagnostic{{FilePath: "big.bin", Reason: "too_large"}}
	opts := Options{Format: FormatJSON, IncludeDiagnostics: true}
	if err := Render(&buf, sampleFindings(), diags, opts); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var wrapper jsonWrapper
	if err := json.Unmarshal(buf.Bytes(), &wrapper); err != nil {
		t.Fatalf("expected a {findings,diagnostics} object, got %s: %v", buf.String(), err)
	}
	if len(wrapper.Findings) != 2 || len(wrapper.Diagnostics) != 1 {
		t.Errorf("got %d findings / %d diagnostics, want 2/1", len(wrapper.Findings), len(wrapper.Diagnostics))
	}
}

func TestRenderJSONEmptyFindingsIsEmptyArrayNotNull(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, nil, nil, Options{Format: FormatJSON}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("got %q, want []", buf.String())
	}
}

func TestRenderCSVHasHeaderAndOneRowPerFinding(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleFindings(), nil, Options{Format: FormatCSV}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (header + 2 findings)", len(rows))
	}
	wantHeader := []string{"file", "line", "column", "severity", "rule", "message", "snippet"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
	if rows[1][0] != "pkg/db/query.go" || rows[1][3] != "Critical" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestRenderSARIFStructure(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleFindings(), nil, Options{Format: FormatSARIF}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var doc sarifLog
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("parse sarif: %v", err)
	}
	if doc.Version != sarifVersion {
		t.Errorf("Version = %q, want %q", doc.Version, sarifVersion)
	}
	if len(doc.Runs) != 1 || len(doc.Runs[0].Results) != 2 {
		t.Fatalf("unexpected run/result shape: %+v", doc)
	}
	if doc.Runs[0].Results[0].Level != "error" {
		t.Errorf("Critical finding should map to SARIF level \"error\", got %q", doc.Runs[0].Results[0].Level)
	}
	if doc.Runs[0].Results[1].Level != "note" {
		t.Errorf("Low finding should map to SARIF level \"note\", got %q", doc.Runs[0].Results[1].Level)
	}
}

func TestRenderUnknownFormatErrors(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, nil, nil, Options{Format: Format("xml")})
	if err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestRenderConsoleGroupsByFile(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleFindings(), nil, Options{Format: FormatConsole, NoColor: true}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "pkg/db/query.go") || !strings.Contains(out, "pkg/hash/md5.go") {
		t.Errorf("expected both file paths in console output, got %q", out)
	}
}
