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
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kraklabs/nyx/pkg/model"
)

// renderCSV writes one row per finding. No third-party CSV writer appears
// anywhere in the retrieval pack, so this format uses encoding/csv directly
// - see DESIGN.md.
func renderCSV(w io.Writer, findings []model.Finding) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"file", "line", "column", "severity", "rule", "message", "snippet"}); err != nil {
		return err
	}
	for _, f := range findings {
		row := []string{
			f.FilePath,
			fmt.Sprintf("%d", f.Line),
			fmt.Sprintf("%d", f.Column),
			f.Severity.String(),
			f.RuleID,
			f.Message,
			f.Snippet,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
