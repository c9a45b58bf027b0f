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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kraklabs/nyx/internal/errors"
	"github.com/kraklabs/nyx/internal/output"
	"github.com/kraklabs/nyx/internal/ui"
	"github.com/kraklabs/nyx/pkg/model"
	"github.com/kraklabs/nyx/pkg/storage"
)

// runList executes 'nyx list': enumerates every project_id the index
// tracks. -v additionally prints each project's finding count by severity.
func runList(args []string, globals GlobalFlags, logger *slog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Print finding counts by severity for each project")
	dataDir := fs.String("data-dir", "", "Index database directory (default: platform default)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nyx list [-v]\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUser)
	}

	idx, err := storage.Open(storage.Config{DataDir: *dataDir})
	if err != nil {
		errors.FatalError(errors.NewIndexError("cannot open index", err.Error(), "", err), globals.JSON)
	}
	defer idx.Close()

	ctx := context.Background()
	projects, err := idx.Projects(ctx)
	if err != nil {
		errors.FatalError(errors.NewIndexError("cannot list projects", err.Error(), "", err), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(projects)
		return
	}

	if len(projects) == 0 {
		ui.Info("no projects indexed yet")
		return
	}

	for _, p := range projects {
		fmt.Printf("%s  %s\n", ui.Bold.Sprint(p.ProjectID), ui.DimText(p.RootPath))
		if *verbose {
			counts := severityCounts(ctx, idx, p.ProjectID)
			fmt.Printf("  Critical: %-4d High: %-4d Medium: %-4d Low: %-4d\n",
				counts[model.SeverityCritical], counts[model.SeverityHigh],
				counts[model.SeverityMedium], counts[model.SeverityLow])
		}
	}
}

// severityCounts queries the findings table directly via RawQuery - the
// teacher's own "operational introspection" escape hatch (backend.go) - for
// the per-severity breakdown the typed Index interface doesn't expose.
func severityCounts(ctx context.Context, idx *storage.SQLiteIndex, projectID string) map[model.Severity]int {
	counts := make(map[model.Severity]int)
	res, err := idx.RawQuery(ctx,
		`SELECT severity, COUNT(*) FROM findings WHERE project_id = ? GROUP BY severity`, projectID)
	if err != nil {
		return counts
	}
	for _, row := range res.Rows {
		if len(row) != 2 {
			continue
		}
		sev := toInt(row[0])
		n := toInt(row[1])
		counts[model.Severity(sev)] = n
	}
	return counts
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
