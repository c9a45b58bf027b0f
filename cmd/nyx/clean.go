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
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/nyx/internal/errors"
	"github.com/kraklabs/nyx/internal/ui"
	"github.com/kraklabs/nyx/pkg/storage"
)

// runClean executes 'nyx clean {PROJECT | --all}': purges one project's
// (or every project's) rows from the index, mirroring the teacher's
// reset.go confirmation-then-delete flow - skipped non-interactively when
// --yes is passed.
func runClean(args []string, globals GlobalFlags, logger *slog.Logger) {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	all := fs.Bool("all", false, "Purge every indexed project")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	dataDir := fs.String("data-dir", "", "Index database directory (default: platform default)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nyx clean {PROJECT | --all} [--yes]

Purges a project's (or every project's) indexed files and findings.
This cannot be undone.
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUser)
	}

	positional := fs.Args()
	if !*all && len(positional) == 0 {
		errors.FatalError(errors.NewUserError(
			"missing PROJECT argument",
			"clean requires either a project id or --all",
			"Run 'nyx list' to see known project ids.",
		), globals.JSON)
	}

	idx, err := storage.Open(storage.Config{DataDir: *dataDir})
	if err != nil {
		errors.FatalError(errors.NewIndexError("cannot open index", err.Error(), "", err), globals.JSON)
	}
	defer idx.Close()

	ctx := context.Background()
	var targets []string
	if *all {
		projects, err := idx.Projects(ctx)
		if err != nil {
			errors.FatalError(errors.NewIndexError("cannot list projects", err.Error(), "", err), globals.JSON)
		}
		for _, p := range projects {
			targets = append(targets, p.ProjectID)
		}
	} else {
		targets = []string{positional[0]}
	}

	if len(targets) == 0 {
		ui.Info("no projects to clean")
		return
	}

	if !*yes && !confirmClean(targets) {
		ui.Info("aborted")
		return
	}

	for _, projectID := range targets {
		if err := idx.Purge(ctx, projectID); err != nil {
			errors.FatalError(errors.NewIndexError(fmt.Sprintf("cannot purge %s", projectID), err.Error(), "", err), globals.JSON)
		}
		ui.Success(fmt.Sprintf("purged %s", projectID))
	}
}

func confirmClean(targets []string) bool {
	fmt.Printf("This will permanently delete indexed data for: %s\n", strings.Join(targets, ", "))
	fmt.Print("Continue? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
