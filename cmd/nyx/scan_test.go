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
	"testing"

	"github.com/kraklabs/nyx/pkg/model"
)

func TestExitCodeForRespectsFloor(t *testing.T) {
	findings := []model.Finding{
		{Severity: model.SeverityLow},
		{Severity: model.SeverityMedium},
	}
	if got := exitCodeFor(findings, model.SeverityHigh); got != 0 {
		t.Errorf("exitCodeFor with floor High = %d, want 0 (nothing meets the floor)", got)
	}
	if got := exitCodeFor(findings, model.SeverityMedium); got != 1 {
		t.Errorf("exitCodeFor with floor Medium = %d, want 1", got)
	}
}

func TestExitCodeForNoFindingsIsClean(t *testing.T) {
	if got := exitCodeFor(nil, model.SeverityLow); got != 0 {
		t.Errorf("exitCodeFor with no findings = %d, want 0", got)
	}
}
