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

import "testing"

func TestNewProgressConfigDisabledWhenJSON(t *testing.T) {
	cfg := NewProgressConfig(GlobalFlags{JSON: true})
	if cfg.Enabled {
		t.Error("progress must be disabled when --json is set")
	}
}

func TestNewProgressConfigDisabledWithoutTTY(t *testing.T) {
	// Test binaries never attach stderr to a TTY, so Enabled should always
	// be false here regardless of globals.
	cfg := NewProgressConfig(GlobalFlags{})
	if cfg.Enabled {
		t.Error("progress must be disabled when stderr is not a TTY")
	}
}

func TestNewProgressBarNilWhenDisabled(t *testing.T) {
	cfg := ProgressConfig{Enabled: false}
	if bar := NewProgressBar(cfg, 10, "test"); bar != nil {
		t.Error("NewProgressBar must return nil when progress is disabled")
	}
}

func TestNewSpinnerNilWhenDisabled(t *testing.T) {
	cfg := ProgressConfig{Enabled: false}
	if spinner := NewSpinner(cfg, "test"); spinner != nil {
		t.Error("NewSpinner must return nil when progress is disabled")
	}
}
