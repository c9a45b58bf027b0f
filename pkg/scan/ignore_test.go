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

package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatchAny(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		globs []string
		want  bool
	}{
		{"doublestar any depth", "a/b/c/foo.go", []string{"**/*.go"}, true},
		{"doublestar dir prefix", "node_modules/pkg/index.js", []string{"node_modules/**"}, true},
		{"doublestar dir exact", "node_modules", []string{"node_modules/**"}, true},
		{"no match", "src/main.go", []string{"vendor/**"}, false},
		{"exact file match", "foo.go", []string{"foo.go"}, true},
		{"star extension", "foo.go", []string{"*.go"}, true},
		{"star extension miss", "foo.txt", []string{"*.go"}, false},
		{"empty glob ignored", "foo.go", []string{""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchAny(tt.path, tt.globs); got != tt.want {
				t.Errorf("matchAny(%q, %v) = %v, want %v", tt.path, tt.globs, got, tt.want)
			}
		})
	}
}

func TestAnchorGitignorePattern(t *testing.T) {
	tests := []struct {
		dir, pattern, want string
	}{
		{".", "*.log", "**/*.log"},
		{"", "*.log", "**/*.log"},
		{"sub", "*.log", "sub/**/*.log"},
		{".", "build/", "**/build/"},
		{"sub", "/anchored", "sub/anchored"},
	}
	for _, tt := range tests {
		if got := anchorGitignorePattern(tt.dir, tt.pattern); got != tt.want {
			t.Errorf("anchorGitignorePattern(%q, %q) = %q, want %q", tt.dir, tt.pattern, got, tt.want)
		}
	}
}

func TestExtensionExcluded(t *testing.T) {
	excluded := []string{"min.js", ".map"}
	if !extensionExcluded("dist/bundle.min.js", excluded) {
		t.Error("expected bundle.min.js to be excluded")
	}
	if !extensionExcluded("dist/bundle.js.map", excluded) {
		t.Error("expected bundle.js.map to be excluded")
	}
	if extensionExcluded("src/main.go", excluded) {
		t.Error("did not expect main.go to be excluded")
	}
}

func TestNewIgnoreSetReadsGitignore(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n# comment\n\nbuild/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := resolved{Config: Config{RootPath: root, ReadVCSIgnore: true}}
	set, err := newIgnoreSet(cfg)
	if err != nil {
		t.Fatalf("newIgnoreSet: %v", err)
	}
	if !matchAny("debug.log", set.fileGlobs) {
		t.Error("expected debug.log to match a pattern sourced from .gitignore")
	}
}

func TestNewIgnoreSetSkipsVCSWithoutGitDir(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := resolved{Config: Config{RootPath: root, ReadVCSIgnore: true, RequireGitToReadVCSIgnore: true}}
	set, err := newIgnoreSet(cfg)
	if err != nil {
		t.Fatalf("newIgnoreSet: %v", err)
	}
	if matchAny("debug.log", set.fileGlobs) {
		t.Error("expected .gitignore to be skipped without a .git directory present")
	}
}
