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
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignoreSet holds the compiled exclusion patterns the walker consults, in
// the order spec.md's filter list requires: configured excludes first, then
// VCS-ignore, then the global ignore file.
type ignoreSet struct {
	dirGlobs  []string
	fileGlobs []string
	extGlobs  []string
}

func newIgnoreSet(cfg resolved) (*ignoreSet, error) {
	s := &ignoreSet{
		dirGlobs:  append([]string{}, cfg.ExcludedDirectories...),
		fileGlobs: append([]string{}, cfg.ExcludedFiles...),
		extGlobs:  append([]string{}, cfg.ExcludedExtensions...),
	}

	if cfg.ReadVCSIgnore {
		if cfg.RequireGitToReadVCSIgnore {
			if _, err := os.Stat(filepath.Join(cfg.RootPath, ".git")); err != nil {
				return s, nil
			}
		}
		patterns, err := readGitignoreFiles(cfg.RootPath)
		if err != nil {
			return nil, err
		}
		s.fileGlobs = append(s.fileGlobs, patterns...)
	}

	if cfg.ReadGlobalIgnore {
		patterns, err := readGlobalIgnoreFile()
		if err != nil {
			return nil, err
		}
		s.fileGlobs = append(s.fileGlobs, patterns...)
	}

	return s, nil
}

// readGitignoreFiles walks root collecting every .gitignore it finds and
// compiles each non-comment, non-blank line into a doublestar pattern
// anchored at the .gitignore's own directory.
func readGitignoreFiles(root string) ([]string, error) {
	var patterns []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Base(path) != ".gitignore" {
			return nil
		}
		dir, relErr := filepath.Rel(root, filepath.Dir(path))
		if relErr != nil {
			return nil
		}
		lines, readErr := readIgnoreLines(path)
		if readErr != nil {
			return nil
		}
		for _, line := range lines {
			patterns = append(patterns, anchorGitignorePattern(dir, line))
		}
		return nil
	})
	return patterns, err
}

// readGlobalIgnoreFile reads the platform global ignore file
// (~/.config/nyx/ignore, or os.UserConfigDir()/nyx/ignore), if present.
func readGlobalIgnoreFile() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, nil
	}
	path := filepath.Join(configDir, "nyx", "ignore")
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	lines, err := readIgnoreLines(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = anchorGitignorePattern("", line)
	}
	return out, nil
}

func readIgnoreLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// anchorGitignorePattern turns a .gitignore line into a doublestar glob
// relative to root: a pattern with no slash, or only a trailing one,
// matches at any depth under dir; a leading or inner slash anchors it to
// dir itself.
func anchorGitignorePattern(dir, pattern string) string {
	anchored := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	if !anchored && !strings.Contains(strings.TrimSuffix(pattern, "/"), "/") {
		pattern = "**/" + pattern
	}
	if dir == "" || dir == "." {
		return pattern
	}
	return filepath.ToSlash(filepath.Join(dir, pattern))
}

// matchAny reports whether relPath (slash-separated, relative to RootPath)
// matches any glob in globs.
func matchAny(relPath string, globs []string) bool {
	for _, g := range globs {
		if g == "" {
			continue
		}
		if ok, err := doublestar.Match(g, relPath); err == nil && ok {
			return true
		}
		// A pattern ending in /** should also match the directory itself.
		if ok, err := doublestar.Match(strings.TrimSuffix(g, "/**"), relPath); err == nil && ok {
			return true
		}
	}
	return false
}
