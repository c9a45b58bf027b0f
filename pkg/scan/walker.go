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
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/nyx/pkg/lang"
)

// walkFile is one eligible path the walker hands to the work queue.
type walkFile struct {
	relPath  string
	fullPath string
	size     int64
	language lang.Language
}

// walker performs the directory traversal described in spec.md's ordered
// filter-decision list, feeding eligible files to out. It is the pipeline's
// sole producer on the work queue; out is closed when the walk completes or
// ctx is canceled.
type walker struct {
	cfg     resolved
	ignores *ignoreSet
	logger  *slog.Logger
	rootDev uint64
	haveDev bool

	skipReasons map[string]int
}

func newWalker(cfg resolved, logger *slog.Logger) (*walker, error) {
	ignores, err := newIgnoreSet(cfg)
	if err != nil {
		return nil, err
	}
	w := &walker{cfg: cfg, ignores: ignores, logger: logger, skipReasons: map[string]int{}}
	if cfg.OneFileSystem {
		if dev, ok := deviceOf(cfg.RootPath); ok {
			w.rootDev, w.haveDev = dev, true
		}
	}
	return w, nil
}

// walk traverses cfg.RootPath, sending each eligible file to out. It returns
// the per-reason skip counts accumulated during the walk (for diagnostics),
// or an error if the walk itself could not proceed (e.g. RootPath missing).
func (w *walker) walk(ctx context.Context, out chan<- walkFile) (map[string]int, error) {
	defer close(out)

	err := filepath.WalkDir(w.cfg.RootPath, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			if path == w.cfg.RootPath {
				return err
			}
			w.logger.Warn("scan.walk.error", "path", path, "err", err)
			return nil
		}
		if path == w.cfg.RootPath {
			return nil
		}

		relPath, relErr := filepath.Rel(w.cfg.RootPath, path)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)
		name := d.Name()

		if !w.cfg.ScanHiddenFiles && isHidden(name) {
			w.skipReasons["hidden"]++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if matchAny(relPath, w.ignores.dirGlobs) || matchAny(relPath, w.ignores.fileGlobs) {
				w.skipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			if w.cfg.OneFileSystem && w.haveDev {
				if dev, ok := deviceOf(path); ok && dev != w.rootDev {
					w.skipReasons["other_device"]++
					return filepath.SkipDir
				}
			}
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			w.skipReasons["unreadable"]++
			return nil
		}

		if info.Mode()&fs.ModeSymlink != 0 {
			if !w.cfg.FollowSymlinks {
				w.skipReasons["symlink"]++
				return nil
			}
			resolved, statErr := filepath.EvalSymlinks(path)
			if statErr != nil {
				w.skipReasons["broken_symlink"]++
				return nil
			}
			if resolvedInfo, statErr := os.Stat(resolved); statErr == nil {
				info = resolvedInfo
			}
		}

		if matchAny(relPath, w.ignores.fileGlobs) {
			w.skipReasons["excluded"]++
			return nil
		}

		if info.Size() > w.cfg.maxFileSizeBytes {
			w.skipReasons["too_large"]++
			return nil
		}

		language := lang.FromExtension(relPath)
		if language == lang.Unknown {
			w.skipReasons["unsupported_extension"]++
			return nil
		}
		if matchAny(relPath, w.ignores.extGlobs) || extensionExcluded(relPath, w.cfg.ExcludedExtensions) {
			w.skipReasons["excluded_extension"]++
			return nil
		}

		select {
		case out <- walkFile{relPath: relPath, fullPath: path, size: info.Size(), language: language}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled {
		return w.skipReasons, err
	}
	return w.skipReasons, nil
}

func isHidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}

func extensionExcluded(relPath string, excluded []string) bool {
	name := strings.ToLower(filepath.Base(relPath))
	for _, e := range excluded {
		ext := strings.ToLower(strings.TrimPrefix(e, "."))
		if ext != "" && strings.HasSuffix(name, "."+ext) {
			return true
		}
	}
	return false
}
