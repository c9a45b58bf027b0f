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
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSkipDirs are directories never worth a filesystem watch: churn-heavy
// or not part of the source tree.
var watchSkipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, ".nyx": true,
}

const watchDebounce = 500 * time.Millisecond

// Watch runs an initial full scan, then watches cfg.RootPath for changes
// and re-runs the pipeline after each debounced burst of filesystem events,
// calling onResult with every run's Result (including the first). It blocks
// until ctx is canceled or the watcher fails to start.
func (p *Pipeline) Watch(ctx context.Context, onResult func(*Result)) error {
	result, err := p.Run(ctx)
	if err != nil {
		return err
	}
	onResult(result)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, p.cfg.RootPath); err != nil {
		return err
	}

	var debounceTimer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldIgnoreWatchEvent(event) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(watchDebounce)
			timerCh = debounceTimer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("scan.watch.error", "err", err)
		case <-timerCh:
			timerCh = nil
			result, err := p.Run(ctx)
			if err != nil {
				p.logger.Warn("scan.watch.rescan_failed", "err", err)
				continue
			}
			onResult(result)
		}
	}
}

func shouldIgnoreWatchEvent(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	return strings.HasPrefix(base, ".") && base != "."
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if watchSkipDirs[base] || (strings.HasPrefix(base, ".") && base != filepath.Base(root)) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
