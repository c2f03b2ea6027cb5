// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"rivaas.dev/mvc/routing"
)

// reloadDebounce coalesces the burst of events editors emit per save.
const reloadDebounce = 100 * time.Millisecond

// Reload rebuilds the route table: from the routes file when the app has
// one, otherwise from the declarations it was built with. On failure the
// current table keeps serving. OnReload hooks run either way.
func (a *App) Reload(ctx context.Context) error {
	err := a.reload()
	if err != nil {
		a.logLifecycleEvent(ctx, slog.LevelError, "reload failed", "error", err)
	} else {
		a.logLifecycleEvent(ctx, slog.LevelInfo, "reloaded",
			"routes", len(a.router.Routes()),
			"helpers", a.router.Helpers().Len(),
		)
	}
	a.executeReloadHooks(ctx, err)

	return err
}

func (a *App) reload() error {
	var draw func(*routing.Map)
	if a.routesFile != "" {
		var err error
		if draw, err = a.drawRoutes(); err != nil {
			return err
		}
	}
	if err := a.router.Reload(draw); err != nil {
		return err
	}
	if a.renderer != nil {
		a.renderer.Reset()
	}

	return nil
}

// Watch reloads the routes whenever the routes file changes, until ctx is
// canceled. It watches the file's directory so editors that replace the
// file on save are followed.
func (a *App) Watch(ctx context.Context) error {
	if a.routesFile == "" {
		return fmt.Errorf("app: no routes file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(a.routesFile)
	if err = watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}
	a.logLifecycleEvent(ctx, slog.LevelDebug, "watching routes file", "path", target)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() { _ = a.Reload(ctx) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logLifecycleEvent(ctx, slog.LevelWarn, "routes watcher error", "error", err)
		}
	}
}

// watchReloadSignal reloads on SIGHUP until ctx is done or the returned
// function is called.
func (a *App) watchReloadSignal(ctx context.Context) func() {
	sig, stop := setupReloadSignal()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-sig:
				_ = a.Reload(ctx)
			}
		}
	}()

	return func() {
		stop()
		close(done)
	}
}
