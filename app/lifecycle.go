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
	"sync"
)

// Hooks holds the lifecycle callbacks of an App.
type Hooks struct {
	onStart    []func(context.Context) error // Sequential, stops on first error
	onReady    []func()                      // Async
	onShutdown []func(context.Context)       // LIFO order
	onStop     []func()                      // Best effort
	onReload   []func(context.Context, error)
	mu         sync.Mutex
}

// errStarted is the panic value of hook registration after [App.Start].
const errStarted = "app: cannot register hooks after the server started"

// OnStart registers a hook run before the server listens. Hooks run in
// order and the first error aborts startup.
//
//	a.OnStart(func(ctx context.Context) error {
//		return db.PingContext(ctx)
//	})
func (a *App) OnStart(fn func(context.Context) error) {
	a.register(func(h *Hooks) { h.onStart = append(h.onStart, fn) })
}

// OnReady registers a hook run, on its own goroutine, once the server
// is listening.
func (a *App) OnReady(fn func()) {
	a.register(func(h *Hooks) { h.onReady = append(h.onReady, fn) })
}

// OnShutdown registers a hook run during graceful shutdown with the
// shutdown deadline. Hooks run in reverse registration order.
func (a *App) OnShutdown(fn func(context.Context)) {
	a.register(func(h *Hooks) { h.onShutdown = append(h.onShutdown, fn) })
}

// OnStop registers a hook run after the server stopped. Panics are logged
// and swallowed.
func (a *App) OnStop(fn func()) {
	a.register(func(h *Hooks) { h.onStop = append(h.onStop, fn) })
}

// OnReload registers a hook run after every route reload, with the reload
// error or nil. Unlike the other hooks it may be registered at any time.
func (a *App) OnReload(fn func(context.Context, error)) {
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onReload = append(a.hooks.onReload, fn)
}

func (a *App) register(add func(*Hooks)) {
	if a.started.Load() {
		panic(errStarted)
	}
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	add(a.hooks)
}

func snapshot[T any](h *Hooks, list *[]T) []T {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]T(nil), *list...)
}

func (a *App) executeStartHooks(ctx context.Context) error {
	for i, hook := range snapshot(a.hooks, &a.hooks.onStart) {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("OnStart hook %d failed: %w", i, err)
		}
	}

	return nil
}

func (a *App) executeReadyHooks() {
	for _, hook := range snapshot(a.hooks, &a.hooks.onReady) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					a.logLifecycleEvent(context.Background(), slog.LevelError, "OnReady hook panic", "error", r)
				}
			}()
			hook()
		}()
	}
}

func (a *App) executeShutdownHooks(ctx context.Context) {
	hooks := snapshot(a.hooks, &a.hooks.onShutdown)
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i](ctx)
	}
}

func (a *App) executeStopHooks() {
	for _, hook := range snapshot(a.hooks, &a.hooks.onStop) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.logLifecycleEvent(context.Background(), slog.LevelWarn, "OnStop hook panic", "error", r)
				}
			}()
			hook()
		}()
	}
}

func (a *App) executeReloadHooks(ctx context.Context, err error) {
	for _, hook := range snapshot(a.hooks, &a.hooks.onReload) {
		hook(ctx, err)
	}
}
