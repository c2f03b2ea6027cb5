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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// logLifecycleEvent logs a lifecycle event using the app logger.
func (a *App) logLifecycleEvent(ctx context.Context, level slog.Level, msg string, args ...any) {
	if a.logger.Enabled(ctx, level) {
		a.logger.Log(ctx, level, msg, args...)
	}
}

func (a *App) flushStartupLogs() {
	_ = a.logging.FlushBuffer()
}

func (a *App) protocol() string {
	if a.settings.Server.H2C {
		return "h2c"
	}

	return "HTTP"
}

func (a *App) startObservability(ctx context.Context) error {
	if err := a.tracing.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tracing: %w", err)
	}

	return nil
}

func (a *App) shutdownObservability(ctx context.Context) {
	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logLifecycleEvent(ctx, slog.LevelWarn, "metrics shutdown failed", "error", err)
		}
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logLifecycleEvent(ctx, slog.LevelWarn, "tracing shutdown failed", "error", err)
	}
}

// Start listens on the configured server address and serves until ctx is
// canceled, then shuts down gracefully. Signal handling is left to the
// caller:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer cancel()
//	if err := a.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
func (a *App) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", a.settings.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.settings.Server.Address, err)
	}

	return a.Serve(ctx, ln)
}

// Serve is like [App.Start] on an existing listener, which it closes.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if !a.started.CompareAndSwap(false, true) {
		_ = ln.Close()
		return errors.New("app: already started")
	}

	if err := a.startObservability(ctx); err != nil {
		_ = ln.Close()
		return err
	}
	if err := a.executeStartHooks(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("startup failed: %w", err)
	}

	handler := a.handler
	if a.settings.Server.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{IdleTimeout: a.settings.Server.IdleTimeout})
	}
	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           handler,
		ReadTimeout:       a.settings.Server.ReadTimeout,
		ReadHeaderTimeout: a.settings.Server.ReadTimeout,
		WriteTimeout:      a.settings.Server.WriteTimeout,
		IdleTimeout:       a.settings.Server.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopReload := a.watchReloadSignal(ctx)
	defer stopReload()
	if a.settings.HotReload && a.routesFile != "" {
		go func() {
			if err := a.Watch(ctx); err != nil {
				a.logLifecycleEvent(ctx, slog.LevelError, "routes watcher stopped", "error", err)
			}
		}()
	}

	return a.runServer(ctx, server, func() error { return server.Serve(ln) })
}

// runServer serves until ctx is canceled or the server fails, then runs
// the shutdown sequence: OnShutdown hooks, server drain, exporters flush,
// OnStop hooks.
func (a *App) runServer(ctx context.Context, server *http.Server, serve func() error) error {
	protocol := a.protocol()
	serverErr := make(chan error, 1)
	serverReady := make(chan struct{})
	go func() {
		if a.banner {
			a.printStartupBanner(server.Addr, protocol)
		}
		a.flushStartupLogs()
		a.logLifecycleEvent(ctx, slog.LevelInfo, "server starting",
			"address", server.Addr,
			"environment", a.settings.Environment,
			"protocol", protocol,
			"routes", len(a.router.Routes()),
		)
		close(serverReady)

		if err := serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("%s server failed: %w", protocol, err)
		}
	}()

	<-serverReady
	a.executeReadyHooks()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		a.logLifecycleEvent(ctx, slog.LevelInfo, "server shutting down", "protocol", protocol, "reason", ctx.Err())
	}

	// ctx is already canceled; the shutdown deadline starts now.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.settings.Server.ShutdownTimeout)
	defer cancel()

	a.executeShutdownHooks(shutdownCtx)

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server forced to shutdown: %w", protocol, err)
	}

	a.shutdownObservability(shutdownCtx)
	a.executeStopHooks()
	a.logLifecycleEvent(shutdownCtx, slog.LevelInfo, "server exited", "protocol", protocol)

	return nil
}
