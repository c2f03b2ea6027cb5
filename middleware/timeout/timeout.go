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

// Package timeout bounds request processing time.
//
// The request context gets a deadline. Handlers run on their own goroutine
// against a buffered writer; once the deadline passes, the client
// receives 408 Request Timeout and later writes from the handler fail with
// [http.ErrHandlerTimeout]. Handlers should watch ctx.Done() to stop work.
//
//	handler = timeout.New(
//		timeout.WithDuration(5*time.Second),
//		timeout.WithSkipPrefix("/events"),
//	)(handler)
package timeout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	rerrors "rivaas.dev/mvc/errors"
)

// DefaultDuration is the deadline applied when none is configured.
const DefaultDuration = 30 * time.Second

// ErrTimeout reports a request that ran past its deadline.
var ErrTimeout = errors.New("request timed out")

// Handler writes the response for a timed out request.
type Handler func(w http.ResponseWriter, r *http.Request, timeout time.Duration)

// Option configures the middleware.
type Option func(*config)

type config struct {
	duration  time.Duration
	logger    *slog.Logger
	handler   Handler
	formatter rerrors.Formatter
	skipPaths map[string]bool
	prefixes  []string
	skip      func(*http.Request) bool
}

// WithDuration sets the deadline. Non-positive values keep the default.
func WithDuration(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.duration = d
		}
	}
}

// WithLogger sets the logger timeouts are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithoutLogging disables timeout logging.
func WithoutLogging() Option {
	return func(cfg *config) {
		cfg.logger = nil
	}
}

// WithHandler replaces the default problem-details response.
func WithHandler(h Handler) Option {
	return func(cfg *config) {
		cfg.handler = h
	}
}

func WithFormatter(f rerrors.Formatter) Option {
	return func(cfg *config) {
		if f != nil {
			cfg.formatter = f
		}
	}
}

// WithSkipPaths exempts exact paths.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.skipPaths[p] = true
		}
	}
}

// WithSkipPrefix exempts every path under the given prefixes, for example
// streaming endpoints.
func WithSkipPrefix(prefixes ...string) Option {
	return func(cfg *config) {
		cfg.prefixes = append(cfg.prefixes, prefixes...)
	}
}

// WithSkip exempts requests the function reports true for.
func WithSkip(fn func(*http.Request) bool) Option {
	return func(cfg *config) {
		cfg.skip = fn
	}
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		duration:  DefaultDuration,
		logger:    slog.Default(),
		formatter: rerrors.NewRFC9457(""),
		skipPaths: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.handler == nil {
		cfg.handler = func(w http.ResponseWriter, r *http.Request, d time.Duration) {
			err := rerrors.WithStatus(fmt.Errorf("%w after %s", ErrTimeout, d), http.StatusRequestTimeout)
			_ = rerrors.Write(w, cfg.formatter.Format(r, err))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skipped(r) {
				next.ServeHTTP(w, r)
				return
			}
			cfg.serve(next, w, r)
		})
	}
}

func (cfg *config) skipped(r *http.Request) bool {
	if cfg.skipPaths[r.URL.Path] || (cfg.skip != nil && cfg.skip(r)) {
		return true
	}
	for _, prefix := range cfg.prefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}

	return false
}

func (cfg *config) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), cfg.duration)
	defer cancel()
	r = r.WithContext(ctx)

	tw := &timeoutWriter{ctx: ctx, h: make(http.Header)}
	done := make(chan struct{})
	panicked := make(chan any, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				panicked <- p
			}
		}()
		next.ServeHTTP(tw, r)
		close(done)
	}()

	select {
	case p := <-panicked:
		panic(p)
	case <-done:
	case <-ctx.Done():
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()
	if err := ctx.Err(); err != nil {
		tw.timedOut = true
		if !errors.Is(err, context.DeadlineExceeded) {
			// Client went away; nobody is listening for a response.
			return
		}
		if cfg.logger != nil {
			cfg.logger.WarnContext(ctx, "request timed out",
				"method", r.Method,
				"path", r.URL.Path,
				"timeout", cfg.duration,
			)
		}
		cfg.handler(w, r, cfg.duration)
		return
	}

	maps.Copy(w.Header(), tw.h)
	if tw.code == 0 {
		tw.code = http.StatusOK
	}
	w.WriteHeader(tw.code)
	_, _ = w.Write(tw.buf.Bytes())
}

// timeoutWriter buffers the handler response until it completes.
type timeoutWriter struct {
	ctx      context.Context
	mu       sync.Mutex
	h        http.Header
	buf      bytes.Buffer
	code     int
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.h }

func (tw *timeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.ctx.Err() != nil {
		return 0, http.ErrHandlerTimeout
	}
	if tw.code == 0 {
		tw.code = http.StatusOK
	}

	return tw.buf.Write(p)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.code != 0 || tw.ctx.Err() != nil {
		return
	}
	tw.code = code
}
