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

package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	rerrors "rivaas.dev/mvc/errors"
)

// ErrPanic wraps recovered panic values.
var ErrPanic = errors.New("panic recovered")

// Handler writes the response for a recovered panic.
type Handler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	handler    Handler
	formatter  rerrors.Formatter
	stackTrace bool
	stackSize  int
}

// WithLogger sets the logger panics are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithoutLogging disables panic logging.
func WithoutLogging() Option {
	return func(c *config) {
		c.logger = nil
	}
}

// WithHandler replaces the default problem-details response.
func WithHandler(h Handler) Option {
	return func(c *config) {
		c.handler = h
	}
}

// WithFormatter sets the formatter of the default response.
func WithFormatter(f rerrors.Formatter) Option {
	return func(c *config) {
		c.formatter = f
	}
}

// WithStackTrace controls whether the stack is logged. It is by default.
func WithStackTrace(enabled bool) Option {
	return func(c *config) {
		c.stackTrace = enabled
	}
}

// WithStackSize bounds the logged stack in bytes.
func WithStackSize(size int) Option {
	return func(c *config) {
		c.stackSize = size
	}
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		logger:     slog.Default(),
		formatter:  rerrors.NewRFC9457(""),
		stackTrace: true,
		stackSize:  4 << 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.handler == nil {
		cfg.handler = func(w http.ResponseWriter, r *http.Request, err error) {
			_ = rerrors.Write(w, cfg.formatter.Format(r, rerrors.WithStatus(err, http.StatusInternalServerError)))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				cfg.recovered(w, r, rec)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func (c *config) recovered(w http.ResponseWriter, r *http.Request, rec any) {
	var err error
	if e, ok := rec.(error); ok {
		err = fmt.Errorf("%w: %w", ErrPanic, e)
	} else {
		err = fmt.Errorf("%w: %v", ErrPanic, rec)
	}

	span := trace.SpanFromContext(r.Context())
	span.RecordError(err, trace.WithStackTrace(c.stackTrace))
	span.SetStatus(codes.Error, err.Error())

	if c.logger != nil {
		attrs := []any{
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		}
		if c.stackTrace {
			buf := make([]byte, c.stackSize)
			buf = buf[:runtime.Stack(buf, false)]
			attrs = append(attrs, "stack", string(buf))
		}
		c.logger.ErrorContext(r.Context(), "panic recovered", attrs...)
	}

	c.handler(w, r, err)
}
