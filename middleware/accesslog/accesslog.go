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

// Package accesslog logs one structured line per HTTP request.
//
//	handler = accesslog.New(
//		accesslog.WithLogger(logger),
//		accesslog.WithExcludePaths("/health", "/metrics"),
//		accesslog.WithSlowThreshold(500*time.Millisecond),
//	)(handler)
//
// Entries carry method, path, status, duration, bytes, client ip, user
// agent and, when the requestid middleware ran first, the request id.
// Server errors log at error level, client errors and slow requests at
// warn, the rest at info.
package accesslog

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"rivaas.dev/mvc/middleware/requestid"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger        *slog.Logger
	excludePaths  map[string]struct{}
	slowThreshold time.Duration
	errorsOnly    bool
}

// WithLogger sets the destination logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithExcludePaths skips the given paths.
func WithExcludePaths(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.excludePaths[p] = struct{}{}
		}
	}
}

// WithSlowThreshold logs requests slower than d at warn level with
// slow=true.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *config) {
		c.slowThreshold = d
	}
}

// WithErrorsOnly logs only responses with status 400 and above, and slow
// requests.
func WithErrorsOnly() Option {
	return func(c *config) {
		c.errorsOnly = true
	}
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		logger:       slog.Default(),
		excludePaths: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := cfg.excludePaths[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)
			cfg.log(r, rw, time.Since(start))
		})
	}
}

func (c *config) log(r *http.Request, rw *responseWriter, elapsed time.Duration) {
	status := rw.StatusCode()
	slow := c.slowThreshold > 0 && elapsed > c.slowThreshold
	if c.errorsOnly && status < http.StatusBadRequest && !slow {
		return
	}

	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest, slow:
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", elapsed),
		slog.Int("bytes", rw.size),
		slog.String("client_ip", clientIP(r)),
		slog.String("user_agent", r.UserAgent()),
	}
	if q := r.URL.RawQuery; q != "" {
		attrs = append(attrs, slog.String("query", q))
	}
	if id := requestid.Get(r.Context()); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if slow {
		attrs = append(attrs, slog.Bool("slow", true))
	}

	c.logger.LogAttrs(r.Context(), level, "http request", attrs...)
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}

type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *responseWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n

	return n, err
}

func (w *responseWriter) StatusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}

	return w.status
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
