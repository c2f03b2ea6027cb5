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

// Package bodylimit rejects request bodies larger than a configured size
// with 413 Request Entity Too Large.
//
//	handler = bodylimit.New(bodylimit.WithMaxSize(2 << 20))(handler)
//
// A declared Content-Length over the limit is refused before the handler
// runs. Bodies of unknown length are wrapped so that reading past the
// limit fails with an error matching [ErrBodyTooLarge].
package bodylimit

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	rerrors "rivaas.dev/mvc/errors"
)

// DefaultMaxSize is the limit applied when none is configured.
const DefaultMaxSize int64 = 2 << 20

// ErrBodyTooLarge reports a request body over the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// Handler writes the response for a rejected request.
type Handler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures the middleware.
type Option func(*config)

type config struct {
	maxSize   int64
	skipPaths map[string]bool
	prefixes  []string
	handler   Handler
	formatter rerrors.Formatter
}

// WithMaxSize sets the limit in bytes. Values below 1 keep the default.
func WithMaxSize(size int64) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.maxSize = size
		}
	}
}

// WithSkipPaths exempts exact paths, such as upload endpoints.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.skipPaths[p] = true
		}
	}
}

// WithSkipPrefix exempts every path under the given prefixes.
func WithSkipPrefix(prefixes ...string) Option {
	return func(cfg *config) {
		cfg.prefixes = append(cfg.prefixes, prefixes...)
	}
}

// WithHandler replaces the default problem-details response.
func WithHandler(h Handler) Option {
	return func(cfg *config) {
		cfg.handler = h
	}
}

// WithFormatter sets the formatter of the default response.
func WithFormatter(f rerrors.Formatter) Option {
	return func(cfg *config) {
		if f != nil {
			cfg.formatter = f
		}
	}
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		maxSize:   DefaultMaxSize,
		skipPaths: make(map[string]bool),
		formatter: rerrors.NewRFC9457(""),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.handler == nil {
		cfg.handler = func(w http.ResponseWriter, r *http.Request, err error) {
			_ = rerrors.Write(w, cfg.formatter.Format(r, rerrors.WithStatus(err, http.StatusRequestEntityTooLarge)))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody || cfg.skipped(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > cfg.maxSize {
				cfg.handler(w, r, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrBodyTooLarge, r.ContentLength, cfg.maxSize))
				return
			}

			r.Body = &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, cfg.maxSize), limit: cfg.maxSize}
			next.ServeHTTP(w, r)
		})
	}
}

func (cfg *config) skipped(path string) bool {
	if cfg.skipPaths[path] {
		return true
	}
	for _, prefix := range cfg.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// limitedBody translates *http.MaxBytesError into ErrBodyTooLarge so
// handlers can map it to 413 through the error formatter.
type limitedBody struct {
	io.ReadCloser
	limit int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return n, rerrors.WithStatus(fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, b.limit), http.StatusRequestEntityTooLarge)
	}

	return n, err
}
