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

// Package requestid tags every request with an id, taken from the
// X-Request-ID header when the client sent one and generated otherwise.
//
// UUID v7 is the default generator; [WithULID] switches to the shorter,
// equally sortable ULID. The id is echoed in the response header and
// stored in the request context:
//
//	handler = requestid.New()(handler)
//	...
//	logger.Info("processing", "request_id", requestid.Get(r.Context()))
package requestid

import (
	"context"
	"crypto/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// DefaultHeader is the header the id is read from and written to.
const DefaultHeader = "X-Request-ID"

// maxClientIDLength bounds ids accepted from clients.
const maxClientIDLength = 128

type contextKey struct{}

// Option configures the middleware.
type Option func(*config)

type config struct {
	header        string
	generator     func() string
	allowClientID bool
}

// WithHeader changes the header name.
func WithHeader(name string) Option {
	return func(c *config) {
		c.header = name
	}
}

// WithULID generates ULIDs instead of UUID v7.
func WithULID() Option {
	return func(c *config) {
		c.generator = generateULID
	}
}

// WithGenerator sets a custom id generator.
func WithGenerator(fn func() string) Option {
	return func(c *config) {
		c.generator = fn
	}
}

// WithAllowClientID controls whether an incoming header is trusted. It is
// by default.
func WithAllowClientID(allow bool) Option {
	return func(c *config) {
		c.allowClientID = allow
	}
}

func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

var (
	ulidEntropy   = ulid.Monotonic(rand.Reader, 0)
	ulidEntropyMu sync.Mutex
)

func generateULID() string {
	ulidEntropyMu.Lock()
	defer ulidEntropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		header:        DefaultHeader,
		generator:     generateUUIDv7,
		allowClientID: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cfg.allowClientID {
				if v := r.Header.Get(cfg.header); len(v) <= maxClientIDLength {
					id = v
				}
			}
			if id == "" {
				id = cfg.generator()
			}

			w.Header().Set(cfg.header, id)
			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

// WithID returns ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Get returns the request id in ctx, or "".
func Get(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
