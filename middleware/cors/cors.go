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

// Package cors answers cross-origin requests.
//
//	handler = cors.New(
//	    cors.WithAllowedOrigins("https://example.com"),
//	    cors.WithAllowCredentials(true),
//	)(handler)
//
// Preflight requests (OPTIONS with Access-Control-Request-Method) from an
// allowed origin are answered with 204 and never reach the handler. Requests
// from other origins pass through without CORS headers, leaving the browser
// to block them.
package cors

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	allowedOrigins   []string
	allowAllOrigins  bool
	allowOriginFunc  func(origin string) bool
	allowedMethods   []string
	allowedHeaders   []string
	exposedHeaders   []string
	allowCredentials bool
	maxAge           int
}

// WithAllowedOrigins sets the allowed origins. The origin "*" allows all.
func WithAllowedOrigins(origins ...string) Option {
	return func(cfg *config) {
		cfg.allowedOrigins = nil
		cfg.allowAllOrigins = false
		for _, o := range origins {
			if o == "*" {
				cfg.allowAllOrigins = true
				continue
			}
			cfg.allowedOrigins = append(cfg.allowedOrigins, o)
		}
	}
}

// WithAllowOriginFunc decides origins dynamically. It is consulted after
// the static list.
//
//	cors.WithAllowOriginFunc(func(origin string) bool {
//	    return strings.HasSuffix(origin, ".example.com")
//	})
func WithAllowOriginFunc(fn func(origin string) bool) Option {
	return func(cfg *config) {
		cfg.allowOriginFunc = fn
	}
}

// WithAllowedMethods sets the methods announced to preflight requests.
// Default: GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS.
func WithAllowedMethods(methods ...string) Option {
	return func(cfg *config) {
		cfg.allowedMethods = methods
	}
}

// WithAllowedHeaders sets the request headers announced to preflight
// requests. Default: Origin, Content-Type, Accept, Authorization.
func WithAllowedHeaders(headers ...string) Option {
	return func(cfg *config) {
		cfg.allowedHeaders = headers
	}
}

// WithExposedHeaders sets the response headers scripts may read.
func WithExposedHeaders(headers ...string) Option {
	return func(cfg *config) {
		cfg.exposedHeaders = headers
	}
}

// WithAllowCredentials allows cookies and authorization headers. The
// request origin is then echoed instead of "*".
func WithAllowCredentials(allow bool) Option {
	return func(cfg *config) {
		cfg.allowCredentials = allow
	}
}

// WithMaxAge sets how long, in seconds, browsers may cache a preflight
// answer. Default: 3600. Zero omits the header.
func WithMaxAge(seconds int) Option {
	return func(cfg *config) {
		if seconds >= 0 {
			cfg.maxAge = seconds
		}
	}
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		allowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		allowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		maxAge:         3600,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	methods := strings.Join(cfg.allowedMethods, ", ")
	headers := strings.Join(cfg.allowedHeaders, ", ")
	exposed := strings.Join(cfg.exposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.maxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if !cfg.allowed(origin) {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.allowAllOrigins && !cfg.allowCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.allowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if cfg.maxAge > 0 {
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (cfg *config) allowed(origin string) bool {
	if cfg.allowAllOrigins || slices.Contains(cfg.allowedOrigins, origin) {
		return true
	}

	return cfg.allowOriginFunc != nil && cfg.allowOriginFunc(origin)
}
