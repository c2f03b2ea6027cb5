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

// Package trailingslash gives every path a single canonical form.
//
// The route matcher accepts "/posts" and "/posts/" alike. Behind this
// middleware only one of them is served and the other is redirected with
// 308 Permanent Redirect, which keeps the method and body. The root path
// is never rewritten.
package trailingslash

import (
	"fmt"
	"net/http"
	"strings"

	rerrors "rivaas.dev/mvc/errors"
)

// Policy selects the canonical form.
type Policy int

const (
	// PolicyRemove redirects /posts/ to /posts.
	PolicyRemove Policy = iota
	// PolicyAdd redirects /posts to /posts/.
	PolicyAdd
	// PolicyStrict answers 404 for paths with a trailing slash.
	PolicyStrict
)

// ParsePolicy maps "remove", "add" and "strict" to a [Policy].
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "remove":
		return PolicyRemove, nil
	case "add":
		return PolicyAdd, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return 0, fmt.Errorf("trailingslash: unknown policy %q", s)
	}
}

// Option configures the middleware.
type Option func(*config)

type config struct {
	policy    Policy
	formatter rerrors.Formatter
}

// WithPolicy sets the policy. Default: [PolicyRemove].
func WithPolicy(p Policy) Option {
	return func(cfg *config) {
		cfg.policy = p
	}
}

// WithFormatter sets the formatter of the strict 404 response.
func WithFormatter(f rerrors.Formatter) Option {
	return func(cfg *config) {
		if f != nil {
			cfg.formatter = f
		}
	}
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{policy: PolicyRemove, formatter: rerrors.NewRFC9457("")}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/" || path == "" {
				next.ServeHTTP(w, r)
				return
			}
			slash := strings.HasSuffix(path, "/")

			switch {
			case cfg.policy == PolicyRemove && slash:
				redirect(w, r, strings.TrimSuffix(path, "/"))
			case cfg.policy == PolicyAdd && !slash:
				redirect(w, r, path+"/")
			case cfg.policy == PolicyStrict && slash:
				err := rerrors.WithStatus(fmt.Errorf("no route matches %s %s", r.Method, path), http.StatusNotFound)
				_ = rerrors.Write(w, cfg.formatter.Format(r, err))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	u := *r.URL
	u.Path = path
	u.RawPath = ""
	w.Header().Set("Location", u.String())
	w.WriteHeader(http.StatusPermanentRedirect)
}
