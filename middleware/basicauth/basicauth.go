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

// Package basicauth protects handlers with HTTP Basic Authentication
// (RFC 7617).
//
// It is usually attached to a namespace rather than the whole application:
//
//	m.Namespace("admin", func(m *routing.Map) {
//	    m.Root("dashboard#show")
//	}, routing.Use(basicauth.New(
//	    basicauth.WithUsers(map[string]string{"admin": password}),
//	    basicauth.WithRealm("Admin"),
//	)))
//
// The authenticated username is available to handlers through [Username].
// Basic credentials travel in clear text, so serve them over TLS.
package basicauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	rerrors "rivaas.dev/mvc/errors"
)

// ErrUnauthorized reports missing or wrong credentials.
var ErrUnauthorized = errors.New("authentication required")

// Option configures the middleware.
type Option func(*config)

type config struct {
	realm        string
	users        map[string]string
	validator    func(username, password string) bool
	unauthorized http.Handler
	skipPaths    map[string]bool
	formatter    rerrors.Formatter
}

// WithUsers sets the accepted username/password pairs. Passwords are
// compared in constant time.
func WithUsers(users map[string]string) Option {
	return func(cfg *config) {
		cfg.users = users
	}
}

// WithValidator checks credentials against an external source. It takes
// precedence over [WithUsers].
func WithValidator(fn func(username, password string) bool) Option {
	return func(cfg *config) {
		cfg.validator = fn
	}
}

// WithRealm sets the realm shown in the browser prompt. Default: "Restricted".
func WithRealm(realm string) Option {
	return func(cfg *config) {
		if realm != "" {
			cfg.realm = realm
		}
	}
}

// WithUnauthorizedHandler replaces the default 401 problem response. The
// WWW-Authenticate header is already set when it runs.
func WithUnauthorizedHandler(h http.Handler) Option {
	return func(cfg *config) {
		cfg.unauthorized = h
	}
}

// WithSkipPaths lets exact paths through without credentials.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.skipPaths[p] = true
		}
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

type usernameKey struct{}

// Username returns the user authenticated for ctx, or "".
func Username(ctx context.Context) string {
	name, _ := ctx.Value(usernameKey{}).(string)
	return name
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		realm:     "Restricted",
		skipPaths: make(map[string]bool),
		formatter: rerrors.NewRFC9457(""),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.unauthorized == nil {
		cfg.unauthorized = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = rerrors.Write(w, cfg.formatter.Format(r, rerrors.WithStatus(ErrUnauthorized, http.StatusUnauthorized)))
		})
	}
	challenge := fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", cfg.realm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok || !cfg.valid(user, pass) {
				w.Header().Set("WWW-Authenticate", challenge)
				cfg.unauthorized.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), usernameKey{}, user)))
		})
	}
}

func (cfg *config) valid(user, pass string) bool {
	if cfg.validator != nil {
		return cfg.validator(user, pass)
	}
	want, ok := cfg.users[user]
	if !ok {
		// Compare anyway so unknown users take as long as wrong passwords.
		subtle.ConstantTimeCompare([]byte(pass), []byte(pass))
		return false
	}

	return subtle.ConstantTimeCompare([]byte(pass), []byte(want)) == 1
}
