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

// Package methodoverride lets POST requests stand in for PUT, PATCH and
// DELETE, which HTML forms cannot send.
//
// The method is taken from the X-HTTP-Method-Override header, or from the
// _method form field:
//
//	<form method="POST" action="/posts/42">
//	    <input type="hidden" name="_method" value="DELETE">
//	</form>
//
// Only POST requests are rewritten and only to an allowed method.
package methodoverride

import (
	"context"
	"mime"
	"net/http"
	"slices"
	"strings"
)

// Defaults.
const (
	DefaultHeader    = "X-HTTP-Method-Override"
	DefaultFormField = "_method"
)

type contextKey struct{}

// Option configures the middleware.
type Option func(*config)

type config struct {
	header  string
	field   string
	allowed []string
}

// WithHeader changes the override header.
func WithHeader(name string) Option {
	return func(c *config) {
		c.header = name
	}
}

// WithFormField changes the override form field. An empty name disables
// form overrides.
func WithFormField(name string) Option {
	return func(c *config) {
		c.field = name
	}
}

// WithAllowedMethods sets the methods a POST may become.
func WithAllowedMethods(methods ...string) Option {
	return func(c *config) {
		c.allowed = make([]string, len(methods))
		for i, m := range methods {
			c.allowed[i] = strings.ToUpper(m)
		}
	}
}

// New returns the middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		header:  DefaultHeader,
		field:   DefaultFormField,
		allowed: []string{http.MethodPut, http.MethodPatch, http.MethodDelete},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				if m := cfg.override(r); m != "" {
					r = r.WithContext(context.WithValue(r.Context(), contextKey{}, r.Method))
					r.Method = m
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (c *config) override(r *http.Request) string {
	m := r.Header.Get(c.header)
	if m == "" && c.field != "" && isForm(r) {
		m = r.PostFormValue(c.field)
	}
	m = strings.ToUpper(strings.TrimSpace(m))
	if m == "" || !slices.Contains(c.allowed, m) {
		return ""
	}

	return m
}

func isForm(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}

	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// OriginalMethod returns the method the client sent, before any override.
func OriginalMethod(r *http.Request) string {
	if m, ok := r.Context().Value(contextKey{}).(string); ok {
		return m
	}

	return r.Method
}
