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

package routing

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	rerrors "rivaas.dev/mvc/errors"
	"rivaas.dev/mvc/helper"
)

var (
	// ErrNilBridge is returned by [New] when no bridge is given.
	ErrNilBridge = errors.New("routing: bridge is required")

	// ErrNoRoute is the error rendered when no route matches a request.
	ErrNoRoute = errors.New("no route found")

	// ErrMethodNotAllowed is rendered when the path matches but the method
	// does not and [WithMethodNotAllowed] is enabled.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// ErrorHandler renders an error that reached the routing boundary.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// RouterOption configures a [Router].
type RouterOption func(*Router)

// WithLogger sets the logger used for routing diagnostics.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFormatter sets the formatter used by the default error and no-route
// handlers. Defaults to RFC 9457 problem details.
func WithFormatter(f rerrors.Formatter) RouterOption {
	return func(r *Router) {
		if f != nil {
			r.formatter = f
		}
	}
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithNoRoute sets the handler for requests no route accepts.
func WithNoRoute(h http.Handler) RouterOption {
	return func(r *Router) {
		r.noRoute = h
	}
}

// WithMethodNotAllowed answers 405 with an Allow header when the path
// matches a route registered for other methods.
func WithMethodNotAllowed() RouterOption {
	return func(r *Router) {
		r.methodNotAllowed = true
	}
}

// WithHelperOptions configures every helper registry the router builds.
func WithHelperOptions(opts ...helper.Option) RouterOption {
	return func(r *Router) {
		r.helperOpts = append(r.helperOpts, opts...)
	}
}

// table is one immutable build of the route declarations.
type table struct {
	entries []*Entry
	helpers *helper.Registry
}

// Router is the routing context of one application: the route table and
// its helper registry. Tables are rebuilt with [Router.Reload] and swapped
// atomically; in-flight requests finish on the table they started with.
//
// Router is safe for concurrent use.
type Router struct {
	bridge           Bridge
	logger           *slog.Logger
	formatter        rerrors.Formatter
	errorHandler     ErrorHandler
	noRoute          http.Handler
	methodNotAllowed bool
	helperOpts       []helper.Option

	current atomic.Pointer[table]

	mu   sync.Mutex // serializes builds
	draw func(*Map)
}

// New creates a router dispatching through bridge.
func New(bridge Bridge, opts ...RouterOption) (*Router, error) {
	if bridge == nil {
		return nil, ErrNilBridge
	}

	r := &Router{
		bridge:    bridge,
		logger:    slog.New(slog.DiscardHandler),
		formatter: rerrors.NewRFC9457(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(&table{helpers: helper.NewRegistry(r.helperOpts...)})

	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(bridge Bridge, opts ...RouterOption) *Router {
	r, err := New(bridge, opts...)
	if err != nil {
		panic(err)
	}

	return r
}

// Draw builds the route table from fn and installs it. It panics when a
// declaration is malformed, failing startup instead of mis-routing later.
func (r *Router) Draw(fn func(*Map)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.build(fn)
	r.draw = fn
	r.current.Store(t)

	r.logger.Debug("routes drawn", "routes", len(t.entries), "helpers", t.helpers.Len())
}

// Reload rebuilds the table and helper registry from fn, or from the last
// drawn declarations when fn is nil, and swaps both at once. Unlike
// [Router.Draw] a malformed declaration is returned as an error and the
// current table stays in place.
func (r *Router) Reload(fn func(*Map)) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fn == nil {
		fn = r.draw
	}
	if fn == nil {
		return errors.New("routing: nothing to reload")
	}

	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("routing: %v", rec)
			}
			r.logger.Error("route reload failed", "error", err)
		}
	}()

	t := r.build(fn)
	r.draw = fn
	r.current.Store(t)

	r.logger.Info("routes reloaded", "routes", len(t.entries), "helpers", t.helpers.Len())

	return nil
}

func (r *Router) build(fn func(*Map)) *table {
	b := &builder{
		bridge:  r.bridge,
		helpers: helper.NewRegistry(r.helperOpts...),
	}
	fn(&Map{b: b})

	return &table{entries: b.entries, helpers: b.helpers}
}

// Helpers returns the helper registry of the current table.
func (r *Router) Helpers() *helper.Registry {
	return r.current.Load().helpers
}

// Routes returns the entries of the current table in declaration order.
func (r *Router) Routes() []*Entry {
	return slices.Clone(r.current.Load().entries)
}

// Recognize returns the first entry accepting method and path together
// with its bindings.
func (r *Router) Recognize(method, path string) (*Entry, map[string]string, bool) {
	for _, e := range r.current.Load().entries {
		if !e.acceptsMethod(method) {
			continue
		}
		if params, ok := e.Pattern.Params(path); ok {
			return e, params, true
		}
	}

	return nil, nil, false
}

// ServeHTTP scans the table in declaration order. Each matching entry may
// pass the request on with next(nil); next(err) ends routing and renders
// err exactly once.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	entries := r.current.Load().entries
	path := req.URL.Path

	var (
		idx     int
		settled atomic.Bool
		next    NextFunc
		matched = req
	)

	next = func(err error) {
		if settled.Load() {
			if err != nil {
				r.logger.Warn("error after request was settled, dropped",
					"http.method", req.Method, "http.target", path, "error", err)
			}
			return
		}

		if err != nil {
			settled.Store(true)
			r.handleError(w, matched, err)
			return
		}

		for idx < len(entries) {
			e := entries[idx]
			idx++

			if !e.acceptsMethod(req.Method) {
				continue
			}
			params, ok := e.Pattern.Params(path)
			if !ok {
				continue
			}

			matched = withMatch(req, e, params, next)
			e.handler.ServeHTTP(w, matched)
			return
		}

		settled.Store(true)
		r.handleNoRoute(w, req, entries)
	}

	next(nil)
}

func (r *Router) handleError(w http.ResponseWriter, req *http.Request, err error) {
	if r.errorHandler != nil {
		r.errorHandler(w, req, err)
		return
	}

	status := rerrors.StatusOf(err)
	attrs := []any{"http.method", req.Method, "http.target", req.URL.Path, "status", status, "error", err}
	if e := EntryFrom(req); e != nil {
		attrs = append(attrs, "route", e.Template, "target", e.Target())
	}
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed", attrs...)
	} else {
		r.logger.Warn("request failed", attrs...)
	}

	r.write(w, req, err)
}

func (r *Router) handleNoRoute(w http.ResponseWriter, req *http.Request, entries []*Entry) {
	if r.methodNotAllowed {
		if allowed := allowedMethods(entries, req.URL.Path); len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			r.write(w, req, rerrors.WithStatus(ErrMethodNotAllowed, http.StatusMethodNotAllowed))
			return
		}
	}

	if r.noRoute != nil {
		r.noRoute.ServeHTTP(w, req)
		return
	}

	r.logger.Debug("no route found", "http.method", req.Method, "http.target", req.URL.Path)
	r.write(w, req, rerrors.WithStatus(ErrNoRoute, http.StatusNotFound))
}

func (r *Router) write(w http.ResponseWriter, req *http.Request, err error) {
	if werr := rerrors.Write(w, r.formatter.Format(req, err)); werr != nil {
		r.logger.Debug("failed to write error response", "error", werr)
	}
}

func allowedMethods(entries []*Entry, path string) []string {
	var allowed []string
	for _, e := range entries {
		if slices.Contains(allowed, e.Method) {
			continue
		}
		if _, ok := e.Pattern.Match(path); ok {
			allowed = append(allowed, e.Method)
		}
	}
	slices.Sort(allowed)

	return allowed
}
