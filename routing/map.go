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
	"fmt"
	"net/http"
	"slices"

	"github.com/jinzhu/inflection"

	"rivaas.dev/mvc/helper"
	"rivaas.dev/mvc/pattern"
)

const formatSuffix = ".:format?"

// restAction is one canonical resource route.
type restAction struct {
	name       string
	method     string
	suffix     string
	collection bool
}

var pluralActions = []restAction{
	{"index", http.MethodGet, "", true},
	{"create", http.MethodPost, "", true},
	{"new", http.MethodGet, "/new", true},
	{"edit", http.MethodGet, "/:id/edit", false},
	{"destroy", http.MethodDelete, "/:id", false},
	{"update", http.MethodPut, "/:id", false},
	{"show", http.MethodGet, "/:id", false},
}

var singletonActions = []restAction{
	{"show", http.MethodGet, "", false},
	{"create", http.MethodPost, "", false},
	{"new", http.MethodGet, "/new", false},
	{"edit", http.MethodGet, "/edit", false},
	{"destroy", http.MethodDelete, "", false},
	{"update", http.MethodPut, "", false},
}

// builder accumulates the entries of one table build.
type builder struct {
	bridge  Bridge
	helpers *helper.Registry
	entries []*Entry
}

// Map is the route declaration DSL. Every nested block receives its own
// child Map carrying the namespace and path prefix of that block; a
// parent Map is never modified by its children.
type Map struct {
	b         *builder
	namespace string
	prefix    string

	// inherited from enclosing namespaces and scopes
	subdomain  string
	middleware []Middleware

	// set inside nested resource blocks
	collectionPath string
	memberPath     string
}

func (m *Map) child() *Map {
	return &Map{
		b:          m.b,
		namespace:  m.namespace,
		prefix:     m.prefix,
		subdomain:  m.subdomain,
		middleware: slices.Clone(m.middleware),
	}
}

func (m *Map) inherit(o options) *Map {
	c := m.child()
	if o.subdomain != "" {
		c.subdomain = o.subdomain
	}
	c.middleware = append(c.middleware, o.middleware...)

	return c
}

// CurrentNamespace returns the namespace of this map ("" at the top level).
func (m *Map) CurrentNamespace() string { return m.namespace }

// Prefix returns the path prefix of this map.
func (m *Map) Prefix() string { return m.prefix }

// Get declares a GET route. target is "controller#action".
func (m *Map) Get(path, target string, opts ...Option) {
	m.Match([]string{http.MethodGet}, path, target, opts...)
}

// Post declares a POST route.
func (m *Map) Post(path, target string, opts ...Option) {
	m.Match([]string{http.MethodPost}, path, target, opts...)
}

// Put declares a PUT route.
func (m *Map) Put(path, target string, opts ...Option) {
	m.Match([]string{http.MethodPut}, path, target, opts...)
}

// Patch declares a PATCH route.
func (m *Map) Patch(path, target string, opts ...Option) {
	m.Match([]string{http.MethodPatch}, path, target, opts...)
}

// Delete declares a DELETE route.
func (m *Map) Delete(path, target string, opts ...Option) {
	m.Match([]string{http.MethodDelete}, path, target, opts...)
}

// allMethods are the verbs declared by [Map.All]. HEAD is served by GET.
var allMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// All declares a route answering every standard method.
func (m *Map) All(path, target string, opts ...Option) {
	m.Match(allMethods, path, target, opts...)
}

// Match declares one route answering several methods. The route gets a
// single helper.
func (m *Map) Match(methods []string, path, target string, opts ...Option) {
	o := collect(opts)

	base := m.prefix
	switch {
	case o.collection && m.collectionPath != "":
		base = m.collectionPath
	case o.member && m.memberPath != "":
		base = m.memberPath
	}

	m.route(methods, joinPath(base, path), target, o, RouteOptions{}, "")
}

// Root declares the GET route for the map's own prefix. At the top level
// its helper is "root"; inside a namespace it is "<namespace>_root".
func (m *Map) Root(target string, opts ...Option) {
	o := collect(opts)
	if o.as == "" {
		o.as = helper.RootName
		if m.prefix != "" {
			o.as = helper.Name(m.prefix, "") + "_" + helper.RootName
		}
	}

	m.route([]string{http.MethodGet}, joinPath(m.prefix, ""), target, o, RouteOptions{}, "")
}

// Resources declares the seven canonical routes of a plural resource:
//
//	GET    /posts          index
//	POST   /posts          create
//	GET    /posts/new      new
//	GET    /posts/:id/edit edit
//	DELETE /posts/:id      destroy
//	PUT    /posts/:id      update
//	GET    /posts/:id      show
//
// Routes declared in nested are mounted under /posts/:post_id.
func (m *Map) Resources(name string, nested func(*Map), opts ...Option) {
	m.resources(name, nested, false, opts)
}

// Resource declares a singleton resource. Its routes carry no :id segment
// and a nested block is mounted directly under the resource path.
// The controller defaults to the plural of name.
func (m *Map) Resource(name string, nested func(*Map), opts ...Option) {
	m.resources(name, nested, true, opts)
}

func (m *Map) resources(name string, nested func(*Map), singleton bool, opts []Option) {
	o := collect(opts)

	segment := name
	if o.path != "" {
		segment = o.path
	}
	nameSegment := segment
	if o.as != "" {
		nameSegment = o.as
	}

	controller := name
	if singleton {
		controller = inflection.Plural(name)
	}
	if o.controller != "" {
		controller = o.controller
	}

	actions := pluralActions
	if singleton {
		actions = singletonActions
	}

	collection := joinPath(m.prefix, segment)
	nameCollection := joinPath(m.prefix, nameSegment)

	scoped := m.inherit(o)
	routeOpts := options{}

	for _, a := range actions {
		if !o.includes(a.name) {
			continue
		}

		template := joinPath(collection, a.suffix)
		nameTemplate := joinPath(nameCollection, a.suffix)
		if !o.noFormat {
			template += formatSuffix
		}

		methods := []string{a.method}
		if a.name == "update" && o.patch {
			methods = append(methods, http.MethodPatch)
		}

		scoped.route(methods, template, controller+"#"+a.name, routeOpts,
			RouteOptions{Collection: a.collection, Singleton: singleton}, nameTemplate)
	}

	if nested == nil {
		return
	}

	inner := scoped.child()
	inner.collectionPath = collection
	if singleton {
		inner.prefix = collection
		inner.memberPath = collection
	} else {
		inner.prefix = joinPath(collection, ":"+inflection.Singular(segment)+"_id")
		inner.memberPath = joinPath(collection, ":id")
	}
	nested(inner)
}

// Namespace mounts fn under /<name> and resolves its controllers inside
// the namespace, e.g. "admin/posts".
func (m *Map) Namespace(name string, fn func(*Map), opts ...Option) {
	o := collect(opts)

	segment := name
	if o.path != "" {
		segment = o.path
	}

	c := m.inherit(o)
	c.namespace = joinNamespace(m.namespace, name)
	c.prefix = joinPath(m.prefix, segment)
	fn(c)
}

// Scope mounts fn under path without changing controller resolution.
func (m *Map) Scope(path string, fn func(*Map), opts ...Option) {
	c := m.inherit(collect(opts))
	c.prefix = joinPath(m.prefix, path)
	fn(c)
}

// route compiles template, registers its helper and asks the bridge for
// the dispatch function. It panics on a malformed template.
func (m *Map) route(methods []string, template, target string, o options, ro RouteOptions, nameTemplate string) {
	controller, action := parseTarget(target)
	if o.controller != "" {
		controller = o.controller
	}

	p, err := pattern.Compile(template)
	if err != nil {
		panic(fmt.Errorf("routing: invalid route %q: %w", template, err))
	}

	ro.Subdomain = m.subdomain
	if o.subdomain != "" {
		ro.Subdomain = o.subdomain
	}
	ro.Middleware = append(slices.Clone(m.middleware), o.middleware...)

	name := o.as
	if name == "" && nameTemplate != "" {
		name = helper.Name(nameTemplate, action)
	}

	helperName := ""
	if h, added := m.b.helpers.RegisterPattern(p, action, name); added {
		helperName = h.Name()
	}

	dispatch := m.b.bridge(m.namespace, controller, action, ro)
	handler := chain(ro.Middleware, dispatchHandler(dispatch))

	for _, method := range methods {
		m.b.entries = append(m.b.entries, &Entry{
			Method:     method,
			Template:   template,
			Controller: controller,
			Action:     action,
			Namespace:  m.namespace,
			HelperName: helperName,
			Pattern:    p,
			Options:    ro,
			handler:    handler,
		})
	}
}

// dispatchHandler adapts a DispatchFunc to http.Handler so route
// middleware can wrap it. The continuation travels in the request context.
func dispatchHandler(d DispatchFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d(w, r, nextFrom(r))
	})
}

func chain(mw []Middleware, h http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}

	return h
}
