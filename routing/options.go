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
	"net/http"
	"slices"
)

// Middleware wraps the handler of a single route.
type Middleware = func(http.Handler) http.Handler

// RouteOptions is the per-route configuration handed to the [Bridge].
// It is immutable once the route is registered.
type RouteOptions struct {
	// Collection is set for routes that act on the resource collection
	// (index, create, new) rather than on one member.
	Collection bool

	// Singleton is set for routes expanded from [Map.Resource].
	Singleton bool

	// Subdomain restricts the route to hosts whose leading labels match.
	// Each label may be "*".
	Subdomain string

	// Middleware wraps the route's dispatch, outermost first.
	Middleware []Middleware
}

// Option configures one route declaration.
type Option func(*options)

type options struct {
	only       []string
	except     []string
	as         string
	controller string
	path       string
	subdomain  string
	middleware []Middleware
	noFormat   bool
	patch      bool
	collection bool
	member     bool
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

// Only limits a resource to the named actions. When both Only and Except
// are given, Except is ignored. Unknown action names are ignored.
func Only(actions ...string) Option {
	return func(o *options) {
		o.only = append(o.only, actions...)
	}
}

// Except removes the named actions from a resource.
func Except(actions ...string) Option {
	return func(o *options) {
		o.except = append(o.except, actions...)
	}
}

// As sets the helper name of a route, or the name segment used to derive
// helper names for a resource.
func As(name string) Option {
	return func(o *options) {
		o.as = name
	}
}

// Controller overrides the controller a route or resource dispatches to.
func Controller(name string) Option {
	return func(o *options) {
		o.controller = name
	}
}

// Path overrides the path segment of a resource or namespace.
func Path(segment string) Option {
	return func(o *options) {
		o.path = segment
	}
}

// Subdomain restricts routes to matching hosts, e.g. "admin" or "*.api".
func Subdomain(pattern string) Option {
	return func(o *options) {
		o.subdomain = pattern
	}
}

// Use attaches middleware. On a namespace or scope it applies to every
// route declared inside.
func Use(mw ...Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithoutFormat drops the optional ".:format?" suffix from resource routes.
func WithoutFormat() Option {
	return func(o *options) {
		o.noFormat = true
	}
}

// WithPatch registers a PATCH twin for the update action of a resource.
func WithPatch() Option {
	return func(o *options) {
		o.patch = true
	}
}

// OnCollection mounts a route declared in a nested resource block on the
// collection path ("/posts/search") instead of the nested path.
func OnCollection() Option {
	return func(o *options) {
		o.collection = true
	}
}

// OnMember mounts a route declared in a nested resource block on the
// member path ("/posts/:id/publish") instead of the nested path.
func OnMember() Option {
	return func(o *options) {
		o.member = true
	}
}

// includes applies the only/except filter to a canonical action name.
func (o options) includes(action string) bool {
	if len(o.only) > 0 {
		return slices.Contains(o.only, action)
	}

	return !slices.Contains(o.except, action)
}
