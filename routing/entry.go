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
	"strings"

	"rivaas.dev/mvc/pattern"
)

// NextFunc continues request routing. next(nil) falls through to the next
// matching route; next(err) hands err to the router's error handler.
type NextFunc func(err error)

// DispatchFunc handles a matched request. A handler that served the
// request returns without calling next; calling next(nil) afterwards would
// resume the scan and let a later route or the no-route handler write too.
type DispatchFunc func(w http.ResponseWriter, r *http.Request, next NextFunc)

// Bridge turns a route declaration into a [DispatchFunc]. It is called once
// per route at build time. Empty controller or action names are resolved
// per request from the ":controller" and ":action" path variables.
type Bridge func(namespace, controller, action string, opts RouteOptions) DispatchFunc

// Entry is one registered route. Entries are never modified after
// registration.
type Entry struct {
	Method     string
	Template   string
	Controller string
	Action     string
	Namespace  string
	HelperName string
	Pattern    *pattern.Pattern
	Options    RouteOptions

	handler http.Handler
}

// Target returns the dispatch target in "namespace/controller#action" form.
func (e *Entry) Target() string {
	controller := e.Controller
	if controller == "" {
		controller = ":controller"
	}
	if e.Namespace != "" {
		controller = e.Namespace + "/" + controller
	}

	action := e.Action
	if action == "" {
		action = ":action"
	}

	return controller + "#" + action
}

// String implements fmt.Stringer.
func (e *Entry) String() string {
	return e.Method + " " + e.Template + " " + e.Target()
}

func (e *Entry) acceptsMethod(method string) bool {
	return e.Method == method || (method == http.MethodHead && e.Method == http.MethodGet)
}

// parseTarget splits "controller#action". A target without '#' names only
// the controller.
func parseTarget(target string) (controller, action string) {
	controller, action, _ = strings.Cut(target, "#")

	return strings.Trim(controller, "/"), action
}

func joinPath(prefix, path string) string {
	path = strings.Trim(path, "/")
	prefix = strings.TrimRight(prefix, "/")

	switch {
	case path == "":
		if prefix == "" {
			return "/"
		}
		return prefix
	case strings.HasPrefix(path, ".") && prefix != "":
		// format suffix attaches without a separator
		return prefix + path
	default:
		return prefix + "/" + path
	}
}

func joinNamespace(parent, child string) string {
	child = strings.Trim(child, "/")

	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	default:
		return parent + "/" + child
	}
}
