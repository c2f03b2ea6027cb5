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

// Package routing provides the resource-oriented route table.
//
// Routes are declared with a [Map]:
//
//	r := routing.MustNew(dispatcher.Bridge())
//	r.Draw(func(m *routing.Map) {
//		m.Root("pages#home")
//		m.Get("/about", "pages#about")
//		m.Resources("posts", func(m *routing.Map) {
//			m.Resources("comments", nil, routing.Only("create", "destroy"))
//			m.Post("publish", "posts#publish", routing.OnMember())
//		})
//		m.Resource("profile", nil)
//		m.Namespace("admin", func(m *routing.Map) {
//			m.Resources("posts", nil)
//		})
//	})
//
// Every declaration compiles its template with package pattern, registers
// a URL helper with package helper and asks the [Bridge] for a
// [DispatchFunc]. The bridge decouples the table from how controllers are
// found and run.
//
// # Dispatch
//
// [Router.ServeHTTP] tries entries in declaration order. A matching entry
// receives a [NextFunc]: next(nil) resumes the scan with the following
// entries (a subdomain mismatch does this), next(err) stops routing and
// renders err through the error handler, once. An entry that served the
// request calls neither. When the scan ends without
// a taker, the no-route handler answers, by default with a 404 problem
// document.
//
// HEAD requests are accepted by GET routes. Bound path variables are read
// with [Params] and [Param].
//
// # Reloading
//
// [Router.Reload] rebuilds the table and helper registry from scratch and
// swaps them in one step. Routes may also be declared in a YAML file, see
// [LoadFile].
package routing
