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

// Package controller runs actions for matched routes.
//
// A [Registry] maps controller names to factories. The [Dispatcher] turns
// route declarations into dispatch functions through [Dispatcher.Bridge]:
//
//	reg := controller.NewRegistry()
//	reg.MustRegister("posts", NewPosts(store))
//	reg.MustRegister("admin/posts", NewAdminPosts(store))
//
//	d := controller.NewDispatcher(reg, controller.WithLogger(logger))
//	r := routing.MustNew(d.Bridge())
//
// Each request takes an instance from the controller's [Pool], performs
// the action and puts the instance back once the whole pipeline finished.
// With [WithHotReload] every request gets a fresh instance instead.
//
// # Filters
//
// Controllers embed [Base] and register before- and after-filters scoped
// with [Only] and [Except]. For each request the applicable filters and the
// action are queued on a [Pipeline] and run in order. A step returning an
// error ends the request with that error. A before-filter that renders or
// halts completes the request. The action is followed by the after-filters
// unless it calls [Base.Halt].
//
// Only the first render of a request writes a response; later calls log a
// warning and do nothing.
package controller
