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

// Package view renders html/template views for controllers.
//
// Templates live in an [fs.FS] laid out by controller:
//
//	posts/index.html          view "posts/index"
//	admin/posts/index.html    view "admin/posts/index"
//	layouts/application.html  layout "application"
//	shared/_nav.html          partial, {{template "shared/_nav" .}}
//
// A layout places the rendered view with {{yield}}. The path and url
// functions render named route helpers:
//
//	<a href="{{path "post" .Post.ID}}">{{.Post.Title}}</a>
//
// [Renderer] satisfies controller.Renderer.
package view
