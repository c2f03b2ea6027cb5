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

// Package helper builds named URL helpers from route templates.
//
// Each route registers one helper under a derived name ("post",
// "edit_post", "admin_posts", ...). Views and controllers render links with
// it instead of hard-coding paths:
//
//	reg := helper.NewRegistry()
//	reg.Register("/posts/:id.:format?", "show", "")
//
//	reg.URL("post", 42)                                 // "/posts/42"
//	reg.URL("post", 42, helper.Query{"format": "json"}) // "/posts/42.json"
//	reg.URL("post", 42, helper.Query{"page": 2})        // "/posts/42?page=2"
//	reg.URL("post")                                     // "" (missing id)
//
// A registry belongs to one router; there is no package level registry.
package helper
