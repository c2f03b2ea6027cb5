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

// Package pattern compiles route path templates into matchers.
//
// A template is a slash separated path whose segments mix literal text with
// variable tokens:
//
//	/posts                    literal only
//	/posts/:id                one variable
//	/posts/:id.:format?       optional format suffix
//	/files/*path              splat, matches the rest of the path
//
// Variables match one segment's worth of characters, stopping at '/', '?',
// '#' and '.'. An optional variable ("?" suffix) absorbs the single '.' or '/'
// immediately in front of it, so the whole ".json" suffix disappears when
// the variable is absent.
//
// # Quick Start
//
//	p := pattern.MustCompile("/users/:id/posts/:post_id.:format?")
//
//	caps, ok := p.Match("/users/7/posts/42.json")
//	// caps == []string{"7", "42", "json"}, ok == true
//
//	path, _ := p.Build(map[string]string{"id": "7", "post_id": "42"})
//	// path == "/users/7/posts/42"
//
// Templates are validated when compiled. A malformed token ("/:", "/:1st")
// or a repeated variable name is reported as a [*CompileError], never at
// match time. A compiled [Pattern] is immutable and safe for concurrent use.
package pattern
