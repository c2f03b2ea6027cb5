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

package helper

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
)

// RootName is the helper name of the root route.
const RootName = "root"

var (
	// formatSuffix matches a trailing optional dotted variable such as ".:format?".
	formatSuffix = regexp.MustCompile(`\.[:*][A-Za-z_][A-Za-z0-9_]*\?$`)

	// nonIdent collapses anything that cannot appear in a helper name.
	nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// Name derives the canonical helper name for a route template and its
// action:
//
//	Name("/", "index")                                 // "root"
//	Name("/posts", "index")                            // "posts"
//	Name("/posts/:id", "show")                         // "post"
//	Name("/posts/new", "new")                          // "new_post"
//	Name("/posts/:id/edit", "edit")                    // "edit_post"
//	Name("/users/:id/posts/:post_id.:format?", "show") // "user_post"
//
// Variable segments are dropped, a literal directly followed by a variable
// (or by a terminal "new") is singularized, and a terminal literal equal to
// the action moves to the front.
func Name(template, action string) string {
	trimmed := strings.Trim(template, "/")
	trimmed = formatSuffix.ReplaceAllString(trimmed, "")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return RootName
	}

	segments := strings.Split(trimmed, "/")
	words := make([]string, 0, len(segments))

	for i, seg := range segments {
		if isVariable(seg) {
			continue
		}

		word := seg
		if i+1 < len(segments) {
			next := segments[i+1]
			if isVariable(next) || (next == "new" && i+2 == len(segments)) {
				word = inflection.Singular(word)
			}
		}
		words = append(words, word)
	}

	if n := len(words); n > 1 && words[n-1] == action {
		words = append([]string{words[n-1]}, words[:n-1]...)
	}

	name := nonIdent.ReplaceAllString(strings.Join(words, "_"), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return RootName
	}

	return name
}

func isVariable(seg string) bool {
	return strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*")
}
