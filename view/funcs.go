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

package view

import (
	"html/template"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/spf13/cast"
)

func (r *Renderer) defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"path": func(name string, args ...any) string {
			if r.helpers == nil {
				return ""
			}
			return r.helpers().URL(name, args...)
		},
		"url": func(name string, args ...any) string {
			if r.helpers == nil {
				return ""
			}
			h, ok := r.helpers().Lookup(name)
			if !ok {
				return ""
			}
			return h.FullURL(args...)
		},
		"pluralize":   pluralize,
		"singularize": inflection.Singular,
		"humanize":    humanize,
		"truncate":    truncate,
	}
}

// pluralize returns word for a count of one and its plural otherwise.
// Called with only a word it always pluralizes.
func pluralize(args ...any) string {
	switch len(args) {
	case 1:
		return inflection.Plural(cast.ToString(args[0]))
	case 2:
		word := cast.ToString(args[1])
		if cast.ToInt(args[0]) == 1 {
			return word
		}
		return inflection.Plural(word)
	default:
		return ""
	}
}

// humanize turns "blog_posts" into "Blog posts".
func humanize(s string) string {
	s = strings.TrimSuffix(s, "_id")
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(n int, s string) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}

	return string(runes[:n-1]) + "…"
}
