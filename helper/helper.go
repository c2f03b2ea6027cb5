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
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"rivaas.dev/mvc/pattern"
)

// FormatKey is the keyed argument that rewrites the format suffix.
const FormatKey = "format"

// Param is implemented by values that know their own URL representation,
// typically models returning their id.
type Param interface {
	ToParam() string
}

// Query is a keyed argument. It may be passed as the last argument of
// [Helper.URL]; map[string]any, map[string]string and url.Values are
// accepted as well.
type Query map[string]any

// Helper renders concrete URLs for one route template.
// A Helper holds no mutable state; calling URL twice with the same
// arguments yields the same string.
type Helper struct {
	name     string
	action   string
	pattern  *pattern.Pattern
	registry *Registry
}

// Name returns the helper name.
func (h *Helper) Name() string { return h.name }

// Template returns the route template the helper renders.
func (h *Helper) Template() string { return h.pattern.String() }

// Action returns the action the helper was registered for.
func (h *Helper) Action() string { return h.action }

// String returns the URL built without arguments. It is the value of the
// helper when used where a string is expected.
func (h *Helper) String() string { return h.URL() }

// URL renders the path. Positional arguments fill the template variables in
// declaration order. A trailing keyed argument may set the format suffix
// (key "format"), any path variable by name, or extra query parameters.
// It returns "" when a required variable is left without a value.
func (h *Helper) URL(args ...any) string {
	positional, keyed := splitKeyed(args)

	vars := h.pattern.Variables()
	values := make(map[string]string, len(vars))

	for i, v := range vars {
		if i >= len(positional) {
			break
		}
		if s := stringify(positional[i]); s != "" {
			values[v.Name] = escape(s, v.Splat)
		}
	}

	query := url.Values{}
	for _, key := range sortedKeys(keyed) {
		val := keyed[key]
		if h.pattern.HasVariable(key) {
			values[key] = escape(val, isSplat(vars, key))
			continue
		}
		if key == FormatKey {
			// No suffix to rewrite.
			continue
		}
		query.Set(key, val)
	}

	path, err := h.pattern.Build(values)
	if err != nil {
		return ""
	}

	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	if h.registry != nil {
		path = h.registry.applyHooks(path)
	}

	return path
}

// FullURL is like URL but prefixes the registry host when one is set.
func (h *Helper) FullURL(args ...any) string {
	path := h.URL(args...)
	if path == "" || h.registry == nil || h.registry.host == "" {
		return path
	}

	return strings.TrimRight(h.registry.host, "/") + path
}

// splitKeyed separates a trailing keyed argument from the positionals.
func splitKeyed(args []any) ([]any, map[string]string) {
	if len(args) == 0 {
		return nil, nil
	}

	var keyed map[string]string
	switch last := args[len(args)-1].(type) {
	case Query:
		keyed = flatten(last)
	case map[string]any:
		keyed = flatten(last)
	case map[string]string:
		keyed = last
	case url.Values:
		keyed = make(map[string]string, len(last))
		for k := range last {
			keyed[k] = last.Get(k)
		}
	default:
		return args, nil
	}

	return args[:len(args)-1], keyed
}

func flatten(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = stringify(v)
	}

	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case Param:
		return t.ToParam()
	case fmt.Stringer:
		return t.String()
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return s
}

func escape(s string, splat bool) string {
	if !splat {
		return url.PathEscape(s)
	}

	parts := strings.Split(s, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}

	return strings.Join(parts, "/")
}

func isSplat(vars []pattern.Variable, name string) bool {
	for _, v := range vars {
		if v.Name == name {
			return v.Splat
		}
	}

	return false
}
