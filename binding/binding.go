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

// Package binding maps request parameters onto structs and validates them.
//
// Fields are matched by their `form` tag, or their `json` tag for JSON
// bodies, and checked with `validate` tags:
//
//	type PostParams struct {
//	    Title string   `form:"title" json:"title" validate:"required,max=120"`
//	    Tags  []string `form:"tags" json:"tags"`
//	}
//
//	p, err := binding.Form[PostParams](r.PostForm)
//
// Form keys may nest with brackets, so "post[title]" fills the Title of a
// struct tagged `form:"post"` and repeated "tags[]" keys fill a slice.
//
// Decoding failures match [ErrBind] and carry status 400. Validation
// failures are an [*Error] with status 422 whose messages read like
// "Title can't be blank".
package binding

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ErrBind reports parameters that cannot be decoded into the target.
var ErrBind = errors.New("binding: malformed parameters")

// Form decodes values into a new T and validates it.
func Form[T any](values url.Values) (T, error) {
	var out T
	err := FormTo(values, &out)

	return out, err
}

// FormTo decodes values into out, a pointer to a struct, and validates it.
// Surrounding whitespace is trimmed from every value.
func FormTo(values url.Values, out any) error {
	if err := decode(nest(values), out); err != nil {
		return err
	}

	return Validate(out)
}

func decode(input map[string]any, out any) error {
	if rv := reflect.ValueOf(out); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("binding: target must be a non-nil pointer, got %T", out)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			checkboxHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	if err = dec.Decode(input); err != nil {
		return badRequest(err)
	}

	return nil
}

// checkboxHook reads the "on" that browsers send for ticked checkboxes.
func checkboxHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	switch strings.ToLower(data.(string)) {
	case "on", "yes":
		return true, nil
	case "off", "no", "":
		return false, nil
	}

	return data, nil
}

// nest turns flat form keys into the nested maps mapstructure decodes:
//
//	post[title]=Hi       → {"post": {"title": "Hi"}}
//	tags[]=a&tags[]=b    → {"tags": ["a", "b"]}
//	ids=1&ids=2          → {"ids": ["1", "2"]}
func nest(values url.Values) map[string]any {
	root := make(map[string]any, len(values))
	for key, vals := range values {
		trimmed := make([]string, len(vals))
		for i, v := range vals {
			trimmed[i] = strings.TrimSpace(v)
		}

		path, list := splitKey(key)
		if len(path) == 0 {
			continue
		}

		m := root
		for _, seg := range path[:len(path)-1] {
			child, ok := m[seg].(map[string]any)
			if !ok {
				child = make(map[string]any)
				m[seg] = child
			}
			m = child
		}

		leaf := path[len(path)-1]
		switch {
		case list || len(trimmed) > 1:
			m[leaf] = trimmed
		case len(trimmed) == 1:
			m[leaf] = trimmed[0]
		}
	}

	return root
}

// splitKey splits "post[author][name]" into its segments and reports a
// trailing "[]".
func splitKey(key string) (path []string, list bool) {
	if strings.HasSuffix(key, "[]") {
		key, list = strings.TrimSuffix(key, "[]"), true
	}

	head, rest, found := strings.Cut(key, "[")
	if head != "" {
		path = append(path, head)
	}
	for found {
		var seg string
		seg, rest, found = strings.Cut(rest, "]")
		if !found {
			// unbalanced bracket: keep the key as one literal segment
			return []string{strings.TrimSuffix(key, "[]")}, list
		}
		if seg != "" {
			path = append(path, seg)
		}
		_, rest, found = strings.Cut(rest, "[")
	}

	return path, list
}
