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

package pattern

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Names(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		want     []string
		required int
	}{
		{"literal", "/posts", []string{}, 0},
		{"single", "/posts/:id", []string{"id"}, 1},
		{"format", "/posts/:id.:format?", []string{"id", "format"}, 1},
		{"nested", "/users/:id/posts/:post_id.:format?", []string{"id", "post_id", "format"}, 2},
		{"splat", "/files/*path", []string{"path"}, 1},
		{"mixed segment", "/archive/:year-:month", []string{"year", "month"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := Compile(tt.template)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Names())
			assert.Equal(t, tt.required, p.Required())
			assert.Equal(t, tt.template, p.String())
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		wantErr  error
		offset   int
	}{
		{"bare colon", "/posts/:", ErrMalformedVariable, 7},
		{"bare splat", "/files/*", ErrMalformedVariable, 7},
		{"digit name", "/posts/:1id", ErrMalformedVariable, 7},
		{"colon then slash", "/posts/:/edit", ErrMalformedVariable, 7},
		{"duplicate", "/posts/:id/comments/:id", ErrDuplicateVariable, 20},
		{"dangling optional", "/posts?", ErrDanglingOptional, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := Compile(tt.template)
			require.Error(t, err)
			assert.Nil(t, p)
			require.ErrorIs(t, err, tt.wantErr)

			var cerr *CompileError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.offset, cerr.Offset)
			assert.Equal(t, tt.template, cerr.Template)
		})
	}
}

func TestMustCompile_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustCompile("/broken/:") })
	assert.NotPanics(t, func() { MustCompile("/fine/:id") })
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		path     string
		want     []string
		ok       bool
	}{
		{"literal hit", "/posts", "/posts", []string{}, true},
		{"literal trailing slash", "/posts", "/posts/", []string{}, true},
		{"literal miss", "/posts", "/post", nil, false},
		{"id", "/posts/:id", "/posts/7", []string{"7"}, true},
		{"id does not span segments", "/posts/:id", "/posts/7/edit", nil, false},
		{"format present", "/posts/:id.:format?", "/posts/7.json", []string{"7", "json"}, true},
		{"format absent", "/posts/:id.:format?", "/posts/7", []string{"7", ""}, true},
		{"collection format", "/posts.:format?", "/posts.xml", []string{"xml"}, true},
		{"new with format", "/posts/new.:format?", "/posts/new", []string{""}, true},
		{"query stripped", "/posts/:id", "/posts/7?page=2", []string{"7"}, true},
		{"fragment stripped", "/posts/:id", "/posts/7#top", []string{"7"}, true},
		{"splat", "/files/*path", "/files/a/b/c.txt", []string{"a/b/c.txt"}, true},
		{"optional slash segment", "/blog/:page?", "/blog", []string{""}, true},
		{"optional slash present", "/blog/:page?", "/blog/3", []string{"3"}, true},
		{"mixed segment", "/archive/:year-:month", "/archive/2024-05", []string{"2024", "05"}, true},
		{"end to end", "/users/:id/posts/:post_id.:format?", "/users/7/posts/42.json", []string{"7", "42", "json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := MustCompile(tt.template)
			got, ok := p.Match(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_Root(t *testing.T) {
	t.Parallel()

	for _, tpl := range []string{"/", ""} {
		p := MustCompile(tpl)
		assert.True(t, p.IsRoot())

		_, ok := p.Match("/")
		assert.True(t, ok, "template %q should match /", tpl)
		_, ok = p.Match("")
		assert.True(t, ok, "template %q should match empty path", tpl)
		_, ok = p.Match("/posts")
		assert.False(t, ok, "template %q must not match /posts", tpl)
	}
}

// Substituting arbitrary segment values into a template and matching the
// result must give back the same values in the same order.
func TestMatch_RoundTrip(t *testing.T) {
	t.Parallel()

	templates := []string{
		"/:a",
		"/users/:id",
		"/users/:id/posts/:post_id",
		"/a/:x/b/:y/c/:z",
		"/shops/:shop/items/:item.:format?",
	}
	values := []string{"1", "42", "abc", "hello-world", "x_y", "%20encoded", "über", "a~b"}

	for _, tpl := range templates {
		p := MustCompile(tpl)
		names := p.Names()

		for shift := range values {
			vals := make(map[string]string, len(names))
			want := make([]string, len(names))
			for i, name := range names {
				v := values[(shift+i)%len(values)]
				vals[name] = v
				want[i] = v
			}

			path, err := p.Build(vals)
			require.NoError(t, err)

			got, ok := p.Match(path)
			require.True(t, ok, "template %s path %s", tpl, path)
			assert.Equal(t, want, got, "template %s path %s", tpl, path)
		}
	}
}

func TestParams(t *testing.T) {
	t.Parallel()

	p := MustCompile("/users/:id/posts/:post_id.:format?")

	params, ok := p.Params("/users/7/posts/42.json")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"id": "7", "post_id": "42", "format": "json"}, params)

	params, ok = p.Params("/users/7/posts/42")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"id": "7", "post_id": "42"}, params)

	_, ok = p.Params("/users/7")
	assert.False(t, ok)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	p := MustCompile("/posts/:id.:format?")

	got, err := p.Build(map[string]string{"id": "5"})
	require.NoError(t, err)
	assert.Equal(t, "/posts/5", got)

	got, err = p.Build(map[string]string{"id": "5", "format": "json"})
	require.NoError(t, err)
	assert.Equal(t, "/posts/5.json", got)

	_, err = p.Build(map[string]string{})
	require.ErrorIs(t, err, ErrMissingValue)

	root, err := MustCompile("/").Build(nil)
	require.NoError(t, err)
	assert.Equal(t, "/", root)
}

func TestVariables(t *testing.T) {
	t.Parallel()

	p := MustCompile("/files/*path.:format?")
	vars := p.Variables()
	require.Len(t, vars, 2)

	assert.Equal(t, Variable{Name: "path", Splat: true}, vars[0])
	assert.Equal(t, Variable{Name: "format", Optional: true, Prefix: '.'}, vars[1])
	assert.True(t, p.HasVariable("format"))
	assert.False(t, p.HasVariable("id"))

	vars[0].Name = "mutated"
	assert.Equal(t, "path", p.Names()[0], "Variables must return a copy")
}

func TestMatch_Concurrent(t *testing.T) {
	t.Parallel()

	p := MustCompile("/users/:id")
	done := make(chan struct{})

	for i := range 16 {
		go func() {
			defer func() { done <- struct{}{} }()
			id := fmt.Sprint(i)
			caps, ok := p.Match("/users/" + id)
			assert.True(t, ok)
			assert.Equal(t, []string{id}, caps)
		}()
	}

	for range 16 {
		<-done
	}
}

func BenchmarkMatch(b *testing.B) {
	p := MustCompile("/users/:id/posts/:post_id.:format?")
	path := "/users/" + strings.Repeat("7", 4) + "/posts/42.json"

	b.ReportAllocs()
	for b.Loop() {
		p.Match(path)
	}
}
