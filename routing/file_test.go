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

package routing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogRoutes = `
routes:
  - root: pages#home
  - get: /about
    to: pages#about
  - match: /contact
    via: [get, post]
    to: pages#contact
  - resources: posts
    with_patch: true
    routes:
      - resources: comments
        only: [create, destroy]
      - post: publish
        to: posts#publish
        on: member
  - resource: profile
    except: [destroy]
    format: false
  - namespace: admin
    routes:
      - resources: users
        only: [index]
`

func TestDecode_MatchesDSL(t *testing.T) {
	t.Parallel()

	fromFile, err := Decode([]byte(blogRoutes))
	require.NoError(t, err)

	fileRouter, _ := draw(t, fromFile)
	dslRouter, _ := draw(t, func(m *Map) {
		m.Root("pages#home")
		m.Get("/about", "pages#about")
		m.Match([]string{"GET", "POST"}, "/contact", "pages#contact")
		m.Resources("posts", func(m *Map) {
			m.Resources("comments", nil, Only("create", "destroy"))
			m.Post("publish", "posts#publish", OnMember())
		}, WithPatch())
		m.Resource("profile", nil, Except("destroy"), WithoutFormat())
		m.Namespace("admin", func(m *Map) {
			m.Resources("users", nil, Only("index"))
		})
	})

	assert.Equal(t, describe(dslRouter.Routes()), describe(fileRouter.Routes()))
	assert.Equal(t, dslRouter.Helpers().Names(), fileRouter.Helpers().Names())
	assert.Len(t, fileRouter.Routes(), 1+1+2+8+2+1+5+1)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "routes: ["},
		{"two kinds", "routes:\n  - get: /a\n    post: /a\n    to: a#b\n"},
		{"no kind", "routes:\n  - to: a#b\n"},
		{"match without via", "routes:\n  - match: /a\n    to: a#b\n"},
		{"bad verb", "routes:\n  - match: /a\n    via: [fetch]\n    to: a#b\n"},
		{"bad on", "routes:\n  - resources: posts\n    routes:\n      - get: x\n        to: a#b\n        on: sideways\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode([]byte(tt.doc))
			require.ErrorIs(t, err, ErrInvalidRoutesFile)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(blogRoutes), 0o600))

	fn, err := LoadFile(path)
	require.NoError(t, err)

	r, _ := draw(t, fn)
	assert.Equal(t, "/posts/4/comments", r.Helpers().URL("post_comments", 4))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
