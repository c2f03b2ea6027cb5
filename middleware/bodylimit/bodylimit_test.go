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

package bodylimit

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "rivaas.dev/mvc/errors"
)

func echo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(rerrors.StatusOf(err))
			_, _ = io.WriteString(w, err.Error())
			return
		}
		_, _ = w.Write(body)
	})
}

func TestBodyLimit_ContentLength(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(strings.Repeat("x", 11)))
	rec := httptest.NewRecorder()
	New(WithMaxSize(10))(echo()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "application/problem+json; charset=utf-8", rec.Header().Get("Content-Type"))
	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.InDelta(t, 413, problem["status"], 0)
}

func TestBodyLimit_UnknownLength(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/posts", io.NopCloser(strings.NewReader(strings.Repeat("x", 64))))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	New(WithMaxSize(10))(echo()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrBodyTooLarge.Error())
}

func TestBodyLimit_UnderLimit(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader("title=hi"))
	rec := httptest.NewRecorder()
	New()(echo()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "title=hi", rec.Body.String())
}

func TestBodyLimit_Skip(t *testing.T) {
	t.Parallel()

	mw := New(WithMaxSize(4), WithSkipPaths("/upload"), WithSkipPrefix("/admin/"))
	for _, path := range []string{"/upload", "/admin/import"} {
		rec := httptest.NewRecorder()
		mw(echo()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader("0123456789")))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestBodyLimit_CustomHandler(t *testing.T) {
	t.Parallel()

	var got error
	mw := New(WithMaxSize(1), WithHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	mw(echo()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ab")))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, errors.Is(got, ErrBodyTooLarge))
}
