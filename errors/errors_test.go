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

package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedError struct {
	msg, code string
	status    int
	details   any
}

func (e *codedError) Error() string   { return e.msg }
func (e *codedError) Code() string    { return e.code }
func (e *codedError) HTTPStatus() int { return e.status }
func (e *codedError) Details() any    { return e.details }

func TestRFC9457_Format(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/posts/7", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"plain", errors.New("boom"), http.StatusInternalServerError, "about:blank"},
		{"with status", WithStatus(errors.New("gone"), http.StatusNotFound), http.StatusNotFound, "about:blank"},
		{"coded", &codedError{msg: "bad", code: "invalid_post", status: http.StatusUnprocessableEntity}, http.StatusUnprocessableEntity, "https://blog.example.com/problems/invalid_post"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewRFC9457("https://blog.example.com/problems")
			resp := f.Format(req, tt.err)

			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "application/problem+json; charset=utf-8", resp.ContentType)

			p, ok := resp.Body.(ProblemDetail)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, http.StatusText(tt.wantStatus), p.Title)
			assert.Equal(t, "/posts/7", p.Instance)
			assert.Equal(t, tt.err.Error(), p.Detail)
			assert.True(t, strings.HasPrefix(p.Extensions["error_id"].(string), "err-"))
		})
	}
}

func TestRFC9457_Extensions(t *testing.T) {
	t.Parallel()

	f := &RFC9457{DisableErrorID: true}
	err := &codedError{msg: "invalid", code: "validation", status: 400, details: []string{"title is blank"}}

	resp := f.Format(httptest.NewRequest(http.MethodPost, "/posts", nil), err)
	p := resp.Body.(ProblemDetail)

	assert.NotContains(t, p.Extensions, "error_id")
	assert.Equal(t, []string{"title is blank"}, p.Extensions["errors"])
	assert.Equal(t, "validation", p.Extensions["code"])
	assert.Equal(t, "validation", p.Type)
}

func TestRFC9457_HideInternal(t *testing.T) {
	t.Parallel()

	f := &RFC9457{HideInternal: true, DisableErrorID: true}
	resp := f.Format(httptest.NewRequest(http.MethodGet, "/", nil), errors.New("dial tcp 10.0.0.3:5432: refused"))

	p := resp.Body.(ProblemDetail)
	assert.Equal(t, "Internal Server Error", p.Detail)

	resp = f.Format(httptest.NewRequest(http.MethodGet, "/", nil), WithStatus(errors.New("no such post"), 404))
	assert.Equal(t, "no such post", resp.Body.(ProblemDetail).Detail)
}

func TestProblemDetail_MarshalJSON(t *testing.T) {
	t.Parallel()

	p := ProblemDetail{
		Type:   "about:blank",
		Title:  "Not Found",
		Status: 404,
		Extensions: map[string]any{
			"status":   500,
			"trace_id": "abc",
		},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.InDelta(t, 404, m["status"], 0)
	assert.Equal(t, "abc", m["trace_id"])
	assert.NotContains(t, m, "detail")

	var back ProblemDetail
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 404, back.Status)
	assert.Equal(t, map[string]any{"trace_id": "abc"}, back.Extensions)
}

func TestSimple_Format(t *testing.T) {
	t.Parallel()

	f := NewSimple()
	resp := f.Format(nil, &codedError{msg: "nope", code: "forbidden", status: 403, details: map[string]string{"role": "guest"}})

	assert.Equal(t, 403, resp.Status)
	assert.Equal(t, "application/json; charset=utf-8", resp.ContentType)

	body := resp.Body.(map[string]any)
	assert.Equal(t, "nope", body["error"])
	assert.Equal(t, "forbidden", body["code"])
	assert.Equal(t, map[string]string{"role": "guest"}, body["details"])

	f.StatusResolver = func(error) int { return http.StatusTeapot }
	assert.Equal(t, http.StatusTeapot, f.Format(nil, errors.New("x")).Status)
}

func TestWrite(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := Write(rec, Response{
		Status:      http.StatusNotFound,
		ContentType: "application/json",
		Body:        map[string]string{"error": "missing"},
		Headers:     http.Header{"X-Reason": {"route"}},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "route", rec.Header().Get("X-Reason"))
	assert.JSONEq(t, `{"error":"missing"}`, rec.Body.String())
}

func TestWithStatus(t *testing.T) {
	t.Parallel()

	base := errors.New("base")
	err := WithStatus(base, http.StatusConflict)

	require.ErrorIs(t, err, base)
	assert.Equal(t, http.StatusConflict, StatusOf(err))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(base))
	assert.NoError(t, WithStatus(nil, 400))
}
