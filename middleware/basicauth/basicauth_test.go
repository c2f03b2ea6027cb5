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

package basicauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whoami() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(Username(r.Context())))
	})
}

func get(h http.Handler, path, user, pass string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestNew_Users(t *testing.T) {
	t.Parallel()

	h := New(WithUsers(map[string]string{"admin": "s3cret"}), WithRealm("Admin"))(whoami())

	tests := []struct {
		name       string
		user, pass string
		wantStatus int
	}{
		{name: "valid", user: "admin", pass: "s3cret", wantStatus: http.StatusOK},
		{name: "wrong password", user: "admin", pass: "nope", wantStatus: http.StatusUnauthorized},
		{name: "unknown user", user: "root", pass: "s3cret", wantStatus: http.StatusUnauthorized},
		{name: "no credentials", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := get(h, "/admin", tt.user, tt.pass)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "admin", rec.Body.String())
				return
			}
			assert.Equal(t, `Basic realm="Admin", charset="UTF-8"`, rec.Header().Get("WWW-Authenticate"))
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")

			var p map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
			assert.InDelta(t, float64(http.StatusUnauthorized), p["status"], 0)
		})
	}
}

func TestNew_Validator(t *testing.T) {
	t.Parallel()

	h := New(
		WithUsers(map[string]string{"admin": "ignored"}),
		WithValidator(func(user, pass string) bool { return user == pass }),
	)(whoami())

	assert.Equal(t, http.StatusOK, get(h, "/", "bob", "bob").Code)
	assert.Equal(t, http.StatusUnauthorized, get(h, "/", "admin", "ignored").Code)
}

func TestNew_SkipPaths(t *testing.T) {
	t.Parallel()

	h := New(WithUsers(map[string]string{"admin": "x"}), WithSkipPaths("/admin/ping"))(whoami())

	rec := get(h, "/admin/ping", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, http.StatusUnauthorized, get(h, "/admin", "", "").Code)
}

func TestNew_UnauthorizedHandler(t *testing.T) {
	t.Parallel()

	h := New(WithUnauthorizedHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "go away", http.StatusForbidden)
	})))(whoami())

	rec := get(h, "/", "a", "b")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "go away")
	assert.Equal(t, `Basic realm="Restricted", charset="UTF-8"`, rec.Header().Get("WWW-Authenticate"))
}
