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

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	rec := TestingRecorder(t,
		WithExcludePaths("/health"),
		WithExcludePrefixes("/assets/"),
		WithExcludePatterns(`^/debug/.*`),
	)
	h := rec.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/posts", "/missing", "/health", "/assets/app.css", "/debug/vars"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, int64(2), rec.Sum("http.server.requests"))
	assert.Equal(t, uint64(2), rec.Count("http.server.request.duration"))
	assert.Equal(t, int64(0), rec.Sum("http.server.active_requests"), "gauge returns to zero")

	m, ok := rec.Collect("http.server.requests")
	require.True(t, ok)
	statuses := map[string]int64{}
	for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("http.status_code"))
		statuses[v.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"200": 1, "404": 1}, statuses)
}

func TestPathFilter(t *testing.T) {
	t.Parallel()

	var nilFilter *pathFilter
	assert.False(t, nilFilter.excluded("/x"))

	pf := newPathFilter()
	pf.addPaths("/health")
	pf.addPrefixes("/internal/")
	assert.True(t, pf.excluded("/health"))
	assert.True(t, pf.excluded("/internal/stats"))
	assert.False(t, pf.excluded("/healthz"))
}
