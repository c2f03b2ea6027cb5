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

package compression

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var page = strings.Repeat("<p>hello compression</p>", 200)

func serve(t *testing.T, mw func(http.Handler) http.Handler, accept, path string, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept-Encoding", accept)
	}
	rec := httptest.NewRecorder()
	mw(h).ServeHTTP(rec, req)

	return rec
}

func htmlHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body[:len(body)/2])
		_, _ = io.WriteString(w, body[len(body)/2:])
	}
}

func TestCompression_Brotli(t *testing.T) {
	t.Parallel()

	rec := serve(t, New(), "gzip, br", "/posts", htmlHandler(page))

	require.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	assert.Contains(t, rec.Header().Values("Vary"), "Accept-Encoding")
	body, err := io.ReadAll(brotli.NewReader(rec.Body))
	require.NoError(t, err)
	assert.Equal(t, page, string(body))
}

func TestCompression_Gzip(t *testing.T) {
	t.Parallel()

	rec := serve(t, New(WithGzipLevel(gzip.BestSpeed)), "gzip;q=0.8, br;q=0", "/posts", htmlHandler(page))

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, page, string(body))
}

func TestCompression_PassThrough(t *testing.T) {
	t.Parallel()

	png := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = io.WriteString(w, page)
	}

	tests := []struct {
		name    string
		mw      func(http.Handler) http.Handler
		accept  string
		path    string
		handler http.HandlerFunc
	}{
		{"no accept header", New(), "", "/posts", htmlHandler(page)},
		{"identity only", New(), "identity", "/posts", htmlHandler(page)},
		{"small body", New(), "br", "/posts", htmlHandler("<p>hi</p>")},
		{"excluded path", New(WithExcludePaths("/events")), "br", "/events", htmlHandler(page)},
		{"excluded extension", New(), "br", "/logo.png", htmlHandler(page)},
		{"binary content type", New(), "br", "/raw", png},
		{"gzip only offered but disabled", New(WithGzipDisabled()), "gzip", "/posts", htmlHandler(page)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(t, tt.mw, tt.accept, tt.path, tt.handler)
			assert.Empty(t, rec.Header().Get("Content-Encoding"))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.NotEmpty(t, rec.Body.String())
		})
	}
}

func TestCompression_Wildcard(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "br", cfgOf().negotiate("*"))
	assert.Equal(t, "gzip", cfgOf(WithBrotliDisabled()).negotiate("*"))
	assert.Empty(t, cfgOf().negotiate("*;q=0"))
	assert.Equal(t, "gzip", cfgOf().negotiate("br;q=0, *"))
	assert.Equal(t, "br", cfgOf().negotiate("BR;q=0.5"))
}

func TestCompression_StatusPreserved(t *testing.T) {
	t.Parallel()

	rec := serve(t, New(WithMinSize(1)), "gzip", "/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "not found")
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	rec = serve(t, New(WithMinSize(1)), "gzip", "/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
}

func cfgOf(opts ...Option) *config {
	cfg := &config{enableGzip: true, enableBrotli: true}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}
