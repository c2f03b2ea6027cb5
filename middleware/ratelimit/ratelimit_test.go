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

package ratelimit

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newLimited(t *testing.T, opts ...Option) (http.Handler, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(append([]Option{withClock(clock.Now)}, opts...)...)
	t.Cleanup(l.Close)

	return l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})), clock
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestLimiter_Burst(t *testing.T) {
	t.Parallel()

	h, _ := newLimited(t, WithRequestsPerSecond(1), WithBurst(3))

	for i := range 3 {
		rec := hit(h, "10.0.0.1:1234")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.Equal(t, "3", rec.Header().Get("RateLimit-Limit"))
	}
	assert.Equal(t, "0", hit(h, "10.0.0.1:1").Header().Get("RateLimit-Remaining"))

	rec := hit(h, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestLimiter_Refill(t *testing.T) {
	t.Parallel()

	h, clock := newLimited(t, WithRequestsPerSecond(2), WithBurst(1))

	require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1").Code)

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code)
}

func TestLimiter_PerClient(t *testing.T) {
	t.Parallel()

	h, _ := newLimited(t, WithRequestsPerSecond(1), WithBurst(1))

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:2").Code)
}

func TestLimiter_KeyFunc(t *testing.T) {
	t.Parallel()

	h, _ := newLimited(t, WithBurst(1), WithKeyFunc(func(r *http.Request) string {
		return r.Header.Get("X-API-Key")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "k1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A different address with the same key shares the bucket.
	req.RemoteAddr = "192.0.2.9:80"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLimiter_ReportOnly(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h, _ := newLimited(t, WithBurst(1), WithReportOnly(), WithLogger(logger))

	hit(h, "10.0.0.1:1")
	rec := hit(h, "10.0.0.1:1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, logs.String(), `"msg":"rate limit exceeded"`)
	assert.Contains(t, logs.String(), `"key":"ip:10.0.0.1"`)
}

func TestLimiter_Handler(t *testing.T) {
	t.Parallel()

	h, _ := newLimited(t, WithBurst(1), WithHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	})))

	hit(h, "10.0.0.1:1")
	rec := hit(h, "10.0.0.1:1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "slow down")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "ip:2001:db8::1", ClientIP(req))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "ip:pipe", ClientIP(req))
}
