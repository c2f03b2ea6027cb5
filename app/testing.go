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

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	rerrors "rivaas.dev/mvc/errors"
)

// TestOption configures [App.Test].
type TestOption func(*testConfig)

type testConfig struct {
	timeout time.Duration
	ctx     context.Context //nolint:containedctx // test request configuration
}

// WithTimeout bounds the test request. Use -1 for no timeout.
func WithTimeout(d time.Duration) TestOption {
	return func(cfg *testConfig) {
		cfg.timeout = d
	}
}

// WithContext runs the test request under ctx.
func WithContext(ctx context.Context) TestOption {
	return func(cfg *testConfig) {
		cfg.ctx = ctx
	}
}

// Test serves req through the complete handler, middleware and built-in
// endpoints included, without starting a server.
//
// On timeout Test returns an error right away; the handler goroutine
// keeps running until it returns.
//
//	resp, err := a.Test(httptest.NewRequest("GET", "/posts/1", nil))
//	require.NoError(t, err)
//	assert.Equal(t, http.StatusOK, resp.StatusCode)
func (a *App) Test(req *http.Request, opts ...TestOption) (*http.Response, error) {
	cfg := &testConfig{
		timeout: time.Second,
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := cfg.ctx
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}
	req = req.WithContext(ctx)

	recorder := httptest.NewRecorder()
	done := make(chan any, 1)
	go func() {
		defer func() {
			done <- recover()
		}()
		a.handler.ServeHTTP(recorder, req)
	}()

	select {
	case p := <-done:
		if p != nil {
			return nil, fmt.Errorf("handler panicked: %v", p)
		}
		return recorder.Result(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("request timeout: %w", ctx.Err())
	}
}

// TestRequest is a shorthand for [App.Test] on a new request. A form
// body is sent as application/x-www-form-urlencoded.
func (a *App) TestRequest(method, target, form string, opts ...TestOption) (*http.Response, error) {
	var body io.Reader
	if form != "" {
		body = strings.NewReader(form)
	}
	req := httptest.NewRequest(method, target, body)
	if form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return a.Test(req, opts...)
}

// testingT is the part of testing.T used by the helpers below.
type testingT interface {
	Helper()
	Errorf(format string, args ...any)
}

// ExpectProblem checks that resp is a problem-details response with
// status and returns the decoded problem.
//
//	p := app.ExpectProblem(t, resp, http.StatusNotFound)
//	assert.Contains(t, p.Detail, "no route matches")
func ExpectProblem(t testingT, resp *http.Response, status int) rerrors.ProblemDetail {
	t.Helper()

	var p rerrors.ProblemDetail
	if resp.StatusCode != status {
		t.Errorf("expected status %d, got %d", status, resp.StatusCode)
		return p
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/problem+json") {
		t.Errorf("expected Content-Type application/problem+json, got %s", ct)
		return p
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Errorf("failed to read response body: %v", err)
		return p
	}
	if err = json.Unmarshal(body, &p); err != nil {
		t.Errorf("failed to decode problem: %v\nBody: %s", err, body)
	}

	return p
}
