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
	"errors"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	rerrors "rivaas.dev/mvc/errors"
)

// CheckFunc reports whether a dependency is healthy. The context carries
// the per-check timeout.
type CheckFunc func(ctx context.Context) error

type healthSettings struct {
	liveness  map[string]CheckFunc
	readiness map[string]CheckFunc
	timeout   time.Duration
}

// WithLivenessCheck adds a check to GET /healthz. Liveness checks should
// only cover the process itself.
func WithLivenessCheck(name string, fn CheckFunc) Option {
	return func(o *options) {
		o.health.liveness[name] = fn
	}
}

// WithReadinessCheck adds a check to GET /readyz, typically for a
// database or cache the app cannot serve without.
func WithReadinessCheck(name string, fn CheckFunc) Option {
	return func(o *options) {
		o.health.readiness[name] = fn
	}
}

// WithCheckTimeout bounds every health check. The default is one second.
func WithCheckTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.health.timeout = d
		}
	}
}

func (a *App) healthzHandler() http.Handler {
	return a.probe(a.health.liveness, "ok", "one or more liveness checks failed")
}

func (a *App) readyzHandler() http.Handler {
	return a.probe(a.health.readiness, "", "one or more dependencies are not ready")
}

// probe answers 200 with body, or 204 when body is empty, unless a check
// fails, in which case it answers 503 naming the failed checks.
func (a *App) probe(checks map[string]CheckFunc, body, failure string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		if failures := runChecks(r.Context(), checks, a.health.timeout); len(failures) > 0 {
			names := slices.Sorted(maps.Keys(failures))
			a.logger.WarnContext(r.Context(), "health check failed", "path", r.URL.Path, "checks", names)
			err := rerrors.WithStatus(errors.New(failure+": "+strings.Join(names, ", ")), http.StatusServiceUnavailable)
			_ = rerrors.Write(w, a.formatter.Format(r, err))
			return
		}

		if body == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(body))
	})
}

// runChecks runs every check concurrently, each under its own timeout,
// and returns the failures by name.
func runChecks(ctx context.Context, checks map[string]CheckFunc, timeout time.Duration) map[string]string {
	type result struct {
		name string
		err  error
	}

	results := make(chan result, len(checks))
	for name, fn := range checks {
		go func() {
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			results <- result{name, fn(checkCtx)}
		}()
	}

	failures := make(map[string]string)
	for range len(checks) {
		r := <-results
		if r.err != nil {
			failures[r.name] = r.err.Error()
		}
	}

	return failures
}
