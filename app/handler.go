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
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"

	"rivaas.dev/mvc/metrics"
	"rivaas.dev/mvc/middleware/accesslog"
	"rivaas.dev/mvc/middleware/bodylimit"
	"rivaas.dev/mvc/middleware/compression"
	"rivaas.dev/mvc/middleware/cors"
	"rivaas.dev/mvc/middleware/methodoverride"
	"rivaas.dev/mvc/middleware/ratelimit"
	"rivaas.dev/mvc/middleware/recovery"
	"rivaas.dev/mvc/middleware/requestid"
	"rivaas.dev/mvc/middleware/security"
	"rivaas.dev/mvc/middleware/timeout"
	"rivaas.dev/mvc/middleware/trailingslash"
	"rivaas.dev/mvc/tracing"
)

// buildHandler assembles, from the outside in:
//
//	requestid, tracing, metrics, accesslog, recovery,
//	built-in endpoints, then for application routes:
//	cors, ratelimit, trailingslash, security, compression, timeout,
//	bodylimit, methodoverride, user middleware, router.
//
// The optional stages are left out when their settings are unset.
func (a *App) buildHandler(user []Middleware) error {
	s := a.settings.Server
	production := a.settings.IsProduction()

	secOpt := security.DevelopmentPreset()
	if production {
		secOpt = security.ProductionPreset()
	}
	var inner []Middleware
	if c := a.settings.CORS; len(c.AllowedOrigins) > 0 {
		inner = append(inner, cors.New(
			cors.WithAllowedOrigins(c.AllowedOrigins...),
			cors.WithAllowCredentials(c.AllowCredentials),
			cors.WithMaxAge(c.MaxAge),
			cors.WithExposedHeaders(requestid.DefaultHeader),
		))
	}
	if rl := a.settings.RateLimit; rl.Enabled {
		limiter := ratelimit.New(
			ratelimit.WithRequestsPerSecond(rl.RequestsPerSecond),
			ratelimit.WithBurst(rl.Burst),
			ratelimit.WithLogger(a.logger),
			ratelimit.WithFormatter(a.formatter),
		)
		a.OnStop(limiter.Close)
		inner = append(inner, limiter.Middleware)
	}
	if s.TrailingSlash != "" {
		policy, err := trailingslash.ParsePolicy(s.TrailingSlash)
		if err != nil {
			return err
		}
		inner = append(inner, trailingslash.New(
			trailingslash.WithPolicy(policy),
			trailingslash.WithFormatter(a.formatter),
		))
	}
	inner = append(inner, security.New(secOpt))
	if s.Compression {
		inner = append(inner, compression.New(
			compression.WithLogger(a.logger),
			compression.WithExcludePaths(a.settings.Metrics.Path),
		))
	}
	if s.RequestTimeout > 0 {
		inner = append(inner, timeout.New(
			timeout.WithDuration(s.RequestTimeout),
			timeout.WithLogger(a.logger),
			timeout.WithFormatter(a.formatter),
		))
	}
	if s.MaxBodySize > 0 {
		inner = append(inner, bodylimit.New(
			bodylimit.WithMaxSize(s.MaxBodySize),
			bodylimit.WithFormatter(a.formatter),
		))
	}
	inner = append(inner, methodoverride.New())
	inner = append(inner, user...)

	mux := http.NewServeMux()
	mux.Handle("GET "+healthzPath, a.healthzHandler())
	mux.Handle("GET "+readyzPath, a.readyzHandler())
	if a.metrics != nil && a.metrics.Provider() == metrics.PrometheusProvider {
		h, err := a.metrics.Handler()
		if err != nil {
			return fmt.Errorf("failed to mount metrics endpoint: %w", err)
		}
		mux.Handle("GET "+a.settings.Metrics.Path, h)
	}
	mux.Handle("/", chain(a.router, inner))

	accessOpts := []accesslog.Option{
		accesslog.WithLogger(a.logger),
		accesslog.WithExcludePaths(healthzPath, readyzPath, a.settings.Metrics.Path),
	}
	if production {
		accessOpts = append(accessOpts, accesslog.WithErrorsOnly())
	}
	outer := []Middleware{
		requestid.New(),
		a.tracing.Middleware,
	}
	if a.metrics != nil {
		outer = append(outer, a.metrics.Middleware)
	}
	outer = append(outer,
		accesslog.New(accessOpts...),
		recovery.New(recovery.WithLogger(a.logger), recovery.WithFormatter(a.formatter)),
	)
	a.handler = chain(mux, outer)

	return nil
}

// chain wraps h so that mw[0] runs first.
func chain(h http.Handler, mw []Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}

	return h
}

// liveTracer resolves the tracer on every span so spans started after
// [App.Start] reach exporters initialized there.
type liveTracer struct {
	embedded.Tracer

	t *tracing.Tracer
}

func (l liveTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return l.t.Tracer().Start(ctx, name, opts...)
}
