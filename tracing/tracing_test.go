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

package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{"empty service name", []Option{WithServiceName("")}},
		{"sample rate above one", []Option{WithSampleRate(1.5)}},
		{"negative sample rate", []Option{WithSampleRate(-0.1)}},
		{"unknown provider", []Option{WithProvider("zipkin", "")}},
		{"nil propagator", []Option{WithPropagator(nil)}},
		{"nil custom provider", []Option{WithTracerProvider(nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.opts...)
			require.Error(t, err)
			assert.Panics(t, func() { MustNew(tt.opts...) })
		})
	}
}

func TestNew_Providers(t *testing.T) {
	t.Parallel()

	noopTracer := MustNew()
	assert.Equal(t, NoopProvider, noopTracer.Provider())
	_, span := noopTracer.Tracer().Start(t.Context(), "x")
	assert.False(t, span.IsRecording())
	require.NoError(t, noopTracer.Start(t.Context()))
	require.NoError(t, noopTracer.Shutdown(t.Context()))

	stdout := MustNew(WithStdout(), WithServiceVersion("1.2.3"))
	assert.Equal(t, StdoutProvider, stdout.Provider())
	require.NoError(t, stdout.Shutdown(context.Background()))
	require.NoError(t, stdout.Shutdown(context.Background()), "idempotent")

	otlp := MustNew(WithOTLPHTTP("http://127.0.0.1:4318"))
	_, span = otlp.Tracer().Start(t.Context(), "before start")
	assert.False(t, span.IsRecording(), "no export before Start")
	require.NoError(t, otlp.Start(t.Context()))
	_, span = otlp.Tracer().Start(t.Context(), "after start")
	assert.True(t, span.IsRecording())
	span.End()
	require.NoError(t, otlp.Start(t.Context()), "start is idempotent")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = otlp.Shutdown(ctx)

	grpc := MustNew(WithOTLP("http://127.0.0.1:4317"))
	assert.Equal(t, OTLPGRPCProvider, grpc.Provider())
	require.NoError(t, grpc.Start(t.Context()))
	_, span = grpc.Tracer().Start(t.Context(), "after start")
	assert.True(t, span.IsRecording())
	span.End()
	_ = grpc.Shutdown(ctx)
}

func TestPropagation(t *testing.T) {
	t.Parallel()

	tracer, _ := TestingTracer(t)
	ctx, span := tracer.Tracer().Start(t.Context(), "client")
	defer span.End()

	headers := http.Header{}
	tracer.InjectTraceContext(ctx, headers)
	require.NotEmpty(t, headers.Get("traceparent"))

	remote := tracer.ExtractTraceContext(context.Background(), headers)
	assert.Equal(t, TraceID(ctx), TraceID(remote))
	assert.Equal(t, SpanID(ctx), SpanID(remote))
	assert.Empty(t, TraceID(context.Background()))
	assert.Empty(t, SpanID(context.Background()))
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	tracer, spans := TestingTracer(t, WithExcludePaths("/health"))

	var inner trace.SpanContext
	h := tracer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = trace.SpanContextFromContext(r.Context())
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	parent, parentSpan := tracer.Tracer().Start(t.Context(), "upstream")
	req := httptest.NewRequest(http.MethodGet, "/posts?page=2", nil)
	tracer.InjectTraceContext(parent, req.Header)
	parentSpan.End()

	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/boom", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	got := spans.GetSpans()
	require.Len(t, got, 3, "upstream and two server spans")

	posts := got[1]
	assert.Equal(t, "GET /posts", posts.Name)
	assert.Equal(t, trace.SpanKindServer, posts.SpanKind)
	assert.Equal(t, parentSpan.SpanContext().TraceID(), posts.SpanContext.TraceID(), "continues the remote trace")
	assert.Contains(t, posts.Attributes, attribute.Int("http.status_code", http.StatusOK))
	assert.Contains(t, posts.Attributes, attribute.String("http.target", "/posts?page=2"))

	boom := got[2]
	assert.Equal(t, codes.Error, boom.Status.Code)
	assert.Contains(t, boom.Attributes, attribute.Int("http.status_code", http.StatusBadGateway))

	assert.False(t, inner.IsValid(), "excluded path carries no span")
}

func TestOTLPOptions(t *testing.T) {
	t.Parallel()

	assert.Nil(t, otlpOptions(""))
	assert.Len(t, otlpOptions("http://collector:4318/v1/traces"), 2)
	assert.Len(t, otlpOptions("collector:4318"), 1)

	host, insecure := splitEndpoint("http://collector:4317/")
	assert.Equal(t, "collector:4317", host)
	assert.True(t, insecure)
	host, insecure = splitEndpoint("https://collector:4317")
	assert.Equal(t, "collector:4317", host)
	assert.False(t, insecure)
}
