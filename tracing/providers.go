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
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace/noop"
)

func (t *Tracer) initializeProvider() error {
	if t.customProvider {
		t.logger.Debug("using custom tracer provider")
		t.tracer = t.tracerProvider.Tracer(tracerName)
		t.setGlobal()
		return nil
	}

	switch t.provider {
	case NoopProvider:
		t.tracerProvider = noop.NewTracerProvider()
		t.tracer = t.tracerProvider.Tracer(tracerName)
	case StdoutProvider:
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		t.install(sdktrace.WithBatcher(exporter))
		t.logger.Info("tracing initialized", "provider", "stdout", "service", t.serviceName)
	case OTLPHTTPProvider, OTLPGRPCProvider:
		t.logger.Debug("deferring provider until Start", "provider", string(t.provider))
	}

	return nil
}

func (t *Tracer) initOTLPHTTPProvider(ctx context.Context) error {
	exporter, err := otlptracehttp.New(ctx, otlpOptions(t.otlpEndpoint)...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}
	t.install(sdktrace.WithBatcher(exporter))
	t.logger.Info("tracing initialized", "provider", "otlp-http",
		"endpoint", t.otlpEndpoint, "service", t.serviceName)

	return nil
}

func (t *Tracer) initOTLPGRPCProvider(ctx context.Context) error {
	var opts []otlptracegrpc.Option
	if host, insecure := splitEndpoint(t.otlpEndpoint); host != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(host))
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}
	t.install(sdktrace.WithBatcher(exporter))
	t.logger.Info("tracing initialized", "provider", "otlp",
		"endpoint", t.otlpEndpoint, "service", t.serviceName)

	return nil
}

func (t *Tracer) install(exporter sdktrace.TracerProviderOption) {
	tp := sdktrace.NewTracerProvider(
		exporter,
		sdktrace.WithResource(createResource(t.serviceName, t.serviceVersion)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.sampleRate))),
	)
	t.sdkProvider = tp
	t.tracerProvider = tp
	t.tracer = tp.Tracer(tracerName)
	t.setGlobal()
}

func (t *Tracer) setGlobal() {
	if !t.registerGlobal {
		return
	}
	t.logger.Debug("setting global tracer provider", "provider", string(t.provider))
	otel.SetTracerProvider(t.tracerProvider)
	otel.SetTextMapPropagator(t.propagator)
}

// otlpOptions turns an endpoint URL into exporter options. A plain http
// scheme disables TLS; any path is dropped.
func otlpOptions(endpoint string) []otlptracehttp.Option {
	host, insecure := splitEndpoint(endpoint)
	if host == "" {
		return nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(host)}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	return opts
}

// splitEndpoint reduces an endpoint URL to host:port and reports whether
// it used the plain http scheme.
func splitEndpoint(endpoint string) (host string, insecure bool) {
	if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint, insecure = trimmed, true
	} else if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = trimmed
	}
	host, _, _ = strings.Cut(endpoint, "/")

	return host, insecure
}

func createResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}
