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
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a [Tracer].
type Option func(*Tracer)

// WithNoop disables span recording.
func WithNoop() Option {
	return func(t *Tracer) {
		t.provider = NoopProvider
	}
}

// WithStdout pretty-prints finished spans to stdout.
func WithStdout() Option {
	return func(t *Tracer) {
		t.provider = StdoutProvider
	}
}

// WithOTLPHTTP exports spans to the OTLP HTTP collector at endpoint, for
// example "http://localhost:4318".
func WithOTLPHTTP(endpoint string) Option {
	return func(t *Tracer) {
		t.provider = OTLPHTTPProvider
		t.otlpEndpoint = endpoint
	}
}

// WithOTLP exports spans to the OTLP gRPC collector at endpoint, for
// example "http://localhost:4317".
func WithOTLP(endpoint string) Option {
	return func(t *Tracer) {
		t.provider = OTLPGRPCProvider
		t.otlpEndpoint = endpoint
	}
}

// WithProvider selects a provider by name, as found in configuration.
// endpoint is used by the OTLP providers only.
func WithProvider(p Provider, endpoint string) Option {
	return func(t *Tracer) {
		t.provider = p
		t.otlpEndpoint = endpoint
	}
}

// WithTracerProvider records through a caller-owned provider. Provider
// options and the sample rate are ignored.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *Tracer) {
		t.tracerProvider = provider
		t.customProvider = true
	}
}

// WithGlobalTracerProvider registers the provider and propagator with the
// otel package globals.
func WithGlobalTracerProvider() Option {
	return func(t *Tracer) {
		t.registerGlobal = true
	}
}

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(t *Tracer) {
		t.serviceVersion = version
	}
}

// WithSampleRate sets the fraction of root spans that are sampled, 0 to 1.
// Child spans follow their parent's decision.
func WithSampleRate(rate float64) Option {
	return func(t *Tracer) {
		t.sampleRate = rate
	}
}

// WithPropagator replaces the default W3C trace context and baggage
// propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(t *Tracer) {
		if p == nil {
			t.optionErrors = append(t.optionErrors, errors.New("propagator cannot be nil"))
			return
		}
		t.propagator = p
	}
}

// WithLogger sets the logger for the tracer's own diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithExcludePaths skips the given request paths in [Tracer.Middleware].
func WithExcludePaths(paths ...string) Option {
	return func(t *Tracer) {
		for _, p := range paths {
			t.excludePaths[p] = struct{}{}
		}
	}
}
