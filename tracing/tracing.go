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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider selects the span exporter.
type Provider string

const (
	// NoopProvider records nothing.
	NoopProvider Provider = "noop"

	// StdoutProvider pretty-prints spans, for development.
	StdoutProvider Provider = "stdout"

	// OTLPHTTPProvider exports to an OTLP HTTP collector. It is initialized
	// by [Tracer.Start].
	OTLPHTTPProvider Provider = "otlp-http"

	// OTLPGRPCProvider exports to an OTLP gRPC collector. It is initialized
	// by [Tracer.Start].
	OTLPGRPCProvider Provider = "otlp"
)

const tracerName = "rivaas.dev/mvc"

// Tracer owns a tracer provider and the propagator used at the HTTP edge.
type Tracer struct {
	provider       Provider
	tracerProvider trace.TracerProvider
	sdkProvider    *sdktrace.TracerProvider
	customProvider bool
	registerGlobal bool
	tracer         trace.Tracer
	propagator     propagation.TextMapPropagator
	logger         *slog.Logger
	serviceName    string
	serviceVersion string
	otlpEndpoint   string
	sampleRate     float64
	excludePaths   map[string]struct{}
	optionErrors   []error

	isStarted      atomic.Bool
	isShuttingDown atomic.Bool
}

// New creates a Tracer. The default provider is [NoopProvider].
func New(opts ...Option) (*Tracer, error) {
	t := &Tracer{
		provider: NoopProvider,
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		logger:       slog.New(slog.DiscardHandler),
		serviceName:  "mvc",
		sampleRate:   1,
		excludePaths: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	if err := t.initializeProvider(); err != nil {
		return nil, err
	}

	return t, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Tracer {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("tracing: failed to create tracer: %v", err))
	}

	return t
}

func (t *Tracer) validate() error {
	errs := append([]error(nil), t.optionErrors...)
	if t.serviceName == "" {
		errs = append(errs, errors.New("service name cannot be empty"))
	}
	if t.sampleRate < 0 || t.sampleRate > 1 {
		errs = append(errs, fmt.Errorf("sample rate must be between 0 and 1, got %v", t.sampleRate))
	}
	if t.customProvider && t.tracerProvider == nil {
		errs = append(errs, errors.New("custom tracer provider cannot be nil"))
	}
	switch t.provider {
	case NoopProvider, StdoutProvider, OTLPHTTPProvider, OTLPGRPCProvider:
	default:
		errs = append(errs, fmt.Errorf("unsupported tracing provider: %s", t.provider))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("tracing: invalid configuration: %w", err)
	}

	return nil
}

// Start initializes providers that export over the network. It is a no-op
// for the others and safe to call more than once.
func (t *Tracer) Start(ctx context.Context) error {
	if !t.isStarted.CompareAndSwap(false, true) {
		return nil
	}
	if t.customProvider {
		return nil
	}

	var err error
	switch t.provider {
	case OTLPHTTPProvider:
		err = t.initOTLPHTTPProvider(ctx)
	case OTLPGRPCProvider:
		err = t.initOTLPGRPCProvider(ctx)
	}
	if err != nil {
		t.isStarted.Store(false)
	}

	return err
}

// Tracer returns the tracer spans are started from. Before [Tracer.Start]
// an OTLP tracer hands out no-op spans.
func (t *Tracer) Tracer() trace.Tracer {
	if t.tracer == nil {
		return noop.NewTracerProvider().Tracer(tracerName)
	}

	return t.tracer
}

// TracerProvider returns the underlying provider.
func (t *Tracer) TracerProvider() trace.TracerProvider {
	if t.tracerProvider == nil {
		return noop.NewTracerProvider()
	}

	return t.tracerProvider
}

// Propagator returns the propagator used to read and write trace headers.
func (t *Tracer) Propagator() propagation.TextMapPropagator {
	return t.propagator
}

// Provider returns the configured provider.
func (t *Tracer) Provider() Provider {
	return t.provider
}

// ExtractTraceContext returns ctx carrying the remote span found in
// headers, if any.
func (t *Tracer) ExtractTraceContext(ctx context.Context, headers http.Header) context.Context {
	return t.propagator.Extract(ctx, propagation.HeaderCarrier(headers))
}

// InjectTraceContext writes the span in ctx to headers.
func (t *Tracer) InjectTraceContext(ctx context.Context, headers http.Header) {
	t.propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}

// Shutdown flushes and stops a provider the tracer created. Providers
// passed with [WithTracerProvider] are left to their owner.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	if t.sdkProvider == nil {
		return nil
	}
	if err := t.sdkProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracing: shutdown: %w", err)
	}
	t.logger.Debug("tracer provider shut down", "provider", string(t.provider))

	return nil
}

// TraceID returns the trace id of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}

	return sc.TraceID().String()
}

// SpanID returns the span id of the span in ctx, or "".
func SpanID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasSpanID() {
		return ""
	}

	return sc.SpanID().String()
}
