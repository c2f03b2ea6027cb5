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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"rivaas.dev/mvc/controller"
)

// DefaultDurationBuckets are the histogram boundaries, in seconds, used
// for dispatch, step and request durations.
var DefaultDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// ErrNoHandler is returned by [Recorder.Handler] when the provider does not
// serve a scrape endpoint.
var ErrNoHandler = errors.New("metrics: handler only available with the prometheus provider")

// Provider selects the metrics exporter.
type Provider string

const (
	// PrometheusProvider exposes a scrape endpoint through [Recorder.Handler].
	PrometheusProvider Provider = "prometheus"

	// OTLPProvider pushes to an OTLP HTTP collector.
	OTLPProvider Provider = "otlp"

	// StdoutProvider periodically prints metrics, for development.
	StdoutProvider Provider = "stdout"
)

const meterName = "rivaas.dev/mvc/metrics"

// Recorder records dispatcher and HTTP metrics. It implements
// [controller.Observer] so it can be handed to the dispatcher directly.
//
// Recorder is safe for concurrent use.
type Recorder struct {
	provider        Provider
	meterProvider   metric.MeterProvider
	customProvider  bool
	registerGlobal  bool
	meter           metric.Meter
	registry        *promclient.Registry
	handler         http.Handler
	logger          *slog.Logger
	serviceName     string
	serviceVersion  string
	otlpEndpoint    string
	exportInterval  time.Duration
	durationBuckets []float64
	pathFilter      *pathFilter
	optionErrors    []error

	dispatchDuration metric.Float64Histogram
	stepDuration     metric.Float64Histogram
	poolAcquisitions metric.Int64Counter
	doubleRenders    metric.Int64Counter
	routeMismatches  metric.Int64Counter
	requestDuration  metric.Float64Histogram
	requestCount     metric.Int64Counter
	activeRequests   metric.Int64UpDownCounter

	isShuttingDown atomic.Bool
}

var _ controller.Observer = (*Recorder)(nil)

// New creates a Recorder. The default provider is Prometheus.
func New(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		provider:        PrometheusProvider,
		logger:          slog.New(slog.DiscardHandler),
		serviceName:     "mvc",
		exportInterval:  30 * time.Second,
		durationBuckets: DefaultDurationBuckets,
		pathFilter:      newPathFilter(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}

	if err := r.initializeProvider(); err != nil {
		return nil, err
	}
	if err := r.initializeMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("metrics: failed to create recorder: %v", err))
	}

	return r
}

func (r *Recorder) validate() error {
	errs := append([]error(nil), r.optionErrors...)
	if r.serviceName == "" {
		errs = append(errs, errors.New("service name cannot be empty"))
	}
	if r.customProvider && r.meterProvider == nil {
		errs = append(errs, errors.New("custom meter provider cannot be nil"))
	}
	if r.exportInterval <= 0 {
		errs = append(errs, fmt.Errorf("export interval must be positive, got %v", r.exportInterval))
	}
	for i := 1; i < len(r.durationBuckets); i++ {
		if r.durationBuckets[i] <= r.durationBuckets[i-1] {
			errs = append(errs, errors.New("duration buckets must be strictly increasing"))
			break
		}
	}
	switch r.provider {
	case PrometheusProvider, OTLPProvider, StdoutProvider:
	default:
		errs = append(errs, fmt.Errorf("unsupported metrics provider: %s", r.provider))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("metrics: invalid configuration: %w", err)
	}

	return nil
}

func (r *Recorder) initializeMetrics() error {
	var err error
	buckets := metric.WithExplicitBucketBoundaries(r.durationBuckets...)

	if r.dispatchDuration, err = r.meter.Float64Histogram("mvc.dispatch.duration",
		metric.WithDescription("Time spent performing a controller action, filters included"),
		metric.WithUnit("s"), buckets); err != nil {
		return fmt.Errorf("failed to create dispatch duration histogram: %w", err)
	}
	if r.stepDuration, err = r.meter.Float64Histogram("mvc.step.duration",
		metric.WithDescription("Time spent in one filter pipeline step"),
		metric.WithUnit("s"), buckets); err != nil {
		return fmt.Errorf("failed to create step duration histogram: %w", err)
	}
	if r.poolAcquisitions, err = r.meter.Int64Counter("mvc.pool.acquisitions",
		metric.WithDescription("Controller instances handed out, by pool hit or miss")); err != nil {
		return fmt.Errorf("failed to create pool counter: %w", err)
	}
	if r.doubleRenders, err = r.meter.Int64Counter("mvc.render.double",
		metric.WithDescription("Render calls ignored because the response was already rendered")); err != nil {
		return fmt.Errorf("failed to create double render counter: %w", err)
	}
	if r.routeMismatches, err = r.meter.Int64Counter("mvc.routing.mismatches",
		metric.WithDescription("Requests no route answered")); err != nil {
		return fmt.Errorf("failed to create mismatch counter: %w", err)
	}
	if r.requestDuration, err = r.meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s"), buckets); err != nil {
		return fmt.Errorf("failed to create request duration histogram: %w", err)
	}
	if r.requestCount, err = r.meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of HTTP requests")); err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}
	if r.activeRequests, err = r.meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests")); err != nil {
		return fmt.Errorf("failed to create active request counter: %w", err)
	}

	return nil
}

// Handler returns the Prometheus scrape handler.
func (r *Recorder) Handler() (http.Handler, error) {
	if r.provider != PrometheusProvider || r.handler == nil {
		return nil, fmt.Errorf("%w, current provider: %s", ErrNoHandler, r.provider)
	}

	return r.handler, nil
}

// Provider returns the configured provider.
func (r *Recorder) Provider() Provider {
	return r.provider
}

// ServiceName returns the service name reported with every metric.
func (r *Recorder) ServiceName() string {
	return r.serviceName
}

// StepFinished implements [controller.Observer].
func (r *Recorder) StepFinished(ctx context.Context, ctrl, action string, t controller.StepTiming, err error) {
	r.stepDuration.Record(ctx, t.Elapsed.Seconds(), metric.WithAttributes(
		attribute.String("mvc.controller", ctrl),
		attribute.String("mvc.action", action),
		attribute.String("mvc.step.kind", t.Kind.String()),
		attribute.String("outcome", outcome(err)),
	))
}

// DoubleRender implements [controller.Observer].
func (r *Recorder) DoubleRender(ctx context.Context, ctrl, action string) {
	r.doubleRenders.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mvc.controller", ctrl),
		attribute.String("mvc.action", action),
	))
}

// Acquired implements [controller.Observer].
func (r *Recorder) Acquired(ctx context.Context, ctrl string, reused bool) {
	result := "miss"
	if reused {
		result = "hit"
	}
	r.poolAcquisitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mvc.controller", ctrl),
		attribute.String("result", result),
	))
}

// Dispatched implements [controller.Observer].
func (r *Recorder) Dispatched(ctx context.Context, ctrl, action string, elapsed time.Duration, err error) {
	r.dispatchDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("mvc.controller", ctrl),
		attribute.String("mvc.action", action),
		attribute.String("outcome", outcome(err)),
	))
}

// RouteMismatch counts a request that no route answered.
func (r *Recorder) RouteMismatch(ctx context.Context, method string) {
	r.routeMismatches.Add(ctx, 1, metric.WithAttributes(attribute.String("http.method", method)))
}

// NoRoute wraps the handler that runs when no route matched so that every
// such request is counted.
func (r *Recorder) NoRoute(h http.Handler) http.Handler {
	if h == nil {
		h = http.NotFoundHandler()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.RouteMismatch(req.Context(), req.Method)
		h.ServeHTTP(w, req)
	})
}

// Shutdown flushes and stops a meter provider the recorder created.
// Providers passed with [WithMeterProvider] are left to their owner.
// Calling it more than once is safe.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if !r.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	if r.customProvider {
		r.logger.Debug("skipping shutdown of custom meter provider")
		return nil
	}

	mp, ok := r.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}
	if err := mp.ForceFlush(ctx); err != nil {
		r.logger.Warn("failed to flush metrics", "error", err)
	}
	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	r.logger.Debug("meter provider shut down", "provider", string(r.provider))

	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
