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
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Option configures a [Recorder].
type Option func(*Recorder)

// WithPrometheus selects the Prometheus provider. Metrics are registered
// on a private registry and served by [Recorder.Handler].
func WithPrometheus() Option {
	return func(r *Recorder) {
		r.provider = PrometheusProvider
	}
}

// WithOTLP pushes metrics to the OTLP HTTP collector at endpoint, for
// example "http://localhost:4318".
func WithOTLP(endpoint string) Option {
	return func(r *Recorder) {
		r.provider = OTLPProvider
		r.otlpEndpoint = endpoint
	}
}

// WithStdout prints metrics every export interval.
func WithStdout() Option {
	return func(r *Recorder) {
		r.provider = StdoutProvider
	}
}

// WithProvider selects a provider by name, as found in configuration.
func WithProvider(p Provider) Option {
	return func(r *Recorder) {
		r.provider = p
	}
}

// WithMeterProvider records through a caller-owned meter provider. The
// provider options are ignored and [Recorder.Shutdown] leaves it running.
//
//	reader := sdkmetric.NewManualReader()
//	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
//	recorder := metrics.MustNew(metrics.WithMeterProvider(mp))
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Recorder) {
		r.meterProvider = provider
		r.customProvider = true
	}
}

// WithGlobalMeterProvider registers the created meter provider with
// otel.SetMeterProvider.
func WithGlobalMeterProvider() Option {
	return func(r *Recorder) {
		r.registerGlobal = true
	}
}

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(r *Recorder) {
		r.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(r *Recorder) {
		r.serviceVersion = version
	}
}

// WithExportInterval sets how often the OTLP and stdout providers export.
func WithExportInterval(interval time.Duration) Option {
	return func(r *Recorder) {
		r.exportInterval = interval
	}
}

// WithDurationBuckets sets the histogram boundaries in seconds.
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		r.durationBuckets = buckets
	}
}

// WithLogger sets the logger for the recorder's own diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithExcludePaths skips the given request paths in [Recorder.Middleware].
func WithExcludePaths(paths ...string) Option {
	return func(r *Recorder) {
		r.pathFilter.addPaths(paths...)
	}
}

// WithExcludePrefixes skips request paths with the given prefixes in
// [Recorder.Middleware].
func WithExcludePrefixes(prefixes ...string) Option {
	return func(r *Recorder) {
		r.pathFilter.addPrefixes(prefixes...)
	}
}

// WithExcludePatterns skips request paths matching the regular expressions
// in [Recorder.Middleware]. An invalid pattern makes [New] fail.
func WithExcludePatterns(patterns ...string) Option {
	return func(r *Recorder) {
		for _, pattern := range patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				r.optionErrors = append(r.optionErrors,
					fmt.Errorf("invalid exclude pattern %q: %w", pattern, err))
				continue
			}
			r.pathFilter.addPatterns(re)
		}
	}
}
