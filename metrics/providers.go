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
	"fmt"
	"strings"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

func (r *Recorder) initializeProvider() error {
	if r.customProvider {
		r.logger.Debug("using custom meter provider")
		r.meter = r.meterProvider.Meter(meterName)
		return nil
	}

	var reader sdkmetric.Reader
	switch r.provider {
	case PrometheusProvider:
		r.registry = promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(r.registry))
		if err != nil {
			return fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		r.handler = promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
		reader = exporter
	case OTLPProvider:
		exporter, err := otlpmetrichttp.New(context.Background(), otlpOptions(r.otlpEndpoint)...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))
	case StdoutProvider:
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(r.exportInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(r.resource()),
	)
	r.meterProvider = mp
	if r.registerGlobal {
		r.logger.Debug("setting global meter provider", "provider", string(r.provider))
		otel.SetMeterProvider(mp)
	}
	r.meter = mp.Meter(meterName)

	return nil
}

func (r *Recorder) resource() *resource.Resource {
	attrs := []attribute.KeyValue{attribute.String("service.name", r.serviceName)}
	if r.serviceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", r.serviceVersion))
	}

	return resource.NewSchemaless(attrs...)
}

// otlpOptions turns an endpoint URL into exporter options. A plain http
// scheme disables TLS; any path is dropped.
func otlpOptions(endpoint string) []otlpmetrichttp.Option {
	if endpoint == "" {
		return nil
	}

	insecure := false
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		insecure = true
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	}
	if host, _, found := strings.Cut(endpoint, "/"); found {
		endpoint = host
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	return opts
}
