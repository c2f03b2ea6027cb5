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
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// TestRecorder pairs a [Recorder] with a manual reader for assertions.
type TestRecorder struct {
	*Recorder
	t      testing.TB
	reader *sdkmetric.ManualReader
}

// TestingRecorder returns a recorder backed by an in-memory reader. The
// meter provider is shut down when the test ends.
//
//	rec := metrics.TestingRecorder(t)
//	dispatcher := controller.NewDispatcher(reg, controller.WithObserver(rec))
//	...
//	assert.Equal(t, int64(1), rec.Sum("mvc.pool.acquisitions"))
func TestingRecorder(t testing.TB, opts ...Option) *TestRecorder {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	r, err := New(append(opts, WithMeterProvider(mp))...)
	if err != nil {
		t.Fatalf("TestingRecorder: failed to create recorder: %v", err)
	}

	return &TestRecorder{Recorder: r, t: t, reader: reader}
}

// Collect returns the named metric, or false when nothing was recorded.
func (tr *TestRecorder) Collect(name string) (metricdata.Metrics, bool) {
	tr.t.Helper()

	var rm metricdata.ResourceMetrics
	if err := tr.reader.Collect(context.Background(), &rm); err != nil {
		tr.t.Fatalf("collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}

	return metricdata.Metrics{}, false
}

// Sum returns the total of an integer counter across attribute sets.
func (tr *TestRecorder) Sum(name string) int64 {
	tr.t.Helper()

	m, ok := tr.Collect(name)
	if !ok {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		tr.t.Fatalf("%s is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

// Count returns the number of observations of a histogram across
// attribute sets.
func (tr *TestRecorder) Count(name string) uint64 {
	tr.t.Helper()

	m, ok := tr.Collect(name)
	if !ok {
		return 0
	}
	h, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		tr.t.Fatalf("%s is not a float64 histogram", name)
	}
	var total uint64
	for _, dp := range h.DataPoints {
		total += dp.Count
	}

	return total
}
