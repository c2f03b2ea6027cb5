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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"rivaas.dev/mvc/controller"
	"rivaas.dev/mvc/routing"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{"empty service name", []Option{WithServiceName("")}},
		{"unknown provider", []Option{WithProvider("statsd")}},
		{"bad exclude pattern", []Option{WithExcludePatterns("(")}},
		{"unsorted buckets", []Option{WithDurationBuckets(1, 0.5)}},
		{"zero export interval", []Option{WithExportInterval(0)}},
		{"nil custom provider", []Option{WithMeterProvider(nil)}},
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

func TestRecorder_Observer(t *testing.T) {
	t.Parallel()

	rec := TestingRecorder(t)
	ctx := t.Context()

	rec.Acquired(ctx, "posts", false)
	rec.Acquired(ctx, "posts", true)
	rec.Acquired(ctx, "posts", true)
	rec.StepFinished(ctx, "posts", "show", controller.StepTiming{Name: "show", Kind: controller.ActionStep, Elapsed: time.Millisecond}, nil)
	rec.DoubleRender(ctx, "posts", "show")
	rec.Dispatched(ctx, "posts", "show", 2*time.Millisecond, errors.New("boom"))
	rec.RouteMismatch(ctx, http.MethodGet)

	assert.Equal(t, int64(3), rec.Sum("mvc.pool.acquisitions"))
	assert.Equal(t, uint64(1), rec.Count("mvc.step.duration"))
	assert.Equal(t, int64(1), rec.Sum("mvc.render.double"))
	assert.Equal(t, uint64(1), rec.Count("mvc.dispatch.duration"))
	assert.Equal(t, int64(1), rec.Sum("mvc.routing.mismatches"))

	m, ok := rec.Collect("mvc.pool.acquisitions")
	require.True(t, ok)
	byResult := map[string]int64{}
	for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("result"))
		byResult[v.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"hit": 2, "miss": 1}, byResult)

	m, ok = rec.Collect("mvc.dispatch.duration")
	require.True(t, ok)
	dp := m.Data.(metricdata.Histogram[float64]).DataPoints[0]
	v, _ := dp.Attributes.Value(attribute.Key("outcome"))
	assert.Equal(t, "error", v.AsString())
}

type pagesController struct {
	controller.Base
}

func newPages() controller.Controller {
	c := &pagesController{}
	c.Before(func(context.Context) error { return nil })
	c.Action("about", func(context.Context) error {
		if err := c.Text(http.StatusOK, "about"); err != nil {
			return err
		}
		return c.Text(http.StatusOK, "again")
	})

	return c
}

func TestRecorder_WithDispatcher(t *testing.T) {
	t.Parallel()

	rec := TestingRecorder(t)
	reg := controller.NewRegistry()
	reg.MustRegister("pages", newPages)
	d := controller.NewDispatcher(reg, controller.WithObserver(rec))
	r := routing.MustNew(d.Bridge(), routing.WithNoRoute(rec.NoRoute(nil)))
	r.Draw(func(m *routing.Map) {
		m.Get("/about", "pages#about")
	})

	for range 2 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/about", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "about", w.Body.String())
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, int64(2), rec.Sum("mvc.pool.acquisitions"))
	assert.Equal(t, uint64(2), rec.Count("mvc.dispatch.duration"))
	assert.Equal(t, uint64(4), rec.Count("mvc.step.duration"), "one filter and the action per request")
	assert.Equal(t, int64(2), rec.Sum("mvc.render.double"))
	assert.Equal(t, int64(1), rec.Sum("mvc.routing.mismatches"))
}

func TestRecorder_PrometheusHandler(t *testing.T) {
	t.Parallel()

	rec, err := New(WithServiceName("blog"), WithServiceVersion("1.0.0"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Shutdown(context.Background()) })
	assert.Equal(t, PrometheusProvider, rec.Provider())
	assert.Equal(t, "blog", rec.ServiceName())

	rec.Acquired(t.Context(), "posts", true)
	rec.RouteMismatch(t.Context(), http.MethodPost)

	h, err := rec.Handler()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "mvc_pool_acquisitions")
	assert.Contains(t, body, "mvc_routing_mismatches")
	assert.Contains(t, body, `service_name="blog"`)
}

func TestRecorder_HandlerRequiresPrometheus(t *testing.T) {
	t.Parallel()

	rec := TestingRecorder(t)
	_, err := rec.Handler()
	require.ErrorIs(t, err, ErrNoHandler)
}

func TestRecorder_ShutdownIdempotent(t *testing.T) {
	t.Parallel()

	rec := MustNew(WithStdout(), WithExportInterval(time.Hour))
	require.NoError(t, rec.Shutdown(t.Context()))
	require.NoError(t, rec.Shutdown(t.Context()))

	tr := TestingRecorder(t)
	require.NoError(t, tr.Shutdown(t.Context()), "custom providers are left running")
}

func TestOTLPOptions(t *testing.T) {
	t.Parallel()

	assert.Nil(t, otlpOptions(""))
	assert.Len(t, otlpOptions("http://collector:4318/v1/metrics"), 2, "endpoint and insecure")
	assert.Len(t, otlpOptions("https://collector:4318"), 1)
}
