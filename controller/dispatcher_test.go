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

package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"rivaas.dev/mvc/routing"
)

type recordingObserver struct {
	mu            sync.Mutex
	steps         []string
	doubleRenders int
	acquired      []bool
	dispatched    []string
}

func (o *recordingObserver) StepFinished(_ context.Context, controller, action string, t StepTiming, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, controller+"#"+action+":"+t.Name)
}

func (o *recordingObserver) DoubleRender(context.Context, string, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.doubleRenders++
}

func (o *recordingObserver) Acquired(_ context.Context, _ string, reused bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.acquired = append(o.acquired, reused)
}

func (o *recordingObserver) Dispatched(_ context.Context, controller, action string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry := controller + "#" + action
	if err != nil {
		entry += " failed"
	}
	o.dispatched = append(o.dispatched, entry)
}

// postsController renders its name, action and id.
type postsController struct {
	Base
	instance int64
}

var instances atomic.Int64

func newPosts() Controller {
	c := &postsController{instance: instances.Add(1)}
	c.Action("index", func(context.Context) error {
		return c.Text(http.StatusOK, c.Name()+"#index")
	})
	c.Action("show", func(context.Context) error {
		return c.Text(http.StatusOK, c.Name()+"#show:"+c.Param("id"))
	})
	c.Action("fail", func(context.Context) error {
		return errors.New("database down")
	})
	c.Action("panic", func(context.Context) error {
		panic("boom")
	})

	return c
}

func newApp(t *testing.T, opts ...DispatcherOption) (*routing.Router, *Dispatcher) {
	t.Helper()

	reg := NewRegistry()
	reg.MustRegister("posts", newPosts)
	reg.MustRegister("admin/posts", newPosts)

	d := NewDispatcher(reg, opts...)
	r := routing.MustNew(d.Bridge())

	return r, d
}

func get(h http.Handler, target, host string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if host != "" {
		req.Host = host
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register("Admin/Posts", newPosts))
	require.ErrorIs(t, reg.Register("admin/posts", newPosts), ErrDuplicateController)
	require.ErrorIs(t, reg.Register("x", nil), ErrNilFactory)
	assert.Panics(t, func() { reg.MustRegister("admin/posts", newPosts) })

	_, ok := reg.Lookup("/admin/posts")
	assert.True(t, ok)
	assert.Equal(t, []string{"admin/posts"}, reg.Names())

	d := NewDispatcher(reg)
	_, err := d.Resolve("missing")
	require.ErrorIs(t, err, ErrUnknownController)
}

func TestDispatcher_EndToEnd(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	r, d := newApp(t, WithObserver(obs))
	r.Draw(func(m *routing.Map) {
		m.Resources("posts", nil, routing.Only("index", "show"))
		m.Namespace("admin", func(m *routing.Map) {
			m.Resources("posts", nil, routing.Only("index"))
		})
	})

	rec := get(r, "/posts/42.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "posts#show:42", rec.Body.String())

	rec = get(r, "/admin/posts", "")
	assert.Equal(t, "admin/posts#index", rec.Body.String())

	rec = get(r, "/posts", "")
	assert.Equal(t, "posts#index", rec.Body.String())

	stats := d.Stats()
	assert.Equal(t, uint64(2), stats["posts"].TotalGets)
	assert.Equal(t, uint64(1), stats["posts"].Hits)
	assert.Equal(t, []bool{false, false, true}, obs.acquired)
	assert.Contains(t, obs.steps, "posts#show:show")
	assert.Equal(t, []string{"posts#show", "admin/posts#index", "posts#index"}, obs.dispatched)
}

func TestDispatcher_ServedRequestStopsRouting(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	r, _ := newApp(t, WithObserver(obs))
	r.Draw(func(m *routing.Map) {
		m.Get("/posts/:id", "posts#show")
		m.Get("/:controller/:id", "#show")
	})

	rec := get(r, "/posts/9", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "posts#show:9", rec.Body.String())
	assert.Equal(t, []string{"posts#show"}, obs.dispatched)
}

func TestDispatcher_DynamicTarget(t *testing.T) {
	t.Parallel()

	r, _ := newApp(t)
	r.Draw(func(m *routing.Map) {
		m.Get("/:controller/:action?/:id?", "")
	})

	assert.Equal(t, "posts#show:5", get(r, "/posts/show/5", "").Body.String())
	assert.Equal(t, "posts#index", get(r, "/posts", "").Body.String())
	assert.Equal(t, http.StatusNotFound, get(r, "/comments/index", "").Code, "unknown controller falls through")
}

func TestDispatcher_UnknownAction(t *testing.T) {
	t.Parallel()

	r, _ := newApp(t)
	r.Draw(func(m *routing.Map) {
		m.Get("/posts/feed", "posts#feed")
	})

	rec := get(r, "/posts/feed", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "feed")
}

func TestDispatcher_UnknownControllerFallsThrough(t *testing.T) {
	t.Parallel()

	r, _ := newApp(t)
	r.Draw(func(m *routing.Map) {
		m.Get("/home", "pages#home")
		m.Get("/home", "posts#index")
	})

	rec := get(r, "/home", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "posts#index", rec.Body.String())
}

func TestDispatcher_Subdomain(t *testing.T) {
	t.Parallel()

	r, _ := newApp(t)
	r.Draw(func(m *routing.Map) {
		m.Get("/", "admin/posts#index", routing.Subdomain("admin"))
		m.Get("/", "posts#index")
	})

	assert.Equal(t, "admin/posts#index", get(r, "/", "admin.example.com:8080").Body.String())
	assert.Equal(t, "posts#index", get(r, "/", "www.example.com").Body.String())
	assert.Equal(t, "posts#index", get(r, "/", "example.com").Body.String())
}

func TestDispatcher_ErrorReleasesInstance(t *testing.T) {
	t.Parallel()

	r, d := newApp(t)
	r.Draw(func(m *routing.Map) {
		m.Get("/fail", "posts#fail")
		m.Get("/panic", "posts#panic")
	})

	rec := get(r, "/fail", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, d.Stats()["posts"].Idle)

	assert.Panics(t, func() { get(r, "/panic", "") })
	assert.Equal(t, 1, d.Stats()["posts"].Idle, "released on panic")
}

func TestDispatcher_HotReload(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	r, d := newApp(t, WithHotReload(true), WithObserver(obs))
	r.Draw(func(m *routing.Map) {
		m.Get("/posts", "posts#index")
	})
	assert.True(t, d.HotReload())

	get(r, "/posts", "")
	get(r, "/posts", "")
	assert.Equal(t, []bool{false, false}, obs.acquired)
	assert.Empty(t, d.Stats())

	d.SetHotReload(false)
	get(r, "/posts", "")
	get(r, "/posts", "")
	assert.Equal(t, []bool{false, false, false, true}, obs.acquired)
}

func TestDispatcher_Warmup(t *testing.T) {
	t.Parallel()

	_, d := newApp(t, WithMaxIdle(2))
	d.Warmup(4)

	stats := d.Stats()
	assert.Equal(t, 2, stats["posts"].Idle)
	assert.Equal(t, 2, stats["admin/posts"].Idle)
}

func TestDispatcher_Tracing(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r, _ := newApp(t, WithTracer(tp.Tracer("test")))
	r.Draw(func(m *routing.Map) {
		m.Get("/posts", "posts#index")
		m.Get("/fail", "posts#fail")
	})
	get(r, "/posts", "")
	get(r, "/fail", "")

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "controller.dispatch", spans[0].Name)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "step", spans[0].Events[0].Name)

	require.Len(t, spans[1].Events, 2, "step event and recorded error")
	assert.Equal(t, "step", spans[1].Events[0].Name)
	assert.Equal(t, "exception", spans[1].Events[1].Name)
}

func TestDispatcher_Concurrent(t *testing.T) {
	t.Parallel()

	r, d := newApp(t)
	r.Draw(func(m *routing.Map) {
		m.Resources("posts", nil, routing.Only("show"))
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			for range 50 {
				rec := get(r, "/posts/1", "")
				if rec.Body.String() != "posts#show:1" {
					t.Errorf("unexpected body %q", rec.Body.String())
				}
			}
		})
	}
	wg.Wait()

	s := d.Stats()["posts"]
	assert.Equal(t, s.TotalGets, s.TotalPuts)
}

func TestMatchSubdomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		host    string
		tld     int
		want    bool
	}{
		{"admin", "admin.example.com", 1, true},
		{"admin", "admin.example.com:3000", 1, true},
		{"admin", "www.example.com", 1, false},
		{"*", "anything.example.com", 1, true},
		{"*", "example.com", 1, false},
		{"*.api", "v1.api.example.com", 1, true},
		{"api", "v1.api.example.com", 1, false},
		{"admin", "admin.example.co.uk", 2, true},
		{"admin", "admin.example.co.uk", 1, false},
		{"ADMIN", "Admin.Example.com", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"@"+tt.host, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MatchSubdomain(tt.pattern, tt.host, tt.tld))
		})
	}
}
