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
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"rivaas.dev/mvc/helper"
	"rivaas.dev/mvc/routing"
)

// DefaultAction is used when a route leaves the action to the ":action"
// path variable and the request does not bind it.
const DefaultAction = "index"

// DispatcherOption configures a [Dispatcher].
type DispatcherOption func(*Dispatcher)

// WithHotReload builds a fresh instance for every request and discards it
// afterwards, so code changes in factories apply without a restart.
func WithHotReload(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.hotReload.Store(enabled)
	}
}

// WithLogger sets the logger handed to controllers and used for dispatch
// diagnostics.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithHelpers sets the source of the current URL helper registry.
func WithHelpers(fn func() *helper.Registry) DispatcherOption {
	return func(d *Dispatcher) {
		d.helpers = fn
	}
}

// WithRenderer sets the view renderer handed to controllers.
func WithRenderer(r Renderer) DispatcherOption {
	return func(d *Dispatcher) {
		d.renderer = r
	}
}

// WithObserver sets the receiver of step, render and pool diagnostics.
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// WithTracer records a span around every dispatch.
func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

// WithTLDLength sets how many labels after the domain name form the
// top-level domain. The default 1 fits "example.com"; use 2 for
// "example.co.uk".
func WithTLDLength(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.tldLength = n
	}
}

// WithMaxIdle bounds the idle instances kept per controller. 0 means
// unbounded.
func WithMaxIdle(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxIdle = n
	}
}

// Dispatcher connects routes to controllers. Its [Dispatcher.Bridge] is
// given to the router; each resulting dispatch function resolves the
// controller, takes an instance from that controller's pool, performs the
// action and returns the instance.
type Dispatcher struct {
	registry  *Registry
	logger    *slog.Logger
	helpers   func() *helper.Registry
	renderer  Renderer
	observer  Observer
	tracer    trace.Tracer
	tldLength int
	maxIdle   int
	hotReload atomic.Bool

	mu    sync.Mutex
	pools map[string]*Pool[Controller]
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		tldLength: 1,
		pools:     make(map[string]*Pool[Controller]),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	if d.observer == nil {
		d.observer = NopObserver{}
	}
	if d.tracer == nil {
		d.tracer = noop.NewTracerProvider().Tracer("rivaas.dev/mvc/controller")
	}

	return d
}

// SetHotReload switches hot-reload mode at runtime.
func (d *Dispatcher) SetHotReload(enabled bool) {
	d.hotReload.Store(enabled)
}

// HotReload reports whether hot-reload mode is on.
func (d *Dispatcher) HotReload() bool {
	return d.hotReload.Load()
}

// Bridge returns the [routing.Bridge] that binds declarations to this
// dispatcher.
func (d *Dispatcher) Bridge() routing.Bridge {
	return func(namespace, controller, action string, opts routing.RouteOptions) routing.DispatchFunc {
		return func(w http.ResponseWriter, r *http.Request, next routing.NextFunc) {
			if opts.Subdomain != "" && !MatchSubdomain(opts.Subdomain, r.Host, d.tldLength) {
				next(nil)
				return
			}

			name, act := d.resolveTarget(namespace, controller, action, r)
			if _, ok := d.registry.Lookup(name); !ok {
				d.logger.Debug("no controller for route, falling through", "controller", name)
				next(nil)
				return
			}

			if err := d.dispatch(r.Context(), name, act, w, r); err != nil {
				next(err)
			}
		}
	}
}

// Resolve returns the factory registered under the fully qualified name.
func (d *Dispatcher) Resolve(name string) (Factory, error) {
	f, ok := d.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownController, name)
	}

	return f, nil
}

// Stats returns the pool statistics per controller name.
func (d *Dispatcher) Stats() map[string]PoolStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]PoolStats, len(d.pools))
	for name, p := range d.pools {
		out[name] = p.Stats()
	}

	return out
}

// Warmup pre-builds n idle instances of every registered controller.
func (d *Dispatcher) Warmup(n int) {
	for _, name := range d.registry.Names() {
		if p := d.pool(name); p != nil {
			p.Warmup(n)
		}
	}
}

func (d *Dispatcher) resolveTarget(namespace, controller, action string, r *http.Request) (string, string) {
	params := routing.Params(r)
	if controller == "" {
		controller = params["controller"]
	}
	if action == "" {
		action = params["action"]
	}
	if action == "" {
		action = DefaultAction
	}
	if namespace != "" {
		controller = namespace + "/" + controller
	}

	return normalizeName(controller), action
}

// dispatch performs action on an instance of controller name. The instance
// goes back to its pool only after Perform returned, also when it panicked.
func (d *Dispatcher) dispatch(ctx context.Context, name, action string, w http.ResponseWriter, r *http.Request) (err error) {
	ctx, span := d.tracer.Start(ctx, "controller.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("mvc.controller", name),
			attribute.String("mvc.action", action),
		))
	defer span.End()

	start := time.Now()
	defer func() {
		d.observer.Dispatched(ctx, name, action, time.Since(start), err)
	}()

	c, release, err := d.acquire(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer release()

	if err = c.Perform(ctx, action, w, r.WithContext(ctx)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (d *Dispatcher) acquire(ctx context.Context, name string) (Controller, func(), error) {
	if d.hotReload.Load() {
		f, err := d.Resolve(name)
		if err != nil {
			return nil, nil, err
		}
		c := f()
		d.attach(c, name)
		d.observer.Acquired(ctx, name, false)

		return c, func() {}, nil
	}

	p := d.pool(name)
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownController, name)
	}
	c, reused := p.Acquire()
	d.observer.Acquired(ctx, name, reused)

	return c, func() { p.Release(c) }, nil
}

// pool returns the pool of controller name, creating it on first use.
func (d *Dispatcher) pool(name string) *Pool[Controller] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pools[name]; ok {
		return p
	}

	f, ok := d.registry.Lookup(name)
	if !ok {
		return nil
	}
	p := NewPool(func() Controller {
		c := f()
		d.attach(c, name)
		return c
	}, func(c Controller) { c.Reset() }, d.maxIdle)
	d.pools[name] = p

	return p
}

func (d *Dispatcher) attach(c Controller, name string) {
	a, ok := c.(Attacher)
	if !ok {
		return
	}
	a.Attach(Env{
		Name:     name,
		Logger:   d.logger.With("controller", name),
		Helpers:  d.helpers,
		Renderer: d.renderer,
		Observer: spanEvents{d.observer},
	})
}

// spanEvents records each finished step as an event on the dispatch span
// before forwarding to the configured observer.
type spanEvents struct {
	Observer
}

func (s spanEvents) StepFinished(ctx context.Context, controller, action string, t StepTiming, err error) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		attrs := []attribute.KeyValue{
			attribute.String("mvc.step", t.Name),
			attribute.String("mvc.step.kind", t.Kind.String()),
			attribute.Int64("mvc.step.elapsed_us", t.Elapsed.Microseconds()),
		}
		if err != nil {
			attrs = append(attrs, attribute.String("error", err.Error()))
		}
		span.AddEvent("step", trace.WithAttributes(attrs...), trace.WithTimestamp(t.Start))
	}
	s.Observer.StepFinished(ctx, controller, action, t, err)
}

// MatchSubdomain reports whether the leading labels of host satisfy
// pattern. The leading labels are all labels except the last
// 1+tldLength; a port is ignored. Labels are compared positionally, "*"
// matches any label, and both sides must have the same number of labels.
func MatchSubdomain(pattern, host string, tldLength int) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	labels := strings.Split(strings.ToLower(host), ".")
	keep := len(labels) - (1 + tldLength)
	if keep < 0 {
		keep = 0
	}
	leading := labels[:keep]

	want := strings.Split(strings.ToLower(pattern), ".")
	if len(want) != len(leading) {
		return false
	}
	for i, label := range want {
		if label != "*" && label != leading[i] {
			return false
		}
	}

	return true
}
