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

package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"rivaas.dev/mvc/config"
	"rivaas.dev/mvc/controller"
	rerrors "rivaas.dev/mvc/errors"
	"rivaas.dev/mvc/helper"
	"rivaas.dev/mvc/logging"
	"rivaas.dev/mvc/metrics"
	"rivaas.dev/mvc/routing"
	"rivaas.dev/mvc/tracing"
	"rivaas.dev/mvc/view"
)

const (
	healthzPath = "/healthz"
	readyzPath  = "/readyz"
)

// Middleware wraps an http.Handler.
type Middleware = func(http.Handler) http.Handler

// App ties the route table, the controller dispatcher, the view renderer
// and the observability stack to an HTTP server.
type App struct {
	settings   config.Settings
	logging    *logging.Logger
	logger     *slog.Logger
	metrics    *metrics.Recorder
	tracing    *tracing.Tracer
	renderer   *view.Renderer
	dispatcher *controller.Dispatcher
	router     *routing.Router
	formatter  rerrors.Formatter
	handler    http.Handler
	hooks      *Hooks
	health     *healthSettings
	out        io.Writer
	banner     bool
	routesFile string
	routes     func(*routing.Map)
	started    atomic.Bool
}

// New builds an App. Routes declared with [WithRoutes] are drawn first,
// followed by those of the settings' routes file.
func New(opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	a := &App{
		settings:   *o.settings,
		hooks:      &Hooks{},
		health:     o.health,
		out:        o.out,
		formatter:  rerrors.NewRFC9457(o.problemBase),
		routesFile: o.settings.RoutesFile,
		routes:     o.routes,
	}
	a.banner = a.settings.Environment != "test"
	if o.banner != nil {
		a.banner = *o.banner
	}

	if err := a.initLogging(o.logger); err != nil {
		return nil, err
	}
	if err := a.initTracing(o.tracingOpts); err != nil {
		return nil, err
	}
	if err := a.initMetrics(o.metricsOpts); err != nil {
		return nil, err
	}
	if err := a.initViews(o.views); err != nil {
		return nil, err
	}
	if err := a.initRouting(o); err != nil {
		return nil, err
	}
	if err := a.buildHandler(o.middleware); err != nil {
		return nil, err
	}

	return a, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *App {
	a, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("app: %v", err))
	}

	return a
}

func (a *App) initLogging(l *logging.Logger) error {
	if l == nil {
		level, err := logging.ParseLevel(a.settings.Log.Level)
		if err != nil {
			return err
		}
		l, err = logging.New(
			logging.WithHandlerType(logging.HandlerType(a.settings.Log.Format)),
			logging.WithLevel(level),
			logging.WithServiceName(a.settings.Service.Name),
			logging.WithServiceVersion(a.settings.Service.Version),
			logging.WithEnvironment(a.settings.Environment),
		)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
	}
	a.logging = l
	if a.banner {
		// Held until the banner is printed.
		a.logging.StartBuffering()
	}
	a.logger = a.logging.Logger()

	return nil
}

func (a *App) initTracing(extra []tracing.Option) error {
	s := a.settings.Tracing
	opts := []tracing.Option{
		tracing.WithProvider(tracing.Provider(s.Provider), s.Endpoint),
		tracing.WithServiceName(a.settings.Service.Name),
		tracing.WithServiceVersion(a.settings.Service.Version),
		tracing.WithSampleRate(s.SampleRate),
		tracing.WithLogger(a.logger),
		tracing.WithExcludePaths(healthzPath, readyzPath, a.settings.Metrics.Path),
	}
	t, err := tracing.New(append(opts, extra...)...)
	if err != nil {
		return err
	}
	a.tracing = t

	return nil
}

func (a *App) initMetrics(extra []metrics.Option) error {
	s := a.settings.Metrics
	if !s.Enabled {
		return nil
	}

	opts := []metrics.Option{
		metrics.WithServiceName(a.settings.Service.Name),
		metrics.WithServiceVersion(a.settings.Service.Version),
		metrics.WithLogger(a.logger),
		metrics.WithExcludePaths(healthzPath, readyzPath, s.Path),
	}
	if metrics.Provider(s.Provider) == metrics.OTLPProvider {
		opts = append(opts, metrics.WithOTLP(s.Endpoint))
	} else {
		opts = append(opts, metrics.WithProvider(metrics.Provider(s.Provider)))
	}
	r, err := metrics.New(append(opts, extra...)...)
	if err != nil {
		return err
	}
	a.metrics = r

	return nil
}

func (a *App) initViews(views fs.FS) error {
	if views == nil && a.settings.ViewsDir != "" {
		views = os.DirFS(a.settings.ViewsDir)
	}
	if views == nil {
		return nil
	}

	r, err := view.New(views,
		view.WithHelpers(a.helpers),
		view.WithReload(a.settings.HotReload),
		view.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.renderer = r

	return nil
}

func (a *App) initRouting(o *options) error {
	dopts := []controller.DispatcherOption{
		controller.WithLogger(a.logger),
		controller.WithHotReload(a.settings.HotReload),
		controller.WithHelpers(a.helpers),
		controller.WithTracer(liveTracer{t: a.tracing}),
		controller.WithTLDLength(a.settings.Subdomain.TLDLength),
		controller.WithMaxIdle(a.settings.Pool.MaxIdle),
	}
	if a.metrics != nil {
		dopts = append(dopts, controller.WithObserver(a.metrics))
	}
	if a.renderer != nil {
		dopts = append(dopts, controller.WithRenderer(a.renderer))
	}
	a.dispatcher = controller.NewDispatcher(o.controllers, dopts...)

	var notFound http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := rerrors.WithStatus(fmt.Errorf("no route matches %s %s", r.Method, r.URL.Path), http.StatusNotFound)
		_ = rerrors.Write(w, a.formatter.Format(r, err))
	})
	if a.metrics != nil {
		notFound = a.metrics.NoRoute(notFound)
	}

	ropts := []routing.RouterOption{
		routing.WithLogger(a.logger),
		routing.WithFormatter(a.formatter),
		routing.WithNoRoute(notFound),
	}
	if o.host != "" {
		ropts = append(ropts, routing.WithHelperOptions(helper.WithHost(o.host)))
	}
	if o.methodNotAllowed {
		ropts = append(ropts, routing.WithMethodNotAllowed())
	}
	router, err := routing.New(a.dispatcher.Bridge(), ropts...)
	if err != nil {
		return err
	}
	a.router = router

	draw, err := a.drawRoutes()
	if err != nil {
		return err
	}
	if draw == nil {
		return ErrNoRoutes
	}
	if err = a.router.Reload(draw); err != nil {
		return fmt.Errorf("failed to draw routes: %w", err)
	}

	if n := a.settings.Pool.Warmup; n > 0 {
		a.dispatcher.Warmup(n)
	}

	return nil
}

// helpers returns the registry of the current route table. Views and
// controllers call it per render so reloads are picked up.
func (a *App) helpers() *helper.Registry {
	if a.router == nil {
		return helper.NewRegistry()
	}

	return a.router.Helpers()
}

// Settings returns the settings the app was built from.
func (a *App) Settings() config.Settings { return a.settings }

// Router returns the route table.
func (a *App) Router() *routing.Router { return a.router }

// Dispatcher returns the controller dispatcher.
func (a *App) Dispatcher() *controller.Dispatcher { return a.dispatcher }

// Handler returns the complete HTTP handler, middleware included.
func (a *App) Handler() http.Handler { return a.handler }

// Metrics returns the metrics recorder, or nil when metrics are disabled.
func (a *App) Metrics() *metrics.Recorder { return a.metrics }

// Tracing returns the tracer.
func (a *App) Tracing() *tracing.Tracer { return a.tracing }

// Renderer returns the view renderer, or nil without views.
func (a *App) Renderer() *view.Renderer { return a.renderer }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// BaseLogger returns the logging configuration backing [App.Logger].
func (a *App) BaseLogger() *logging.Logger { return a.logging }

// drawRoutes combines the Go routes with a fresh read of the routes file.
func (a *App) drawRoutes() (func(*routing.Map), error) {
	if a.routesFile == "" {
		return a.routes, nil
	}
	file, err := routing.LoadFile(a.routesFile)
	if err != nil {
		return nil, err
	}
	if a.routes == nil {
		return file, nil
	}
	code := a.routes

	return func(m *routing.Map) {
		code(m)
		file(m)
	}, nil
}

// ErrNoRoutes is returned by [New] when neither [WithRoutes] nor a routes
// file provides declarations.
var ErrNoRoutes = errors.New("app: no routes declared")
