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
	"os"
	"time"

	"rivaas.dev/mvc/config"
	"rivaas.dev/mvc/controller"
	"rivaas.dev/mvc/logging"
	"rivaas.dev/mvc/metrics"
	"rivaas.dev/mvc/routing"
	"rivaas.dev/mvc/tracing"
)

// Option configures an App.
type Option func(*options)

type options struct {
	settings         *config.Settings
	controllers      *controller.Registry
	routes           func(*routing.Map)
	views            fs.FS
	logger           *logging.Logger
	middleware       []Middleware
	out              io.Writer
	banner           *bool
	host             string
	problemBase      string
	methodNotAllowed bool
	health           *healthSettings
	metricsOpts      []metrics.Option
	tracingOpts      []tracing.Option
}

func defaultOptions() *options {
	s := config.DefaultSettings()

	return &options{
		settings: &s,
		out:      os.Stdout,
		health: &healthSettings{
			liveness:  make(map[string]CheckFunc),
			readiness: make(map[string]CheckFunc),
			timeout:   time.Second,
		},
	}
}

func (o *options) validate() error {
	var errs []error
	if o.controllers == nil {
		errs = append(errs, errors.New("controller registry is required"))
	}
	if o.settings == nil {
		errs = append(errs, errors.New("settings cannot be nil"))
	} else if err := o.settings.Validate(); err != nil {
		errs = append(errs, err)
	}
	if o.out == nil {
		errs = append(errs, errors.New("output writer cannot be nil"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("app: invalid configuration: %w", err)
	}

	return nil
}

// WithSettings replaces the default settings, usually with the result of
// [config.LoadSettings].
func WithSettings(s *config.Settings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithControllers sets the controller registry. It is required.
func WithControllers(r *controller.Registry) Option {
	return func(o *options) {
		o.controllers = r
	}
}

// WithRoutes declares routes in Go. They are drawn before those of the
// settings' routes file, so they win when both match a request.
//
//	app.WithRoutes(func(m *routing.Map) {
//		m.Root("pages#home")
//		m.Resources("posts")
//	})
func WithRoutes(fn func(*routing.Map)) Option {
	return func(o *options) {
		o.routes = fn
	}
}

// WithViews sets the file system views are read from. Without it the
// settings' views directory is used, if any.
func WithViews(fsys fs.FS) Option {
	return func(o *options) {
		o.views = fsys
	}
}

// WithLogger uses l instead of a logger built from the settings.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMiddleware adds middleware run right before routing, in order.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithOutput sets where the banner and route tables are printed.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithBanner forces the startup banner on or off. By default it is shown
// outside the test environment.
func WithBanner(enabled bool) Option {
	return func(o *options) {
		o.banner = &enabled
	}
}

// WithHost sets the scheme and host full URLs are built with.
func WithHost(host string) Option {
	return func(o *options) {
		o.host = host
	}
}

// WithProblemBaseURL sets the base of problem-details "type" URIs.
func WithProblemBaseURL(base string) Option {
	return func(o *options) {
		o.problemBase = base
	}
}

// WithMethodNotAllowed answers 405 instead of 404 when a path matches
// under another verb.
func WithMethodNotAllowed() Option {
	return func(o *options) {
		o.methodNotAllowed = true
	}
}

// WithMetricsOptions appends options to those derived from the settings.
func WithMetricsOptions(opts ...metrics.Option) Option {
	return func(o *options) {
		o.metricsOpts = append(o.metricsOpts, opts...)
	}
}

// WithTracingOptions appends options to those derived from the settings.
func WithTracingOptions(opts ...tracing.Option) Option {
	return func(o *options) {
		o.tracingOpts = append(o.tracingOpts, opts...)
	}
}
