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

// Package app assembles the route table, the controller dispatcher, the
// view renderer and the observability stack into a runnable HTTP server.
//
// # Quick Start
//
//	reg := controller.NewRegistry()
//	reg.MustRegister("posts", NewPostsController)
//
//	a := app.MustNew(
//		app.WithControllers(reg),
//		app.WithRoutes(func(m *routing.Map) {
//			m.Root("posts#index")
//			m.Resources("posts", nil)
//		}),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := a.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Configuration
//
// Settings come from [config.LoadSettings] and are passed with
// [WithSettings]. Without [WithRoutes] the routes are read from the
// settings' routes file, which is watched for changes when hot reload is
// on. A SIGHUP reloads the routes as well.
//
// # Request Handling
//
// Every request passes, in order, request ID assignment, tracing,
// metrics, access logging and panic recovery. /healthz, /readyz and the
// Prometheus endpoint are answered there. Application routes additionally
// get security headers, compression, a request timeout, a body size
// limit and method override before reaching the router.
//
// # Lifecycle
//
// OnStart hooks run before the server listens, OnReady hooks once it
// does. On shutdown OnShutdown hooks run in reverse order with the
// shutdown deadline, the server drains, exporters flush and OnStop hooks
// run. OnReload hooks run after every route reload.
//
// # Testing
//
// [App.Test] serves a request through the complete handler without a
// listener:
//
//	resp, err := a.Test(httptest.NewRequest("GET", "/posts", nil))
package app
