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

// Package metrics records controller dispatch and HTTP metrics with
// OpenTelemetry.
//
// A [Recorder] implements controller.Observer, so passing it to the
// dispatcher is enough to collect:
//
//   - mvc.dispatch.duration: time per controller action, filters included
//   - mvc.step.duration: time per filter pipeline step
//   - mvc.pool.acquisitions: instances handed out, labelled hit or miss
//   - mvc.render.double: ignored second render calls
//   - mvc.routing.mismatches: requests no route answered, see [Recorder.NoRoute]
//
// [Recorder.Middleware] adds the http.server.* request metrics.
//
// Three providers are supported. Prometheus, the default, registers on a
// private registry so several recorders can live in one process:
//
//	recorder := metrics.MustNew(metrics.WithServiceName("blog"))
//	defer recorder.Shutdown(context.Background())
//
//	h, _ := recorder.Handler()
//	mux.Handle("/metrics", h)
//
// [WithOTLP] pushes to a collector and [WithStdout] prints periodically.
// Tests use [TestingRecorder], which reads from memory.
package metrics
