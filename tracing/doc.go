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

// Package tracing sets up OpenTelemetry tracing for an application.
//
// A [Tracer] owns the provider and the W3C propagator. Its
// [Tracer.Middleware] opens the server span of a request and
// [Tracer.Tracer] is what the controller dispatcher starts its spans from:
//
//	tracer := tracing.MustNew(
//		tracing.WithServiceName("blog"),
//		tracing.WithOTLPHTTP("http://localhost:4318"),
//		tracing.WithSampleRate(0.1),
//	)
//	if err := tracer.Start(ctx); err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	d := controller.NewDispatcher(reg, controller.WithTracer(tracer.Tracer()))
//	handler := tracer.Middleware(router)
//
// The noop provider is the default. [WithOTLP] exports over gRPC instead
// of HTTP; both OTLP providers connect in [Tracer.Start]. Sampling is parent-based with a trace
// id ratio for root spans.
package tracing
