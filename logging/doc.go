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

// Package logging builds the structured logger shared by the router, the
// controllers and the server.
//
// It wraps [log/slog] with JSON, text and console handlers:
//
//	logger := logging.MustNew(
//		logging.WithConsoleHandler(),
//		logging.WithServiceName("blog"),
//		logging.WithLevel(logging.LevelDebug),
//	)
//	slogger := logger.Logger()
//
// Values of sensitive keys such as password and authorization are
// redacted. Records logged with a context carrying an OpenTelemetry span
// get trace_id and span_id attributes.
//
// The level can change at runtime with [Logger.SetLevel]. During startup
// [Logger.StartBuffering] holds records back until [Logger.FlushBuffer],
// so they print after the banner.
//
// [TestHelper] captures output in memory for tests.
package logging
