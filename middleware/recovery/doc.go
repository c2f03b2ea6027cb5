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

// Package recovery turns panics in handlers into 500 responses.
//
// The panic is logged with its stack, recorded on the active span, and
// answered with an RFC 9457 problem document unless [WithHandler] says
// otherwise:
//
//	handler = recovery.New(recovery.WithLogger(logger))(handler)
//
// http.ErrAbortHandler is re-panicked so net/http can abort the response.
package recovery
