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

// Package compression compresses responses with brotli or gzip,
// whichever the client accepts, preferring brotli.
//
//	handler = compression.New(
//		compression.WithMinSize(512),
//		compression.WithExcludePaths("/events"),
//	)(handler)
//
// Bodies smaller than the minimum size, already encoded bodies, HEAD
// requests, 204 and 304 responses and binary media types are passed
// through. Every response gets "Vary: Accept-Encoding".
package compression
