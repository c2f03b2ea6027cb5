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

package compression

import "log/slog"

// WithGzipLevel sets the gzip level, from gzip.HuffmanOnly to
// gzip.BestCompression.
func WithGzipLevel(level int) Option {
	return func(cfg *config) {
		cfg.gzipLevel = level
	}
}

// WithBrotliLevel sets the brotli quality, clamped to 0..11.
func WithBrotliLevel(level int) Option {
	return func(cfg *config) {
		cfg.brotliLevel = max(0, min(level, 11))
	}
}

// WithBrotliDisabled offers gzip only.
func WithBrotliDisabled() Option {
	return func(cfg *config) {
		cfg.enableBrotli = false
	}
}

// WithGzipDisabled offers brotli only.
func WithGzipDisabled() Option {
	return func(cfg *config) {
		cfg.enableGzip = false
	}
}

// WithMinSize sets the body size below which responses are sent as is.
func WithMinSize(size int) Option {
	return func(cfg *config) {
		cfg.minSize = size
	}
}

// WithExcludePaths never compresses the given paths.
func WithExcludePaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludePaths[p] = true
		}
	}
}

// WithExcludeExtensions never compresses paths with the given extensions,
// for example ".png".
func WithExcludeExtensions(extensions ...string) Option {
	return func(cfg *config) {
		for _, ext := range extensions {
			cfg.excludeExtensions[ext] = true
		}
	}
}

// WithExcludeContentTypes never compresses the given media types.
func WithExcludeContentTypes(contentTypes ...string) Option {
	return func(cfg *config) {
		for _, ct := range contentTypes {
			cfg.excludeContentTypes[ct] = true
		}
	}
}

// WithLogger sets the logger for encoder errors.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
