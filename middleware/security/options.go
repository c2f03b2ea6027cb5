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

package security

// WithFrameOptions sets X-Frame-Options, "DENY" by default.
func WithFrameOptions(value string) Option {
	return func(cfg *config) {
		cfg.frameOptions = value
	}
}

// WithContentTypeNosniff toggles X-Content-Type-Options: nosniff.
func WithContentTypeNosniff(enabled bool) Option {
	return func(cfg *config) {
		cfg.contentTypeNosniff = enabled
	}
}

// WithXSSProtection sets X-XSS-Protection. The default "0" turns off the
// legacy auditor; "" omits the header.
func WithXSSProtection(value string) Option {
	return func(cfg *config) {
		cfg.xssProtection = value
	}
}

// WithHSTS configures Strict-Transport-Security. A maxAge of 0 disables it.
func WithHSTS(maxAge int, includeSubdomains, preload bool) Option {
	return func(cfg *config) {
		cfg.hstsMaxAge = maxAge
		cfg.hstsIncludeSubdomains = includeSubdomains
		cfg.hstsPreload = preload
	}
}

// WithContentSecurityPolicy sets Content-Security-Policy. Every "{nonce}"
// is replaced by a per-request nonce.
func WithContentSecurityPolicy(policy string) Option {
	return func(cfg *config) {
		cfg.contentSecurityPolicy = policy
	}
}

func WithReferrerPolicy(policy string) Option {
	return func(cfg *config) {
		cfg.referrerPolicy = policy
	}
}

func WithPermissionsPolicy(policy string) Option {
	return func(cfg *config) {
		cfg.permissionsPolicy = policy
	}
}

// WithCustomHeader sets an extra header on every response.
func WithCustomHeader(name, value string) Option {
	return func(cfg *config) {
		cfg.customHeaders[name] = value
	}
}

// DevelopmentPreset allows same-origin framing, inline styles, and scripts
// carrying the request nonce, and drops HSTS.
func DevelopmentPreset() Option {
	return func(cfg *config) {
		cfg.frameOptions = "SAMEORIGIN"
		cfg.contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'nonce-{nonce}'; img-src 'self' data:"
		cfg.hstsMaxAge = 0
	}
}

// ProductionPreset enables every header with strict values, including
// HSTS preload.
func ProductionPreset() Option {
	return func(cfg *config) {
		cfg.frameOptions = "DENY"
		cfg.contentTypeNosniff = true
		cfg.hstsMaxAge = 31536000
		cfg.hstsIncludeSubdomains = true
		cfg.hstsPreload = true
		cfg.contentSecurityPolicy = "default-src 'self'; script-src 'self' 'nonce-{nonce}'"
		cfg.referrerPolicy = "strict-origin-when-cross-origin"
		cfg.permissionsPolicy = "geolocation=(), microphone=(), camera=()"
	}
}

// NoSecurityHeaders clears every header, for use behind a proxy that sets
// them.
func NoSecurityHeaders() Option {
	return func(cfg *config) {
		*cfg = config{customHeaders: make(map[string]string)}
	}
}
