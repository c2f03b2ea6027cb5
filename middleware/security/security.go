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

// Package security sets response headers that harden HTML pages against
// framing, MIME sniffing, and script injection.
//
// A Content-Security-Policy containing "{nonce}" gets a fresh nonce per
// request; views read it with [Nonce] to tag inline scripts.
//
//	handler = security.New(
//		security.WithContentSecurityPolicy("default-src 'self'; script-src 'self' 'nonce-{nonce}'"),
//	)(handler)
package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
)

const noncePlaceholder = "{nonce}"

type nonceKey struct{}

// Option configures the middleware.
type Option func(*config)

type config struct {
	frameOptions          string
	contentTypeNosniff    bool
	xssProtection         string
	hstsMaxAge            int
	hstsIncludeSubdomains bool
	hstsPreload           bool
	contentSecurityPolicy string
	referrerPolicy        string
	permissionsPolicy     string
	customHeaders         map[string]string
}

func defaultConfig() *config {
	return &config{
		frameOptions:          "DENY",
		contentTypeNosniff:    true,
		xssProtection:         "0",
		hstsMaxAge:            31536000,
		hstsIncludeSubdomains: true,
		contentSecurityPolicy: "default-src 'self'",
		referrerPolicy:        "strict-origin-when-cross-origin",
		customHeaders:         make(map[string]string),
	}
}

// New returns the middleware. Strict-Transport-Security is only sent on
// TLS connections or when a proxy reports X-Forwarded-Proto https.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	hsts := cfg.hstsValue()
	withNonce := strings.Contains(cfg.contentSecurityPolicy, noncePlaceholder)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if cfg.frameOptions != "" {
				h.Set("X-Frame-Options", cfg.frameOptions)
			}
			if cfg.contentTypeNosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			if cfg.xssProtection != "" {
				h.Set("X-XSS-Protection", cfg.xssProtection)
			}
			if hsts != "" && isHTTPS(r) {
				h.Set("Strict-Transport-Security", hsts)
			}
			if cfg.contentSecurityPolicy != "" {
				policy := cfg.contentSecurityPolicy
				if withNonce {
					nonce := newNonce()
					policy = strings.ReplaceAll(policy, noncePlaceholder, nonce)
					r = r.WithContext(context.WithValue(r.Context(), nonceKey{}, nonce))
				}
				h.Set("Content-Security-Policy", policy)
			}
			if cfg.referrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.referrerPolicy)
			}
			if cfg.permissionsPolicy != "" {
				h.Set("Permissions-Policy", cfg.permissionsPolicy)
			}
			for name, value := range cfg.customHeaders {
				h.Set(name, value)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Nonce returns the CSP nonce of the request, or "" when the policy has
// no nonce placeholder.
func Nonce(ctx context.Context) string {
	nonce, _ := ctx.Value(nonceKey{}).(string)
	return nonce
}

func (c *config) hstsValue() string {
	if c.hstsMaxAge <= 0 {
		return ""
	}
	v := "max-age=" + strconv.Itoa(c.hstsMaxAge)
	if c.hstsIncludeSubdomains {
		v += "; includeSubDomains"
	}
	if c.hstsPreload {
		v += "; preload"
	}

	return v
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func newNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)

	return base64.StdEncoding.EncodeToString(b)
}
