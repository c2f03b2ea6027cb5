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

// Package ratelimit limits requests per client with a token bucket.
//
//	limiter := ratelimit.New(
//	    ratelimit.WithRequestsPerSecond(50),
//	    ratelimit.WithBurst(10),
//	)
//	defer limiter.Close()
//	handler = limiter.Middleware(handler)
//
// Every response carries RateLimit-Limit, RateLimit-Remaining and
// RateLimit-Reset headers. Requests over the limit get 429 Too Many
// Requests with a Retry-After header.
package ratelimit

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	rerrors "rivaas.dev/mvc/errors"
)

// ErrLimitExceeded reports a client over its limit.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// KeyFunc derives the bucket of a request, e.g. per client IP or API key.
type KeyFunc func(r *http.Request) string

// Store keeps the buckets. Implementations must be safe for concurrent use.
type Store interface {
	// Allow takes a token from the bucket of key and reports the tokens
	// left and the seconds until the next one.
	Allow(key string, now time.Time) (allowed bool, remaining, resetSeconds int)
}

// Option configures a [Limiter].
type Option func(*config)

type config struct {
	rate     int
	burst    int
	key      KeyFunc
	store    Store
	enforce  bool
	exceeded http.Handler
	logger   *slog.Logger
	cleanup  time.Duration
	ttl      time.Duration
	now      func() time.Time
	format   rerrors.Formatter
}

// WithRequestsPerSecond sets the refill rate. Default: 100.
func WithRequestsPerSecond(rps int) Option {
	return func(cfg *config) {
		if rps > 0 {
			cfg.rate = rps
		}
	}
}

// WithBurst sets the bucket capacity. Default: 20.
func WithBurst(burst int) Option {
	return func(cfg *config) {
		if burst > 0 {
			cfg.burst = burst
		}
	}
}

// WithKeyFunc replaces the default per client IP key.
func WithKeyFunc(fn KeyFunc) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.key = fn
		}
	}
}

// WithStore replaces the in-memory store, e.g. with one shared between
// instances.
func WithStore(s Store) Option {
	return func(cfg *config) {
		cfg.store = s
	}
}

// WithReportOnly sets the headers and logs exceeded limits without
// rejecting requests.
func WithReportOnly() Option {
	return func(cfg *config) {
		cfg.enforce = false
	}
}

// WithHandler replaces the default 429 problem response. Headers,
// Retry-After included, are set when it runs.
func WithHandler(h http.Handler) Option {
	return func(cfg *config) {
		cfg.exceeded = h
	}
}

// WithLogger logs exceeded limits at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithCleanup sets how often the in-memory store drops buckets idle for
// longer than ttl. Defaults: every 5 minutes, after an hour.
func WithCleanup(interval, ttl time.Duration) Option {
	return func(cfg *config) {
		if interval > 0 {
			cfg.cleanup = interval
		}
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithFormatter sets the formatter of the default response.
func WithFormatter(f rerrors.Formatter) Option {
	return func(cfg *config) {
		if f != nil {
			cfg.format = f
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(cfg *config) {
		cfg.now = now
	}
}

// Limiter is the rate limiting middleware.
type Limiter struct {
	cfg   *config
	owned *MemoryStore
}

// New returns a limiter. Call [Limiter.Close] to stop the cleanup of the
// default store.
func New(opts ...Option) *Limiter {
	cfg := &config{
		rate:    100,
		burst:   20,
		key:     ClientIP,
		enforce: true,
		cleanup: 5 * time.Minute,
		ttl:     time.Hour,
		now:     time.Now,
		format:  rerrors.NewRFC9457(""),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	l := &Limiter{cfg: cfg}
	if cfg.store == nil {
		l.owned = NewMemoryStore(cfg.rate, cfg.burst, cfg.cleanup, cfg.ttl)
		cfg.store = l.owned
	}
	if cfg.exceeded == nil {
		cfg.exceeded = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = rerrors.Write(w, cfg.format.Format(r, rerrors.WithStatus(ErrLimitExceeded, http.StatusTooManyRequests)))
		})
	}

	return l
}

// Close stops the cleanup of the default store.
func (l *Limiter) Close() {
	if l.owned != nil {
		l.owned.Close()
	}
}

// Middleware applies the limit to next.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	cfg := l.cfg
	limit := strconv.Itoa(cfg.burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := cfg.key(r)
		allowed, remaining, reset := cfg.store.Allow(key, cfg.now())

		h := w.Header()
		h.Set("RateLimit-Limit", limit)
		h.Set("RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(reset))

		if !allowed {
			if cfg.logger != nil {
				cfg.logger.WarnContext(r.Context(), "rate limit exceeded",
					"key", key,
					"method", r.Method,
					"path", r.URL.Path,
				)
			}
			if cfg.enforce {
				h.Set("Retry-After", strconv.Itoa(reset))
				cfg.exceeded.ServeHTTP(w, r)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP keys requests by the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	return "ip:" + host
}
