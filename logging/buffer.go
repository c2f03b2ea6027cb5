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

package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// bufferedRecord is a held-back record and the handler it is replayed to.
type bufferedRecord struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// bufferState is shared by a buffering handler and every handler derived
// from it with WithAttrs or WithGroup.
type bufferState struct {
	mu        sync.Mutex
	buffering bool
	records   []bufferedRecord
}

// bufferingHandler holds records back while buffering is on.
type bufferingHandler struct {
	underlying slog.Handler
	state      *bufferState
}

func newBufferingHandler(h slog.Handler) *bufferingHandler {
	return &bufferingHandler{underlying: h, state: &bufferState{}}
}

// Enabled implements [slog.Handler].
func (h *bufferingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.underlying.Enabled(ctx, level)
}

// Handle implements [slog.Handler].
func (h *bufferingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.state.mu.Lock()
	if h.state.buffering {
		h.state.records = append(h.state.records, bufferedRecord{ctx: ctx, record: r.Clone(), handler: h.underlying})
		h.state.mu.Unlock()
		return nil
	}
	h.state.mu.Unlock()

	return h.underlying.Handle(ctx, r)
}

// WithAttrs implements [slog.Handler].
func (h *bufferingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &bufferingHandler{underlying: h.underlying.WithAttrs(attrs), state: h.state}
}

// WithGroup implements [slog.Handler].
func (h *bufferingHandler) WithGroup(name string) slog.Handler {
	return &bufferingHandler{underlying: h.underlying.WithGroup(name), state: h.state}
}

func (h *bufferingHandler) flush() error {
	h.state.mu.Lock()
	records := h.state.records
	h.state.records = nil
	h.state.buffering = false
	h.state.mu.Unlock()

	var errs []error
	for _, br := range records {
		if err := br.handler.Handle(br.ctx, br.record); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// StartBuffering holds log records in memory until [Logger.FlushBuffer].
// The app uses it to print startup logs after the banner.
func (l *Logger) StartBuffering() {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.slogger.Load()
	if current == nil {
		return
	}
	if bh, ok := current.Handler().(*bufferingHandler); ok {
		bh.state.mu.Lock()
		bh.state.buffering = true
		bh.state.mu.Unlock()
		return
	}

	bh := newBufferingHandler(current.Handler())
	bh.state.buffering = true
	l.store(slog.New(bh))
}

// FlushBuffer writes the held-back records in order and stops buffering.
// Without buffering it does nothing.
func (l *Logger) FlushBuffer() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.slogger.Load()
	if current == nil {
		return nil
	}
	bh, ok := current.Handler().(*bufferingHandler)
	if !ok {
		return nil
	}

	return bh.flush()
}

// IsBuffering reports whether records are being held back.
func (l *Logger) IsBuffering() bool {
	current := l.slogger.Load()
	if current == nil {
		return false
	}
	bh, ok := current.Handler().(*bufferingHandler)
	if !ok {
		return false
	}

	bh.state.mu.Lock()
	defer bh.state.mu.Unlock()

	return bh.state.buffering
}
