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

package controller

import (
	"sync"
	"sync/atomic"
)

// PoolStats holds statistics about pool effectiveness.
type PoolStats struct {
	TotalGets uint64  // Acquire calls
	TotalPuts uint64  // Release calls that kept the instance
	Hits      uint64  // Acquires served from the idle list
	Misses    uint64  // Acquires that built a new instance
	Discarded uint64  // Releases dropped because the idle list was full
	Idle      int     // Instances currently idle
	HitRate   float64 // Hits / TotalGets
}

// Pool is a free list of reusable instances built by a factory.
//
// The pool owns idle instances; a caller owns an instance from Acquire
// until Release and must not touch it afterwards. An instance is never
// handed to two holders at once. Pool is safe for concurrent use.
type Pool[T any] struct {
	mu      sync.Mutex
	idle    []T
	factory func() T
	reset   func(T)
	maxIdle int

	gets      atomic.Uint64
	puts      atomic.Uint64
	hits      atomic.Uint64
	misses    atomic.Uint64
	discarded atomic.Uint64
}

// NewPool creates a pool. reset runs on every released instance before it
// becomes idle; it may be nil. maxIdle bounds the idle list, 0 means
// unbounded.
func NewPool[T any](factory func() T, reset func(T), maxIdle int) *Pool[T] {
	return &Pool[T]{
		factory: factory,
		reset:   reset,
		maxIdle: maxIdle,
	}
}

// Acquire pops an idle instance or builds one. The bool reports whether
// the instance was reused.
func (p *Pool[T]) Acquire() (T, bool) {
	p.gets.Add(1)

	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		v := p.idle[n-1]
		var zero T
		p.idle[n-1] = zero
		p.idle = p.idle[:n-1]
		p.mu.Unlock()

		p.hits.Add(1)
		return v, true
	}
	p.mu.Unlock()

	p.misses.Add(1)

	return p.factory(), false
}

// Release resets v and returns it to the idle list.
func (p *Pool[T]) Release(v T) {
	if p.reset != nil {
		p.reset(v)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.maxIdle > 0 && len(p.idle) >= p.maxIdle {
		p.discarded.Add(1)
		return
	}
	p.idle = append(p.idle, v)
	p.puts.Add(1)
}

// Warmup pre-builds n idle instances, respecting maxIdle.
func (p *Pool[T]) Warmup(n int) {
	for range n {
		p.mu.Lock()
		full := p.maxIdle > 0 && len(p.idle) >= p.maxIdle
		p.mu.Unlock()
		if full {
			return
		}

		v := p.factory()
		if p.reset != nil {
			p.reset(v)
		}

		p.mu.Lock()
		p.idle = append(p.idle, v)
		p.mu.Unlock()
	}
}

// Stats returns a snapshot of the pool counters.
func (p *Pool[T]) Stats() PoolStats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()

	s := PoolStats{
		TotalGets: p.gets.Load(),
		TotalPuts: p.puts.Load(),
		Hits:      p.hits.Load(),
		Misses:    p.misses.Load(),
		Discarded: p.discarded.Load(),
		Idle:      idle,
	}
	if s.TotalGets > 0 {
		s.HitRate = float64(s.Hits) / float64(s.TotalGets)
	}

	return s
}

// ResetStats zeroes the counters.
func (p *Pool[T]) ResetStats() {
	p.gets.Store(0)
	p.puts.Store(0)
	p.hits.Store(0)
	p.misses.Store(0)
	p.discarded.Store(0)
}
