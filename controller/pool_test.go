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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	id    int
	inUse atomic.Bool
	dirty bool
}

func TestPool_ReuseAndStats(t *testing.T) {
	t.Parallel()

	var built int
	p := NewPool(func() *counter {
		built++
		return &counter{id: built}
	}, func(c *counter) { c.dirty = false }, 0)

	c1, reused := p.Acquire()
	assert.False(t, reused)
	c1.dirty = true
	p.Release(c1)

	c2, reused := p.Acquire()
	assert.True(t, reused)
	assert.Same(t, c1, c2)
	assert.False(t, c2.dirty, "reset runs on release")
	p.Release(c2)

	s := p.Stats()
	assert.Equal(t, uint64(2), s.TotalGets)
	assert.Equal(t, uint64(2), s.TotalPuts)
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 1, s.Idle)
	assert.InDelta(t, 0.5, s.HitRate, 0.001)

	p.ResetStats()
	assert.Zero(t, p.Stats().TotalGets)
}

func TestPool_MaxIdle(t *testing.T) {
	t.Parallel()

	p := NewPool(func() *counter { return &counter{} }, nil, 1)
	a, _ := p.Acquire()
	b, _ := p.Acquire()
	p.Release(a)
	p.Release(b)

	s := p.Stats()
	assert.Equal(t, 1, s.Idle)
	assert.Equal(t, uint64(1), s.Discarded)
	assert.Equal(t, uint64(1), s.TotalPuts)
}

func TestPool_Warmup(t *testing.T) {
	t.Parallel()

	p := NewPool(func() *counter { return &counter{} }, nil, 3)
	p.Warmup(5)
	assert.Equal(t, 3, p.Stats().Idle)

	_, reused := p.Acquire()
	assert.True(t, reused)
}

func TestPool_ExclusiveOwnership(t *testing.T) {
	t.Parallel()

	p := NewPool(func() *counter { return &counter{} }, nil, 0)

	var wg sync.WaitGroup
	var violations atomic.Int32
	for range 32 {
		wg.Go(func() {
			for range 200 {
				c, _ := p.Acquire()
				if !c.inUse.CompareAndSwap(false, true) {
					violations.Add(1)
				}
				c.inUse.Store(false)
				p.Release(c)
			}
		})
	}
	wg.Wait()

	require.Zero(t, violations.Load())
	s := p.Stats()
	assert.Equal(t, s.TotalGets, s.TotalPuts)
	assert.Equal(t, s.TotalGets, s.Hits+s.Misses)
}

func BenchmarkPool_AcquireRelease(b *testing.B) {
	p := NewPool(func() *counter { return &counter{} }, nil, 0)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c, _ := p.Acquire()
			p.Release(c)
		}
	})
}
