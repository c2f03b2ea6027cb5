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

package ratelimit

import (
	"math"
	"sync"
	"time"
)

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// MemoryStore is the in-process [Store].
type MemoryStore struct {
	rate  float64
	burst float64

	mu      sync.RWMutex
	buckets map[string]*bucket

	stop chan struct{}
	once sync.Once
}

// NewMemoryStore returns a store refilling rate tokens per second up to
// burst. Every interval it drops buckets idle for longer than ttl.
func NewMemoryStore(rate, burst int, interval, ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		rate:    float64(rate),
		burst:   float64(burst),
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go s.cleanupLoop(interval, ttl)

	return s
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// Len returns the number of tracked buckets.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.buckets)
}

func (s *MemoryStore) cleanupLoop(interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.evict(now.Add(-ttl))
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) evict(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, b := range s.buckets {
		b.mu.Lock()
		idle := b.lastUpdate.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(s.buckets, key)
		}
	}
}

// Allow implements [Store].
func (s *MemoryStore) Allow(key string, now time.Time) (bool, int, int) {
	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()

	if !ok {
		s.mu.Lock()
		if b, ok = s.buckets[key]; !ok {
			b = &bucket{tokens: s.burst, lastUpdate: now}
			s.buckets[key] = b
		}
		s.mu.Unlock()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.lastUpdate).Seconds(); elapsed > 0 {
		b.tokens = math.Min(s.burst, b.tokens+elapsed*s.rate)
		b.lastUpdate = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, int(b.tokens), 1
	}

	wait := int(math.Ceil((1 - b.tokens) / s.rate))

	return false, 0, max(1, wait)
}
