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
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// LogEntry is a parsed JSON log line.
type LogEntry struct {
	Level   string
	Message string
	Attrs   map[string]any
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	return bytes.Clone(b.buf.Bytes())
}

func (b *syncBuffer) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// ParseJSONLogEntries parses JSON lines into entries.
func ParseJSONLogEntries(data []byte) ([]LogEntry, error) {
	var entries []LogEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var raw map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse log line: %w", err)
		}

		le := LogEntry{Attrs: make(map[string]any)}
		le.Level, _ = raw["level"].(string)
		le.Message, _ = raw["msg"].(string)
		for k, v := range raw {
			if k != "time" && k != "level" && k != "msg" {
				le.Attrs[k] = v
			}
		}
		entries = append(entries, le)
	}

	return entries, scanner.Err()
}

// TestHelper captures JSON logs in memory for assertions.
type TestHelper struct {
	Logger *Logger
	buf    *syncBuffer
}

// TB is the part of testing.TB the helper needs. GinkgoT() satisfies it
// as well.
type TB interface {
	Helper()
}

// NewTestHelper creates a debug-level JSON logger writing to memory.
// opts are applied after the defaults.
func NewTestHelper(t TB, opts ...Option) *TestHelper {
	t.Helper()

	buf := &syncBuffer{}
	all := append([]Option{WithJSONHandler(), WithOutput(buf), WithDebugLevel()}, opts...)

	return &TestHelper{Logger: MustNew(all...), buf: buf}
}

// Logs returns all parsed entries.
func (th *TestHelper) Logs() ([]LogEntry, error) {
	return ParseJSONLogEntries(th.buf.bytes())
}

// ContainsLog reports whether an entry with msg was logged.
func (th *TestHelper) ContainsLog(msg string) bool {
	return th.Count(msg) > 0
}

// Count returns how many entries carry msg.
func (th *TestHelper) Count(msg string) int {
	entries, err := th.Logs()
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.Message == msg {
			n++
		}
	}

	return n
}

// ContainsAttr reports whether any entry has key set to value. JSON
// numbers compare as float64.
func (th *TestHelper) ContainsAttr(key string, value any) bool {
	entries, err := th.Logs()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if v, ok := e.Attrs[key]; ok && v == value {
			return true
		}
	}

	return false
}

// CountLevel returns the number of entries at level ("INFO", "WARN", ...).
func (th *TestHelper) CountLevel(level string) int {
	entries, err := th.Logs()
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.Level == level {
			n++
		}
	}

	return n
}

// Reset discards the captured output.
func (th *TestHelper) Reset() {
	th.buf.reset()
}
