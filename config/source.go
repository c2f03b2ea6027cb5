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

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Source provides configuration values. Keys are lowercased before
// merging, so sources need not normalize them.
type Source interface {
	Load(ctx context.Context) (map[string]any, error)
}

// FileSource reads a configuration file.
type FileSource struct {
	path     string
	codec    Codec
	optional bool
}

// NewFileSource reads path with codec. An optional source yields no
// values when the file does not exist.
func NewFileSource(path string, codec Codec, optional bool) *FileSource {
	return &FileSource{path: path, codec: codec, optional: optional}
}

// Load implements [Source].
func (f *FileSource) Load(context.Context) (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if f.optional && errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return decodeMap(f.codec, data)
}

// ContentSource decodes an in-memory document.
type ContentSource struct {
	data  []byte
	codec Codec
}

// NewContentSource decodes data with codec.
func NewContentSource(data []byte, codec Codec) *ContentSource {
	return &ContentSource{data: data, codec: codec}
}

// Load implements [Source].
func (c *ContentSource) Load(context.Context) (map[string]any, error) {
	return decodeMap(c.codec, c.data)
}

func decodeMap(c Codec, data []byte) (map[string]any, error) {
	var m map[string]any
	if err := c.Decode(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}

	return m, nil
}

// EnvSource maps environment variables with a prefix to nested keys.
// A double underscore separates levels and a single underscore stays part
// of the key: BLOG_SERVER__READ_TIMEOUT sets server.read_timeout.
type EnvSource struct {
	prefix  string
	environ func() []string
}

// NewEnvSource reads variables starting with prefix, e.g. "BLOG_".
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{prefix: prefix, environ: os.Environ}
}

// Load implements [Source].
func (e *EnvSource) Load(context.Context) (map[string]any, error) {
	conf := make(map[string]any)

	for _, kv := range e.environ() {
		if !strings.HasPrefix(kv, e.prefix) {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(kv, e.prefix), "=")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}

		var parts []string
		for p := range strings.SplitSeq(strings.ToLower(strings.TrimSpace(key)), "__") {
			if p = strings.Trim(p, "_"); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}

		current := conf
		for _, p := range parts[:len(parts)-1] {
			next, ok := current[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[p] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = strings.TrimSpace(value)
	}

	return conf, nil
}
