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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/cast"
)

// Option configures a [Config].
type Option func(*Config) error

// Validator is implemented by bound structs that check themselves.
type Validator interface {
	Validate() error
}

// Config merges values from its sources in order, later sources
// overriding earlier ones, and optionally binds them to a struct.
// It is safe for concurrent use.
type Config struct {
	mu      sync.RWMutex
	values  map[string]any
	sources []Source
	binding any
	tagName string
	schema  *jsonschema.Schema
}

// WithSource appends a source.
func WithSource(s Source) Option {
	return func(c *Config) error {
		if s == nil {
			return errors.New("source cannot be nil")
		}
		c.sources = append(c.sources, s)
		return nil
	}
}

// WithFile appends a file source; the format comes from the extension.
func WithFile(path string) Option {
	return withFile(path, false)
}

// WithOptionalFile is like [WithFile] but a missing file is not an error.
func WithOptionalFile(path string) Option {
	return withFile(path, true)
}

func withFile(path string, optional bool) Option {
	return func(c *Config) error {
		format, err := DetectFormat(path)
		if err != nil {
			return err
		}
		codec, err := CodecFor(format)
		if err != nil {
			return err
		}
		c.sources = append(c.sources, NewFileSource(path, codec, optional))
		return nil
	}
}

// WithContent appends an in-memory document.
func WithContent(data []byte, format Format) Option {
	return func(c *Config) error {
		codec, err := CodecFor(format)
		if err != nil {
			return err
		}
		c.sources = append(c.sources, NewContentSource(data, codec))
		return nil
	}
}

// WithEnv appends an environment source for variables starting with
// prefix.
func WithEnv(prefix string) Option {
	return WithSource(NewEnvSource(prefix))
}

// WithBinding decodes the merged values into v, a pointer to a struct,
// on every Load. A v implementing [Validator] is validated.
func WithBinding(v any) Option {
	return func(c *Config) error {
		if v == nil || reflect.TypeOf(v).Kind() != reflect.Pointer {
			return errors.New("binding must be a non-nil pointer")
		}
		c.binding = v
		return nil
	}
}

// WithTag sets the struct tag used for binding. The default is "config".
func WithTag(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return errors.New("tag name cannot be empty")
		}
		c.tagName = name
		return nil
	}
}

// WithJSONSchema validates the merged values against schema on Load.
func WithJSONSchema(schema []byte) Option {
	return func(c *Config) error {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
		if err != nil {
			return fmt.Errorf("failed to parse json schema: %w", err)
		}
		compiler := jsonschema.NewCompiler()
		if err = compiler.AddResource("config.json", doc); err != nil {
			return err
		}
		s, err := compiler.Compile("config.json")
		if err != nil {
			return fmt.Errorf("failed to compile json schema: %w", err)
		}
		c.schema = s
		return nil
	}
}

// New creates a Config. All option errors are joined.
func New(opts ...Option) (*Config, error) {
	c := &Config{values: map[string]any{}, tagName: "config"}

	var errs []error
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return c, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Config {
	c, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to create config: %v", err))
	}

	return c
}

// Load reads every source, merges, validates and binds. On error the
// previous values and binding are left untouched.
func (c *Config) Load(ctx context.Context) error {
	merged := make(map[string]any)
	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		values, err := src.Load(ctx)
		if err != nil {
			return newError(fmt.Sprintf("source[%d]", i), "load", err)
		}
		if err = mergo.Map(&merged, normalizeKeys(values), mergo.WithOverride); err != nil {
			return newError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}

	if c.schema != nil {
		if err := c.schema.Validate(toJSONValue(merged)); err != nil {
			return newError("json-schema", "validate", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.binding != nil {
		tmp := reflect.New(reflect.TypeOf(c.binding).Elem())
		tmp.Elem().Set(reflect.ValueOf(c.binding).Elem())
		if err := c.decode(merged, tmp.Interface()); err != nil {
			return newError("binding", "bind", err)
		}
		if v, ok := tmp.Interface().(Validator); ok {
			if err := v.Validate(); err != nil {
				return newError("binding", "validate", err)
			}
		}
		reflect.ValueOf(c.binding).Elem().Set(tmp.Elem())
	}
	c.values = merged

	return nil
}

func (c *Config) decode(values map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          c.tagName,
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	return dec.Decode(values)
}

// Get returns the value at a dot-separated, case-insensitive path.
func (c *Config) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var current any = c.values
	for seg := range strings.SplitSeq(strings.ToLower(key), ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		if current, ok = m[seg]; !ok {
			return nil
		}
	}

	return current
}

// String returns the value at key as a string.
func (c *Config) String(key string) string { return cast.ToString(c.Get(key)) }

// Int returns the value at key as an int.
func (c *Config) Int(key string) int { return cast.ToInt(c.Get(key)) }

// Bool returns the value at key as a bool.
func (c *Config) Bool(key string) bool { return cast.ToBool(c.Get(key)) }

// Duration returns the value at key as a duration.
func (c *Config) Duration(key string) time.Duration { return cast.ToDuration(c.Get(key)) }

// StringSlice returns the value at key as a string slice.
func (c *Config) StringSlice(key string) []string { return cast.ToStringSlice(c.Get(key)) }

// StringOr returns the value at key, or def when it is unset.
func (c *Config) StringOr(key, def string) string {
	if v := c.Get(key); v != nil {
		return cast.ToString(v)
	}

	return def
}

// Values returns a deep copy of the merged values.
func (c *Config) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return normalizeKeys(c.values)
}

// Dump writes the merged values in format.
func (c *Config) Dump(w io.Writer, format Format) error {
	codec, err := CodecFor(format)
	if err != nil {
		return err
	}
	data, err := codec.Encode(c.Values())
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = w.Write(data)

	return err
}

// normalizeKeys returns a copy of m with all map keys lowercased.
func normalizeKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = normalizeValue(v)
	}

	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeKeys(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[strings.ToLower(cast.ToString(k))] = normalizeValue(vv)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalizeValue(vv)
		}
		return out
	default:
		return v
	}
}

// toJSONValue converts decoded numbers to the types the schema validator
// accepts.
func toJSONValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = toJSONValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = toJSONValue(vv)
		}
		return out
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		return cast.ToFloat64(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
