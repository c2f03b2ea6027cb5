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

package helper

import (
	"maps"
	"slices"
	"sync"

	"rivaas.dev/mvc/pattern"
)

// Hook post-processes every URL a registry's helpers produce.
type Hook func(path string) string

// Option configures a [Registry].
type Option func(*Registry)

// WithHost sets the scheme and host used by [Helper.FullURL].
func WithHost(host string) Option {
	return func(r *Registry) {
		r.host = host
	}
}

// WithHook appends a post-processing hook.
func WithHook(h Hook) Option {
	return func(r *Registry) {
		if h != nil {
			r.hooks = append(r.hooks, h)
		}
	}
}

// Registry maps helper names to helpers. The first registration of a name
// wins; later registrations of the same name are ignored.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	helpers map[string]*Helper
	hooks   []Hook
	host    string
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{helpers: make(map[string]*Helper)}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register compiles template and installs a helper for it. The helper name
// is name when non-empty, otherwise it is derived with [Name].
// The returned bool is false when the name was already taken, in which case
// the existing helper is returned unchanged.
func (r *Registry) Register(template, action, name string) (*Helper, bool, error) {
	p, err := pattern.Compile(template)
	if err != nil {
		return nil, false, err
	}

	h, added := r.RegisterPattern(p, action, name)

	return h, added, nil
}

// RegisterPattern is like [Registry.Register] for an already compiled pattern.
func (r *Registry) RegisterPattern(p *pattern.Pattern, action, name string) (*Helper, bool) {
	if name == "" {
		name = Name(p.String(), action)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.helpers[name]; ok {
		return existing, false
	}

	h := &Helper{name: name, action: action, pattern: p, registry: r}
	r.helpers[name] = h

	return h, true
}

// Lookup returns the helper registered under name.
func (r *Registry) Lookup(name string) (*Helper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.helpers[name]

	return h, ok
}

// URL renders the named helper. Unknown names yield "".
func (r *Registry) URL(name string, args ...any) string {
	h, ok := r.Lookup(name)
	if !ok {
		return ""
	}

	return h.URL(args...)
}

// AddHook appends a post-processing hook. Hooks run in the order they were
// added.
func (r *Registry) AddHook(h Hook) {
	if h == nil {
		return
	}

	r.mu.Lock()
	r.hooks = append(r.hooks, h)
	r.mu.Unlock()
}

// Names returns the registered helper names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.helpers))
}

// Len returns the number of registered helpers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.helpers)
}

// Host returns the host configured with [WithHost].
func (r *Registry) Host() string { return r.host }

func (r *Registry) applyHooks(path string) string {
	r.mu.RLock()
	hooks := r.hooks
	r.mu.RUnlock()

	for _, h := range hooks {
		path = h(path)
	}

	return path
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
