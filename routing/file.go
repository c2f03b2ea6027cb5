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

package routing

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrInvalidRoutesFile is returned when a routes file cannot be turned into
// declarations.
var ErrInvalidRoutesFile = errors.New("invalid routes file")

// RouteSpec is one declaration of a routes file. Exactly one of the verb,
// Root, Resources, Resource, Namespace or Scope fields is set.
//
//	routes:
//	  - root: pages#home
//	  - get: /about
//	    to: pages#about
//	  - resources: posts
//	    only: [index, show]
//	    routes:
//	      - resources: comments
//	  - namespace: admin
//	    routes:
//	      - resources: posts
type RouteSpec struct {
	Get    string   `yaml:"get"`
	Post   string   `yaml:"post"`
	Put    string   `yaml:"put"`
	Patch  string   `yaml:"patch"`
	Delete string   `yaml:"delete"`
	Match  string   `yaml:"match"`
	Via    []string `yaml:"via"`
	To     string   `yaml:"to"`

	Root      string `yaml:"root"`
	Resources string `yaml:"resources"`
	Resource  string `yaml:"resource"`
	Namespace string `yaml:"namespace"`
	Scope     string `yaml:"scope"`

	Only       []string `yaml:"only"`
	Except     []string `yaml:"except"`
	As         string   `yaml:"as"`
	Controller string   `yaml:"controller"`
	Path       string   `yaml:"path"`
	Subdomain  string   `yaml:"subdomain"`
	Format     *bool    `yaml:"format"`
	Patchable  bool     `yaml:"with_patch"`
	On         string   `yaml:"on"`

	Routes []RouteSpec `yaml:"routes"`
}

// RoutesFile is the document layout of a routes file.
type RoutesFile struct {
	Routes []RouteSpec `yaml:"routes"`
}

// LoadFile reads a YAML routes file and returns its declarations.
func LoadFile(path string) (func(*Map), error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file: %w", err)
	}

	return Decode(data)
}

// Decode parses a YAML routes document. The document is validated up
// front, so the returned function only panics on malformed templates,
// like any other declaration.
func Decode(data []byte) (func(*Map), error) {
	var doc RoutesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoutesFile, err)
	}

	if err := validateSpecs(doc.Routes, "routes"); err != nil {
		return nil, err
	}

	specs := doc.Routes

	return func(m *Map) {
		for _, s := range specs {
			s.apply(m)
		}
	}, nil
}

func validateSpecs(specs []RouteSpec, at string) error {
	for i, s := range specs {
		where := fmt.Sprintf("%s[%d]", at, i)

		kinds := 0
		for _, v := range []string{s.Get, s.Post, s.Put, s.Patch, s.Delete, s.Match, s.Root, s.Resources, s.Resource, s.Namespace, s.Scope} {
			if v != "" {
				kinds++
			}
		}
		if kinds != 1 {
			return fmt.Errorf("%w: %s: expected exactly one declaration kind, got %d", ErrInvalidRoutesFile, where, kinds)
		}

		if s.Match != "" && len(s.Via) == 0 {
			return fmt.Errorf("%w: %s: match requires via", ErrInvalidRoutesFile, where)
		}
		for _, v := range s.Via {
			if _, ok := methodsOf[strings.ToUpper(v)]; !ok {
				return fmt.Errorf("%w: %s: unknown method %q", ErrInvalidRoutesFile, where, v)
			}
		}

		switch s.On {
		case "", "member", "collection":
		default:
			return fmt.Errorf("%w: %s: unknown on %q", ErrInvalidRoutesFile, where, s.On)
		}

		if err := validateSpecs(s.Routes, where+".routes"); err != nil {
			return err
		}
	}

	return nil
}

func (s RouteSpec) options() []Option {
	var opts []Option
	if len(s.Only) > 0 {
		opts = append(opts, Only(s.Only...))
	}
	if len(s.Except) > 0 {
		opts = append(opts, Except(s.Except...))
	}
	if s.As != "" {
		opts = append(opts, As(s.As))
	}
	if s.Controller != "" {
		opts = append(opts, Controller(s.Controller))
	}
	if s.Path != "" {
		opts = append(opts, Path(s.Path))
	}
	if s.Subdomain != "" {
		opts = append(opts, Subdomain(s.Subdomain))
	}
	if s.Format != nil && !*s.Format {
		opts = append(opts, WithoutFormat())
	}
	if s.Patchable {
		opts = append(opts, WithPatch())
	}
	switch s.On {
	case "member":
		opts = append(opts, OnMember())
	case "collection":
		opts = append(opts, OnCollection())
	}

	return opts
}

func (s RouteSpec) nested() func(*Map) {
	if len(s.Routes) == 0 {
		return nil
	}

	return func(m *Map) {
		for _, child := range s.Routes {
			child.apply(m)
		}
	}
}

func (s RouteSpec) apply(m *Map) {
	opts := s.options()

	switch {
	case s.Get != "":
		m.Get(s.Get, s.To, opts...)
	case s.Post != "":
		m.Post(s.Post, s.To, opts...)
	case s.Put != "":
		m.Put(s.Put, s.To, opts...)
	case s.Patch != "":
		m.Patch(s.Patch, s.To, opts...)
	case s.Delete != "":
		m.Delete(s.Delete, s.To, opts...)
	case s.Match != "":
		methods := make([]string, len(s.Via))
		for i, v := range s.Via {
			methods[i] = strings.ToUpper(v)
		}
		m.Match(methods, s.Match, s.To, opts...)
	case s.Root != "":
		m.Root(s.Root, opts...)
	case s.Resources != "":
		m.Resources(s.Resources, s.nested(), opts...)
	case s.Resource != "":
		m.Resource(s.Resource, s.nested(), opts...)
	case s.Namespace != "":
		m.Namespace(s.Namespace, s.nestedOrEmpty(), opts...)
	case s.Scope != "":
		m.Scope(s.Scope, s.nestedOrEmpty(), opts...)
	}
}

func (s RouteSpec) nestedOrEmpty() func(*Map) {
	if fn := s.nested(); fn != nil {
		return fn
	}

	return func(*Map) {}
}

// methodsOf is the set of verbs a routes file may name under via.
var methodsOf = map[string]struct{}{
	http.MethodGet: {}, http.MethodPost: {}, http.MethodPut: {},
	http.MethodPatch: {}, http.MethodDelete: {}, http.MethodHead: {}, http.MethodOptions: {},
}
