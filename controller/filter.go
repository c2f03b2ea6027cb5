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
	"context"
	"slices"
)

// Step is one unit of a request pipeline: a filter or an action.
// Returning an error stops the pipeline.
type Step func(ctx context.Context) error

// FilterOption scopes a filter.
type FilterOption func(*filter)

// Only runs the filter for the named actions.
func Only(actions ...string) FilterOption {
	return func(f *filter) {
		f.only = append(f.only, actions...)
		f.hasOnly = true
	}
}

// Except skips the filter for the named actions.
func Except(actions ...string) FilterOption {
	return func(f *filter) {
		f.except = append(f.except, actions...)
		f.hasExcept = true
	}
}

// Named tags the filter. A tagged filter is enqueued at most once per
// request; the first registration that applies wins. Before and after
// filters share one set of tags, so an after filter reusing the tag of an
// applied before filter is skipped.
func Named(tag string) FilterOption {
	return func(f *filter) {
		f.tag = tag
	}
}

type filter struct {
	step      Step
	tag       string
	only      []string
	except    []string
	hasOnly   bool
	hasExcept bool
}

func newFilter(step Step, opts []FilterOption) filter {
	f := filter{step: step}
	for _, opt := range opts {
		opt(&f)
	}

	return f
}

// includes reports whether the filter applies to action. A filter applies
// when it is unscoped, when only lists the action and except does not, or
// when except is present and does not list the action.
func (f filter) includes(action string) bool {
	if !f.hasOnly && !f.hasExcept {
		return true
	}
	if f.hasOnly && slices.Contains(f.only, action) && !(f.hasExcept && slices.Contains(f.except, action)) {
		return true
	}

	return f.hasExcept && !slices.Contains(f.except, action)
}
