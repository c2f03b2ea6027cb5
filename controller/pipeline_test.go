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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(trace *[]string, name string, err error) Step {
	return func(context.Context) error {
		*trace = append(*trace, name)
		return err
	}
}

func TestPipeline_RunsInOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	p := NewPipeline()
	assert.Equal(t, Idle, p.State())

	require.NoError(t, p.Enqueue("a", BeforeFilter, recorder(&trace, "a", nil)))
	assert.Equal(t, Enqueuing, p.State())
	require.NoError(t, p.Enqueue("act", ActionStep, recorder(&trace, "act", nil)))
	require.NoError(t, p.Enqueue("c", AfterFilter, recorder(&trace, "c", nil)))

	require.NoError(t, p.Run(t.Context()))
	assert.Equal(t, Completed, p.State())
	assert.Equal(t, []string{"a", "act", "c"}, trace)
	assert.Equal(t, []string{"a", "act", "c"}, p.Steps())
	assert.Equal(t, 3, p.Len())

	history := p.History()
	require.Len(t, history, 3)
	assert.Equal(t, ActionStep, history[1].Kind)
	assert.False(t, history[0].Start.IsZero())
}

func TestPipeline_ErrorShortCircuits(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var trace []string
	p := NewPipeline()
	_ = p.Enqueue("a", BeforeFilter, recorder(&trace, "a", boom))
	_ = p.Enqueue("act", ActionStep, recorder(&trace, "act", nil))

	err := p.Run(t.Context())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Errored, p.State())
	assert.Equal(t, []string{"a"}, trace)
	assert.Len(t, p.History(), 1)
}

func TestPipeline_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	var trace []string
	p := NewPipeline()
	_ = p.Enqueue("a", BeforeFilter, func(context.Context) error {
		trace = append(trace, "a")
		cancel()
		return nil
	})
	_ = p.Enqueue("act", ActionStep, recorder(&trace, "act", nil))

	err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Errored, p.State())
	assert.Equal(t, []string{"a"}, trace)
}

func TestPipeline_WrongState(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	require.NoError(t, p.Run(t.Context()))
	assert.Equal(t, Completed, p.State())

	require.ErrorIs(t, p.Run(t.Context()), ErrPipelineState)
	require.ErrorIs(t, p.Enqueue("late", ActionStep, nil), ErrPipelineState)
}

func TestPipeline_StopAfter(t *testing.T) {
	t.Parallel()

	var trace []string
	p := NewPipeline()
	_ = p.Enqueue("a", BeforeFilter, recorder(&trace, "a", nil))
	_ = p.Enqueue("act", ActionStep, recorder(&trace, "act", nil))
	p.stopAfter = func(kind StepKind) bool { return kind == BeforeFilter }

	require.NoError(t, p.Run(t.Context()))
	assert.Equal(t, Completed, p.State())
	assert.Equal(t, []string{"a"}, trace)
}

func TestStateAndKindStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "errored", Errored.String())
	assert.Equal(t, "State(9)", State(9).String())
	assert.Equal(t, "after", AfterFilter.String())
	assert.Equal(t, "StepKind(7)", StepKind(7).String())
}

func TestFilter_Includes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		opts   []FilterOption
		action string
		want   bool
	}{
		{"unscoped", nil, "index", true},
		{"only hit", []FilterOption{Only("edit")}, "edit", true},
		{"only miss", []FilterOption{Only("edit")}, "index", false},
		{"except hit", []FilterOption{Except("index")}, "index", false},
		{"except miss", []FilterOption{Except("index")}, "show", true},
		{"only and except both list action", []FilterOption{Only("edit"), Except("edit")}, "edit", false},
		{"only lists, except does not", []FilterOption{Only("edit"), Except("show")}, "edit", true},
		{"neither lists, except present", []FilterOption{Only("edit"), Except("show")}, "index", true},
		{"except lists, only does not", []FilterOption{Only("edit"), Except("show")}, "show", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFilter(nil, tt.opts)
			assert.Equal(t, tt.want, f.includes(tt.action))
		})
	}
}
