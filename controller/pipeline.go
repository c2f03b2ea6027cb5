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
	"fmt"
	"time"
)

// ErrPipelineState is returned when a pipeline is used out of order, for
// example run twice.
var ErrPipelineState = errors.New("pipeline used in wrong state")

// State is the lifecycle state of a [Pipeline].
type State int

const (
	// Idle is the state of a new pipeline.
	Idle State = iota
	// Enqueuing means steps are being added.
	Enqueuing
	// Running means steps are executing.
	Running
	// Completed means every step ran, or a filter halted the request.
	Completed
	// Errored means a step failed or the context was cancelled.
	Errored
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Enqueuing:
		return "enqueuing"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StepKind tells filters from the action.
type StepKind int

const (
	// BeforeFilter runs ahead of the action.
	BeforeFilter StepKind = iota
	// ActionStep is the action itself.
	ActionStep
	// AfterFilter runs after the action.
	AfterFilter
)

// String returns the kind name.
func (k StepKind) String() string {
	switch k {
	case BeforeFilter:
		return "before"
	case ActionStep:
		return "action"
	case AfterFilter:
		return "after"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// StepTiming is the diagnostic record of one executed step.
type StepTiming struct {
	Name    string
	Kind    StepKind
	Start   time.Time
	Elapsed time.Duration
}

type task struct {
	name string
	kind StepKind
	fn   Step
}

// Pipeline runs queued steps strictly one after another.
// A Pipeline is used for one request and is not safe for concurrent use.
type Pipeline struct {
	state   State
	tasks   []task
	cursor  int
	history []StepTiming

	// stopAfter is consulted after each successful step. Returning true
	// completes the pipeline without running the remaining steps.
	stopAfter func(kind StepKind) bool

	// onStep, when set, is called after every executed step.
	onStep func(ctx context.Context, t StepTiming, err error)
}

// NewPipeline returns an idle pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Enqueue appends a step. It fails once the pipeline started running.
func (p *Pipeline) Enqueue(name string, kind StepKind, fn Step) error {
	if p.state != Idle && p.state != Enqueuing {
		return fmt.Errorf("%w: enqueue while %s", ErrPipelineState, p.state)
	}

	p.state = Enqueuing
	p.tasks = append(p.tasks, task{name: name, kind: kind, fn: fn})

	return nil
}

// Run executes the queued steps in order. The first error, or the context
// error when ctx is done between two steps, ends the run and is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.state != Idle && p.state != Enqueuing {
		return fmt.Errorf("%w: run while %s", ErrPipelineState, p.state)
	}
	p.state = Running

	for p.cursor < len(p.tasks) {
		if err := ctx.Err(); err != nil {
			p.state = Errored
			return err
		}

		t := p.tasks[p.cursor]
		p.cursor++

		start := time.Now()
		err := t.fn(ctx)
		timing := StepTiming{Name: t.name, Kind: t.kind, Start: start, Elapsed: time.Since(start)}
		p.history = append(p.history, timing)

		if p.onStep != nil {
			p.onStep(ctx, timing, err)
		}

		if err != nil {
			p.state = Errored
			return err
		}

		if p.stopAfter != nil && p.stopAfter(t.kind) {
			break
		}
	}

	p.state = Completed

	return nil
}

// State returns the current state.
func (p *Pipeline) State() State { return p.state }

// Len returns the number of queued steps.
func (p *Pipeline) Len() int { return len(p.tasks) }

// Steps returns the names of the queued steps in order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.tasks))
	for i, t := range p.tasks {
		names[i] = t.name
	}

	return names
}

// History returns the timing of the executed steps.
func (p *Pipeline) History() []StepTiming {
	out := make([]StepTiming, len(p.history))
	copy(out, p.history)

	return out
}
