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
	"io"
	"log/slog"
	"net/http"
	"time"

	"rivaas.dev/mvc/helper"
)

var (
	// ErrDuplicateController is returned when a controller name is
	// registered twice.
	ErrDuplicateController = errors.New("controller already registered")

	// ErrUnknownController is returned when no factory is registered under
	// a name.
	ErrUnknownController = errors.New("unknown controller")

	// ErrNilFactory is returned when registering a nil factory.
	ErrNilFactory = errors.New("controller factory is nil")
)

// ActionNotFoundError is returned by Perform for an action the controller
// does not define. It renders as 404.
type ActionNotFoundError struct {
	Controller string
	Action     string
}

// Error implements the error interface.
func (e *ActionNotFoundError) Error() string {
	return fmt.Sprintf("action %q not found in controller %q", e.Action, e.Controller)
}

// HTTPStatus reports 404.
func (e *ActionNotFoundError) HTTPStatus() int { return http.StatusNotFound }

// Code returns a machine-readable error code.
func (e *ActionNotFoundError) Code() string { return "action_not_found" }

// Controller is what the dispatcher runs for a matched route.
type Controller interface {
	// Perform runs the named action with its filters for one request.
	// It returns once the whole pipeline, after-filters included, is done.
	Perform(ctx context.Context, action string, w http.ResponseWriter, r *http.Request) error

	// Reset clears per-request state before the instance is reused.
	Reset()
}

// Factory builds a fresh controller instance.
type Factory func() Controller

// Attacher is implemented by controllers that want the application
// collaborators. The dispatcher calls Attach once per new instance.
type Attacher interface {
	Attach(env Env)
}

// Env is handed to a controller instance when it is created.
type Env struct {
	// Name is the fully qualified controller name, e.g. "admin/posts".
	Name string

	Logger *slog.Logger

	// Helpers returns the current helper registry. It is a function so a
	// reused instance always sees the registry of the latest route reload.
	Helpers func() *helper.Registry

	Renderer Renderer
	Observer Observer
}

// Renderer renders named views, optionally inside a layout.
type Renderer interface {
	Render(w io.Writer, view, layout string, data any) error
	HasLayout(name string) bool
}

// Observer receives controller diagnostics.
type Observer interface {
	// StepFinished is called after each pipeline step.
	StepFinished(ctx context.Context, controller, action string, t StepTiming, err error)

	// DoubleRender is called when an action renders a second time.
	DoubleRender(ctx context.Context, controller, action string)

	// Acquired is called when the dispatcher obtains an instance. reused
	// is false when the instance was freshly built.
	Acquired(ctx context.Context, controller string, reused bool)

	// Dispatched is called once the dispatcher is done with a request.
	Dispatched(ctx context.Context, controller, action string, elapsed time.Duration, err error)
}

// NopObserver ignores everything.
type NopObserver struct{}

// StepFinished implements Observer.
func (NopObserver) StepFinished(context.Context, string, string, StepTiming, error) {}

// DoubleRender implements Observer.
func (NopObserver) DoubleRender(context.Context, string, string) {}

// Acquired implements Observer.
func (NopObserver) Acquired(context.Context, string, bool) {}

// Dispatched implements Observer.
func (NopObserver) Dispatched(context.Context, string, string, time.Duration, error) {}
