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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"path"
	"slices"
	"strings"

	"rivaas.dev/mvc/binding"
	"rivaas.dev/mvc/helper"
	"rivaas.dev/mvc/routing"
)

var (
	// ErrNoResponse is returned by render primitives called outside Perform.
	ErrNoResponse = errors.New("controller is not serving a request")

	// ErrNoRenderer is returned by View when no renderer is attached.
	ErrNoRenderer = errors.New("no view renderer attached")

	// ErrUnknownHelper is returned by RedirectTo when the helper does not
	// exist or cannot build a URL from the arguments.
	ErrUnknownHelper = errors.New("unknown url helper")
)

// DefaultLayout is the layout used when nothing more specific exists.
const DefaultLayout = "application"

// Base implements [Controller] and is meant to be embedded:
//
//	type PostsController struct {
//		controller.Base
//		store *Store
//	}
//
//	func NewPosts(store *Store) controller.Factory {
//		return func() controller.Controller {
//			c := &PostsController{store: store}
//			c.Before(c.load, controller.Only("show", "edit"), controller.Named("load"))
//			c.Action("index", c.index)
//			c.Action("show", c.show)
//			return c
//		}
//	}
//
// Filters and actions registered on an instance are kept across requests;
// request state is cleared by [Base.Reset].
type Base struct {
	// Request is the request being served.
	Request *http.Request

	// Response writes the reply for the request being served.
	Response http.ResponseWriter

	// Layout is the default layout for View. Empty means resolve by
	// namespace, then "application".
	Layout string

	env      Env
	logger   *slog.Logger
	observer Observer

	before  []filter
	after   []filter
	actions map[string]Step

	ctx      context.Context
	action   string
	rendered bool
	halted   bool
	status   int
	pipeline *Pipeline
}

// Attach implements [Attacher].
func (b *Base) Attach(env Env) {
	b.env = env
	b.logger = env.Logger
	b.observer = env.Observer
}

// Name returns the fully qualified controller name.
func (b *Base) Name() string { return b.env.Name }

// Before registers a filter that runs ahead of the action.
func (b *Base) Before(step Step, opts ...FilterOption) {
	b.before = append(b.before, newFilter(step, opts))
}

// After registers a filter that runs after the action.
func (b *Base) After(step Step, opts ...FilterOption) {
	b.after = append(b.after, newFilter(step, opts))
}

// Action registers step under name. Registering a name again replaces it.
func (b *Base) Action(name string, step Step) {
	if b.actions == nil {
		b.actions = make(map[string]Step)
	}
	b.actions[name] = step
}

// Actions returns the registered action names, sorted.
func (b *Base) Actions() []string {
	return slices.Sorted(maps.Keys(b.actions))
}

// Perform implements [Controller]. It builds the request's pipeline from
// the before-filters that apply to action, the action and the applying
// after-filters, then runs it.
//
// A before-filter that renders or calls [Base.Halt] completes the request;
// the remaining steps are skipped. After the action, after-filters run
// unless the action called Halt.
func (b *Base) Perform(ctx context.Context, action string, w http.ResponseWriter, r *http.Request) error {
	step, ok := b.actions[action]
	if !ok {
		return &ActionNotFoundError{Controller: b.Name(), Action: action}
	}

	b.ctx = ctx
	b.action = action
	b.Request = r
	b.Response = w

	p := NewPipeline()
	seen := make(map[string]struct{})

	enqueue := func(filters []filter, kind StepKind) {
		for i, f := range filters {
			if !f.includes(action) {
				continue
			}
			name := f.tag
			if name != "" {
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
			} else {
				name = fmt.Sprintf("%s[%d]", kind, i)
			}
			_ = p.Enqueue(name, kind, f.step)
		}
	}

	enqueue(b.before, BeforeFilter)
	_ = p.Enqueue(action, ActionStep, step)
	enqueue(b.after, AfterFilter)

	p.stopAfter = func(kind StepKind) bool {
		switch kind {
		case BeforeFilter:
			return b.rendered || b.halted
		case ActionStep:
			return b.halted
		default:
			return false
		}
	}
	p.onStep = func(ctx context.Context, t StepTiming, err error) {
		b.log().Debug("step finished",
			"controller", b.Name(), "action", action, "step", t.Name, "kind", t.Kind.String(),
			"elapsed", t.Elapsed, "error", err)
		if b.observer != nil {
			b.observer.StepFinished(ctx, b.Name(), action, t, err)
		}
	}
	b.pipeline = p

	return p.Run(ctx)
}

// Reset implements [Controller]. Embedding types overriding Reset must
// call it.
func (b *Base) Reset() {
	b.Request = nil
	b.Response = nil
	b.ctx = nil
	b.action = ""
	b.rendered = false
	b.halted = false
	b.status = 0
	b.pipeline = nil
}

// ActionName returns the action being performed.
func (b *Base) ActionName() string { return b.action }

// Context returns the context of the request being served.
func (b *Base) Context() context.Context {
	if b.ctx == nil {
		return context.Background()
	}

	return b.ctx
}

// Param returns a path variable of the matched route, falling back to the
// query string.
func (b *Base) Param(name string) string {
	if b.Request == nil {
		return ""
	}
	if v, ok := routing.Params(b.Request)[name]; ok {
		return v
	}

	return b.Request.URL.Query().Get(name)
}

// Params returns the path variables of the matched route.
func (b *Base) Params() map[string]string {
	if b.Request == nil {
		return nil
	}

	return routing.Params(b.Request)
}

// Bind decodes the request parameters into out and validates them; see
// [binding.Request]. A validation failure is a [*binding.Error] the
// action can render, or return to answer 422.
func (b *Base) Bind(out any) error {
	if b.Request == nil {
		return ErrNoResponse
	}

	return binding.Request(b.Request, b.Params(), out)
}

// Halt stops the pipeline after the current step. Called from the action
// it suppresses the after-filters.
func (b *Base) Halt() { b.halted = true }

// Halted reports whether Halt was called for this request.
func (b *Base) Halted() bool { return b.halted }

// Rendered reports whether a response was written for this request.
func (b *Base) Rendered() bool { return b.rendered }

// Status returns the status written by the render primitives, 0 if none.
func (b *Base) Status() int { return b.status }

// Pipeline returns the pipeline of the current request.
func (b *Base) Pipeline() *Pipeline { return b.pipeline }

// Helpers returns the current URL helper registry.
func (b *Base) Helpers() *helper.Registry {
	if b.env.Helpers != nil {
		if h := b.env.Helpers(); h != nil {
			return h
		}
	}

	return helper.NewRegistry()
}

// URL renders the named helper.
func (b *Base) URL(name string, args ...any) string {
	return b.Helpers().URL(name, args...)
}

// Render writes the response. Only the first call per request writes;
// later calls log a warning and return nil.
func (b *Base) Render(status int, contentType string, body []byte) error {
	if !b.claim() {
		return nil
	}
	if b.Response == nil {
		return ErrNoResponse
	}

	b.status = status
	if contentType != "" {
		b.Response.Header().Set("Content-Type", contentType)
	}
	b.Response.WriteHeader(status)
	if len(body) > 0 && (b.Request == nil || b.Request.Method != http.MethodHead) {
		if _, err := b.Response.Write(body); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}

	return nil
}

// Text renders plain text.
func (b *Base) Text(status int, s string) error {
	return b.Render(status, "text/plain; charset=utf-8", []byte(s))
}

// HTML renders an HTML string.
func (b *Base) HTML(status int, s string) error {
	return b.Render(status, "text/html; charset=utf-8", []byte(s))
}

// JSON renders v as JSON.
func (b *Base) JSON(status int, v any) error {
	if b.rendered {
		return b.Render(status, "", nil)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return b.Render(status, "application/json; charset=utf-8", buf.Bytes())
}

// Head renders an empty body.
func (b *Base) Head(status int) error {
	return b.Render(status, "", nil)
}

// Redirect sends the client to url.
func (b *Base) Redirect(status int, url string) error {
	if b.rendered {
		return b.Render(status, "", nil)
	}
	if b.Response == nil {
		return ErrNoResponse
	}
	b.Response.Header().Set("Location", url)

	return b.Render(status, "", nil)
}

// RedirectTo redirects with 302 Found to the URL of a named helper.
func (b *Base) RedirectTo(name string, args ...any) error {
	url := b.URL(name, args...)
	if url == "" {
		return fmt.Errorf("%w: %s", ErrUnknownHelper, name)
	}

	return b.Redirect(http.StatusFound, url)
}

// ViewOption configures [Base.View].
type ViewOption func(*viewOptions)

type viewOptions struct {
	layout   string
	noLayout bool
}

// WithLayout renders inside the named layout.
func WithLayout(name string) ViewOption {
	return func(o *viewOptions) {
		o.layout = name
	}
}

// NoLayout renders the view alone.
func NoLayout() ViewOption {
	return func(o *viewOptions) {
		o.noLayout = true
	}
}

// View renders a template through the attached [Renderer]. An empty name
// means "<controller>/<action>"; a name without '/' is looked up in the
// controller's directory.
//
// The layout is the first of: [WithLayout], [Base.Layout],
// "<namespace>/application", "application" that the renderer knows.
func (b *Base) View(status int, name string, data any, opts ...ViewOption) error {
	if b.rendered {
		return b.Render(status, "", nil)
	}

	r := b.env.Renderer
	if r == nil {
		return ErrNoRenderer
	}

	var o viewOptions
	for _, opt := range opts {
		opt(&o)
	}

	switch {
	case name == "":
		name = b.Name() + "/" + b.action
	case !strings.Contains(name, "/"):
		name = b.Name() + "/" + name
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, name, b.layoutFor(o), data); err != nil {
		return fmt.Errorf("failed to render view %s: %w", name, err)
	}

	return b.Render(status, "text/html; charset=utf-8", buf.Bytes())
}

func (b *Base) layoutFor(o viewOptions) string {
	switch {
	case o.noLayout:
		return ""
	case o.layout != "":
		return o.layout
	case b.Layout != "":
		return b.Layout
	}

	r := b.env.Renderer
	if ns := path.Dir(b.Name()); ns != "." && ns != "/" {
		if candidate := ns + "/" + DefaultLayout; r.HasLayout(candidate) {
			return candidate
		}
	}
	if r.HasLayout(DefaultLayout) {
		return DefaultLayout
	}

	return ""
}

// claim marks the response as rendered. It returns false, after logging,
// when it already was.
func (b *Base) claim() bool {
	if !b.rendered {
		b.rendered = true
		return true
	}

	b.log().Warn("render called more than once, ignored",
		"controller", b.Name(), "action", b.action)
	if b.observer != nil {
		b.observer.DoubleRender(b.Context(), b.Name(), b.action)
	}

	return false
}

func (b *Base) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}

	return slog.New(slog.DiscardHandler)
}
