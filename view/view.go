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

package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"

	"rivaas.dev/mvc/helper"
)

const (
	layoutsDir = "layouts"
	sharedDir  = "shared"
)

// ErrNotFound is returned when a view or layout file does not exist.
var ErrNotFound = errors.New("view not found")

// Option configures a Renderer.
type Option func(*Renderer)

// WithHelpers sets where the path and url functions look up helpers. It
// is called on every render so route reloads are picked up.
func WithHelpers(fn func() *helper.Registry) Option {
	return func(r *Renderer) {
		r.helpers = fn
	}
}

// WithFuncs adds template functions. They cannot replace yield.
func WithFuncs(funcs template.FuncMap) Option {
	return func(r *Renderer) {
		for name, fn := range funcs {
			r.funcs[name] = fn
		}
	}
}

// WithExtension sets the template file extension, ".html" by default.
func WithExtension(ext string) Option {
	return func(r *Renderer) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.ext = ext
	}
}

// WithReload parses templates on every render instead of caching them.
func WithReload(enabled bool) Option {
	return func(r *Renderer) {
		r.reload = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Renderer renders views from a file system.
type Renderer struct {
	fsys    fs.FS
	ext     string
	reload  bool
	funcs   template.FuncMap
	helpers func() *helper.Registry
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// New returns a Renderer over fsys.
func New(fsys fs.FS, opts ...Option) (*Renderer, error) {
	if fsys == nil {
		return nil, errors.New("view: nil file system")
	}
	r := &Renderer{
		fsys:   fsys,
		ext:    ".html",
		logger: slog.New(slog.DiscardHandler),
		cache:  make(map[string]*template.Template),
	}
	r.funcs = r.defaultFuncs()
	for _, opt := range opts {
		opt(r)
	}
	r.funcs["yield"] = func() (template.HTML, error) {
		return "", errors.New("yield called outside a layout")
	}

	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(fsys fs.FS, opts ...Option) *Renderer {
	r, err := New(fsys, opts...)
	if err != nil {
		panic(err)
	}

	return r
}

// Render writes view, wrapped in layout unless layout is empty.
func (r *Renderer) Render(w io.Writer, view, layout string, data any) error {
	t, err := r.lookup(view)
	if err != nil {
		return err
	}
	if layout == "" {
		return r.execute(w, t, view, data)
	}

	lt, err := r.lookup(path.Join(layoutsDir, layout))
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err = r.execute(&body, t, view, data); err != nil {
		return err
	}
	content := template.HTML(body.String()) //nolint:gosec // output of an html/template execution
	lt = lt.Funcs(template.FuncMap{
		"yield": func() (template.HTML, error) { return content, nil },
	})

	return r.execute(w, lt, layout, data)
}

// HasLayout reports whether layouts/<name> exists.
func (r *Renderer) HasLayout(name string) bool {
	_, err := fs.Stat(r.fsys, path.Join(layoutsDir, name)+r.ext)
	return err == nil
}

// Views lists the view names in the file system, layouts excluded.
func (r *Renderer) Views() ([]string, error) {
	var names []string
	err := fs.WalkDir(r.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p == layoutsDir || p == sharedDir {
				return fs.SkipDir
			}
			return nil
		}
		if path.Ext(p) == r.ext {
			names = append(names, strings.TrimSuffix(p, r.ext))
		}
		return nil
	})

	return names, err
}

// Reset drops every parsed template.
func (r *Renderer) Reset() {
	r.mu.Lock()
	r.cache = make(map[string]*template.Template)
	r.mu.Unlock()
}

func (r *Renderer) execute(w io.Writer, t *template.Template, name string, data any) error {
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute %s: %w", name, err)
	}

	return nil
}

// lookup returns a fresh clone of the parsed template so yield can be
// rebound per render.
func (r *Renderer) lookup(name string) (*template.Template, error) {
	if !r.reload {
		r.mu.RLock()
		t, ok := r.cache[name]
		r.mu.RUnlock()
		if ok {
			return t.Clone()
		}
	}

	t, err := r.parse(name)
	if err != nil {
		return nil, err
	}
	if !r.reload {
		r.mu.Lock()
		r.cache[name] = t
		r.mu.Unlock()
		r.logger.Debug("template parsed", "name", name)
	}

	return t.Clone()
}

func (r *Renderer) parse(name string) (*template.Template, error) {
	file := name + r.ext
	src, err := fs.ReadFile(r.fsys, file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	t, err := template.New(name).Funcs(r.funcs).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	if err = r.addPartials(t); err != nil {
		return nil, err
	}

	return t, nil
}

// addPartials associates every shared/ template with t under its name
// without extension.
func (r *Renderer) addPartials(t *template.Template) error {
	partials, err := fs.Glob(r.fsys, sharedDir+"/*"+r.ext)
	if err != nil {
		return err
	}
	for _, file := range partials {
		src, err := fs.ReadFile(r.fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if _, err = t.New(strings.TrimSuffix(file, r.ext)).Parse(string(src)); err != nil {
			return fmt.Errorf("failed to parse %s: %w", file, err)
		}
	}

	return nil
}
