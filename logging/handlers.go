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

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

var (
	timeStyle  = lipgloss.NewStyle().Faint(true)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	msgStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	levelStyle = map[slog.Level]lipgloss.Style{
		slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

var consoleBuilderPool = sync.Pool{
	New: func() any {
		return &strings.Builder{}
	},
}

// consoleHandler implements [slog.Handler] for human-readable console
// output. ANSI styles pass through a [colorprofile.Writer], which
// downsamples or strips them to what the output supports.
type consoleHandler struct {
	opts   *slog.HandlerOptions
	mu     *sync.Mutex
	output io.Writer
	attrs  []consoleAttr
	group  string
}

// consoleAttr is an attribute added with WithAttrs and the group prefix
// that was open at the time.
type consoleAttr struct {
	prefix string
	attr   slog.Attr
}

func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions, colors bool) *consoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	cpw := colorprofile.NewWriter(w, os.Environ())
	if !colors {
		cpw.Profile = colorprofile.NoTTY
	}

	return &consoleHandler{opts: opts, mu: &sync.Mutex{}, output: cpw}
}

// Enabled reports whether the handler handles records at the given level.
func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}

	return level >= minLevel
}

// Handle formats and writes a log record.
func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	b := consoleBuilderPool.Get().(*strings.Builder)
	b.Reset()
	defer consoleBuilderPool.Put(b)

	b.WriteString(timeStyle.Render(r.Time.Format("15:04:05.000")))
	b.WriteByte(' ')
	b.WriteString(styleFor(r.Level).Render(fmt.Sprintf("%-5s", r.Level.String())))
	b.WriteByte(' ')
	b.WriteString(msgStyle.Render(r.Message))

	for _, ca := range h.attrs {
		h.appendAttr(b, ca.prefix, ca.attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(b, h.group, a)
		return true
	})

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		if f, _ := frames.Next(); f.File != "" {
			b.WriteByte(' ')
			b.WriteString(timeStyle.Render(fmt.Sprintf("(%s:%d)", filepath.Base(f.File), f.Line)))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, b.String())

	return err
}

// WithAttrs implements [slog.Handler].
func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]consoleAttr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		c.attrs = append(c.attrs, consoleAttr{prefix: h.group, attr: a})
	}

	return &c
}

// WithGroup implements [slog.Handler]. Group names prefix attribute keys.
func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if c.group != "" {
		c.group += "."
	}
	c.group += name

	return &c
}

func qualify(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return prefix + "." + key
}

func (h *consoleHandler) appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(nil, a)
	}
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, qualify(prefix, a.Key), ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(keyStyle.Render(qualify(prefix, a.Key) + "="))
	switch a.Value.Kind() {
	case slog.KindTime:
		b.WriteString(a.Value.Time().Format(time.RFC3339))
	case slog.KindDuration:
		b.WriteString(a.Value.Duration().String())
	default:
		s := a.Value.String()
		if strings.ContainsAny(s, " \t\"=") {
			s = fmt.Sprintf("%q", s)
		}
		b.WriteString(s)
	}
}

func styleFor(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return levelStyle[slog.LevelError]
	case level >= slog.LevelWarn:
		return levelStyle[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return levelStyle[slog.LevelInfo]
	default:
		return levelStyle[slog.LevelDebug]
	}
}
