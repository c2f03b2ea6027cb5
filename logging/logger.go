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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// HandlerType represents the type of logging handler.
type HandlerType string

const (
	// JSONHandler outputs structured JSON logs.
	JSONHandler HandlerType = "json"
	// TextHandler outputs key=value text logs.
	TextHandler HandlerType = "text"
	// ConsoleHandler outputs human-readable colored logs.
	ConsoleHandler HandlerType = "console"
)

// Level represents log level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// redacted replaces the value of sensitive attributes.
const redacted = "***REDACTED***"

var defaultRedactKeys = []string{"password", "token", "secret", "api_key", "authorization", "cookie"}

// ParseLevel parses "debug", "info", "warn" or "error", case-insensitively.
func ParseLevel(s string) (Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}

	return l, nil
}

// Logger builds and owns the application's [slog.Logger].
//
// The level is held in a [slog.LevelVar] so [Logger.SetLevel] applies to
// every logger derived with With. All methods are safe for concurrent use.
type Logger struct {
	handlerType HandlerType
	output      io.Writer
	level       slog.LevelVar

	serviceName    string
	serviceVersion string
	environment    string

	addSource   bool
	colors      bool
	redactKeys  []string
	replaceAttr func(groups []string, a slog.Attr) slog.Attr

	customLogger   *slog.Logger
	useCustom      bool
	registerGlobal bool

	slogger  atomic.Pointer[slog.Logger]
	mu       sync.Mutex
	shutdown atomic.Bool
}

// Option is a functional option for configuring the logger.
type Option func(*Logger)

// New creates a Logger. It does not touch the global slog default unless
// [WithGlobalLogger] is given.
func New(opts ...Option) (*Logger, error) {
	l := &Logger{
		handlerType: JSONHandler,
		output:      os.Stdout,
		redactKeys:  slices.Clone(defaultRedactKeys),
	}
	l.level.Set(LevelInfo)

	for _, opt := range opts {
		opt(l)
	}

	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.initializeHandler(); err != nil {
		return nil, err
	}

	return l, nil
}

// MustNew creates a new Logger or panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}

	return l
}

// Validate checks if the configuration is valid.
func (l *Logger) Validate() error {
	if l.output == nil {
		return errors.New("output writer cannot be nil")
	}
	if l.useCustom && l.customLogger == nil {
		return ErrNilLogger
	}

	return nil
}

// initializeHandler creates and stores the slog logger. l.mu must be held.
func (l *Logger) initializeHandler() error {
	if l.useCustom {
		l.store(l.customLogger)
		return nil
	}

	opts := &slog.HandlerOptions{
		Level:       &l.level,
		AddSource:   l.addSource,
		ReplaceAttr: l.buildReplaceAttr(),
	}

	var handler slog.Handler
	switch l.handlerType {
	case JSONHandler:
		handler = slog.NewJSONHandler(l.output, opts)
	case TextHandler:
		handler = slog.NewTextHandler(l.output, opts)
	case ConsoleHandler:
		handler = newConsoleHandler(l.output, opts, l.colors)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, l.handlerType)
	}

	logger := slog.New(newTraceHandler(handler))

	var attrs []any
	if l.serviceName != "" {
		attrs = append(attrs, "service", l.serviceName)
	}
	if l.serviceVersion != "" {
		attrs = append(attrs, "version", l.serviceVersion)
	}
	if l.environment != "" {
		attrs = append(attrs, "env", l.environment)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}

	l.store(logger)

	return nil
}

func (l *Logger) store(logger *slog.Logger) {
	l.slogger.Store(logger)
	if l.registerGlobal {
		slog.SetDefault(logger)
	}
}

func (l *Logger) buildReplaceAttr() func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if slices.Contains(l.redactKeys, strings.ToLower(a.Key)) {
			return slog.String(a.Key, redacted)
		}
		if l.replaceAttr != nil {
			return l.replaceAttr(groups, a)
		}

		return a
	}
}

// Logger returns the underlying [slog.Logger]. After [Logger.Shutdown] it
// returns a logger that discards everything.
func (l *Logger) Logger() *slog.Logger {
	if l == nil || l.shutdown.Load() {
		return slog.New(slog.DiscardHandler)
	}

	return l.slogger.Load()
}

// With returns a [slog.Logger] with additional attributes.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.Logger().With(args...)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) { l.Logger().Debug(msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) { l.Logger().Info(msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) { l.Logger().Warn(msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) { l.Logger().Error(msg, args...) }

// SetLevel changes the minimum level at runtime.
// It returns [ErrCannotChangeLevel] for loggers built with [WithCustomLogger].
func (l *Logger) SetLevel(level Level) error {
	if l.useCustom {
		return ErrCannotChangeLevel
	}
	l.level.Set(level)

	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	return l.level.Level()
}

// ServiceName returns the service name.
func (l *Logger) ServiceName() string { return l.serviceName }

// ServiceVersion returns the service version.
func (l *Logger) ServiceVersion() string { return l.serviceVersion }

// Environment returns the environment.
func (l *Logger) Environment() string { return l.environment }

// Shutdown flushes buffered records and stops logging.
func (l *Logger) Shutdown(_ context.Context) error {
	err := l.FlushBuffer()
	l.shutdown.Store(true)

	return err
}
