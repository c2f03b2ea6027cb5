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
	"io"
	"log/slog"
	"strings"
)

// WithHandlerType sets the logging handler type.
func WithHandlerType(t HandlerType) Option {
	return func(l *Logger) { l.handlerType = t }
}

// WithJSONHandler uses JSON structured logging (default).
func WithJSONHandler() Option {
	return WithHandlerType(JSONHandler)
}

// WithTextHandler uses text key=value logging.
func WithTextHandler() Option {
	return WithHandlerType(TextHandler)
}

// WithConsoleHandler uses human-readable console logging. Colors are used
// when the output is a terminal that supports them.
func WithConsoleHandler() Option {
	return func(l *Logger) {
		l.handlerType = ConsoleHandler
		l.colors = true
	}
}

// WithoutColors disables colors of the console handler.
func WithoutColors() Option {
	return func(l *Logger) { l.colors = false }
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.output = w }
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) Option {
	return func(l *Logger) { l.level.Set(level) }
}

// WithDebugLevel enables debug logging.
func WithDebugLevel() Option {
	return WithLevel(LevelDebug)
}

// WithServiceName adds a "service" attribute to every entry.
func WithServiceName(name string) Option {
	return func(l *Logger) { l.serviceName = name }
}

// WithServiceVersion adds a "version" attribute to every entry.
func WithServiceVersion(version string) Option {
	return func(l *Logger) { l.serviceVersion = version }
}

// WithEnvironment adds an "env" attribute to every entry.
func WithEnvironment(env string) Option {
	return func(l *Logger) { l.environment = env }
}

// WithSource enables source code location in logs.
func WithSource(enabled bool) Option {
	return func(l *Logger) { l.addSource = enabled }
}

// WithRedactedKeys adds attribute keys whose values are replaced in the
// output. password, token, secret, api_key, authorization and cookie are
// always redacted.
func WithRedactedKeys(keys ...string) Option {
	return func(l *Logger) {
		for _, k := range keys {
			l.redactKeys = append(l.redactKeys, strings.ToLower(k))
		}
	}
}

// WithReplaceAttr sets a custom attribute replacer, applied after
// redaction. Return an empty [slog.Attr] to drop the attribute.
func WithReplaceAttr(fn func(groups []string, a slog.Attr) slog.Attr) Option {
	return func(l *Logger) { l.replaceAttr = fn }
}

// WithCustomLogger uses a custom [slog.Logger] instead of creating one.
// [Logger.SetLevel] is not supported then.
func WithCustomLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.customLogger = logger
		l.useCustom = true
	}
}

// WithGlobalLogger registers the logger as the slog default.
func WithGlobalLogger() Option {
	return func(l *Logger) { l.registerGlobal = true }
}
