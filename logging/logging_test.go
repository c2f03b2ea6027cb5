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
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(WithOutput(nil))
	require.Error(t, err)

	_, err = New(WithCustomLogger(nil))
	require.ErrorIs(t, err, ErrNilLogger)

	_, err = New(WithHandlerType("xml"))
	require.ErrorIs(t, err, ErrInvalidHandler)

	assert.Panics(t, func() { MustNew(WithHandlerType("xml")) })
}

func TestLogger_ServiceAttrsAndRedaction(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t,
		WithServiceName("blog"),
		WithServiceVersion("1.2.3"),
		WithEnvironment("test"),
		WithRedactedKeys("session_id"),
	)
	th.Logger.Info("login", "user", "ann", "password", "hunter2", "Session_ID", "abc")

	entries, err := th.Logs()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "login", e.Message)
	assert.Equal(t, "blog", e.Attrs["service"])
	assert.Equal(t, "1.2.3", e.Attrs["version"])
	assert.Equal(t, "test", e.Attrs["env"])
	assert.Equal(t, "ann", e.Attrs["user"])
	assert.Equal(t, redacted, e.Attrs["password"])
	assert.Equal(t, redacted, e.Attrs["Session_ID"])
}

func TestLogger_SetLevel(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t, WithLevel(LevelWarn))
	derived := th.Logger.With("component", "router")

	derived.Info("hidden")
	require.NoError(t, th.Logger.SetLevel(LevelDebug))
	derived.Debug("visible")

	assert.False(t, th.ContainsLog("hidden"))
	assert.True(t, th.ContainsLog("visible"))
	assert.True(t, th.ContainsAttr("component", "router"))
	assert.Equal(t, LevelDebug, th.Logger.Level())

	custom := MustNew(WithCustomLogger(slog.New(slog.DiscardHandler)))
	require.ErrorIs(t, custom.SetLevel(LevelDebug), ErrCannotChangeLevel)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Level{"debug": LevelDebug, "INFO": LevelInfo, " warn ": LevelWarn, "error": LevelError} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestBuffering(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	derived := th.Logger.Logger().With("phase", "boot")

	th.Logger.StartBuffering()
	assert.True(t, th.Logger.IsBuffering())

	th.Logger.Info("first")
	derived.Info("derived before buffering")
	th.Logger.Logger().With("k", "v").Info("second")
	assert.Zero(t, th.Count("first"), "held back")

	require.NoError(t, th.Logger.FlushBuffer())
	assert.False(t, th.Logger.IsBuffering())

	entries, err := th.Logs()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "derived before buffering", entries[1].Message)
	assert.Equal(t, "second", entries[2].Message)
	assert.Equal(t, "v", entries[2].Attrs["k"])

	require.NoError(t, th.Logger.FlushBuffer())
}

func TestTraceCorrelation(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(t.Context(), "op")
	defer span.End()

	th := NewTestHelper(t)
	th.Logger.Logger().InfoContext(ctx, "traced")
	th.Logger.Logger().Info("untraced")

	entries, err := th.Logs()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, span.SpanContext().TraceID().String(), entries[0].Attrs[fieldTraceID])
	assert.Equal(t, span.SpanContext().SpanID().String(), entries[0].Attrs[fieldSpanID])
	assert.NotContains(t, entries[1].Attrs, fieldTraceID)
}

func TestConsoleHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := MustNew(WithConsoleHandler(), WithoutColors(), WithOutput(&buf), WithDebugLevel())
	l.Logger().WithGroup("req").With("id", 7).Debug("served", "path", "/posts", "note", "two words", "token", "x")

	line := buf.String()
	assert.Contains(t, line, "DEBUG")
	assert.Contains(t, line, "served")
	assert.Contains(t, line, "req.id=7")
	assert.Contains(t, line, "req.path=/posts")
	assert.Contains(t, line, `req.note="two words"`)
	assert.Contains(t, line, "req.token="+redacted)
	assert.NotContains(t, line, "\x1b[", "no ANSI escapes without colors")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	th := NewTestHelper(t)
	th.Logger.StartBuffering()
	th.Logger.Info("pending")
	require.NoError(t, th.Logger.Shutdown(t.Context()))
	th.Logger.Info("after shutdown")

	assert.True(t, th.ContainsLog("pending"))
	assert.False(t, th.ContainsLog("after shutdown"))
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	fallback := slog.New(slog.DiscardHandler)
	assert.Same(t, fallback, FromContext(t.Context(), fallback))
	assert.NotNil(t, FromContext(t.Context(), nil))

	stored := slog.New(slog.DiscardHandler).With("k", "v")
	ctx := NewContext(t.Context(), stored)
	assert.Same(t, stored, FromContext(ctx, fallback))
}
