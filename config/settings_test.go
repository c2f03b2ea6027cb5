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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings_Valid(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.False(t, s.IsProduction())
}

func TestSettings_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
		field  string
	}{
		{"bad environment", func(s *Settings) { s.Environment = "qa" }, "Settings.Environment"},
		{"bad address", func(s *Settings) { s.Server.Address = "nope" }, "Settings.Server.Address"},
		{"zero shutdown", func(s *Settings) { s.Server.ShutdownTimeout = 0 }, "Settings.Server.ShutdownTimeout"},
		{"bad log format", func(s *Settings) { s.Log.Format = "xml" }, "Settings.Log.Format"},
		{"otlp without endpoint", func(s *Settings) { s.Tracing.Provider = "otlp-http" }, "Settings.Tracing.Endpoint"},
		{"otlp grpc without endpoint", func(s *Settings) { s.Tracing.Provider = "otlp" }, "Settings.Tracing.Endpoint"},
		{"sample rate", func(s *Settings) { s.Tracing.SampleRate = 2 }, "Settings.Tracing.SampleRate"},
		{"otlp metrics without endpoint", func(s *Settings) { s.Metrics.Provider = "otlp" }, "Settings.Metrics.Endpoint"},
		{"negative body size", func(s *Settings) { s.Server.MaxBodySize = -1 }, "Settings.Server.MaxBodySize"},
		{"metrics path", func(s *Settings) { s.Metrics.Path = "metrics" }, "Settings.Metrics.Path"},
		{"tld length", func(s *Settings) { s.Subdomain.TLDLength = 0 }, "Settings.Subdomain.TLDLength"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadSettings(t *testing.T) {
	path := writeFile(t, "app.yaml", `
service:
  name: blog
environment: production
server:
  address: "127.0.0.1:8080"
  read_timeout: 3s
routes_file: config/routes.yaml
pool:
  max_idle: 8
`)
	t.Setenv("MVCTEST_SERVER__H2C", "true")
	t.Setenv("MVCTEST_POOL__MAX_IDLE", "16")
	t.Setenv("MVCTEST_HOT_RELOAD", "1")

	s, c, err := LoadSettings(t.Context(), path, "MVCTEST_")
	require.NoError(t, err)

	assert.Equal(t, "blog", s.Service.Name)
	assert.Equal(t, "dev", s.Service.Version, "default kept")
	assert.True(t, s.IsProduction())
	assert.Equal(t, "127.0.0.1:8080", s.Server.Address)
	assert.Equal(t, 3*time.Second, s.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, s.Server.WriteTimeout)
	assert.True(t, s.Server.H2C)
	assert.True(t, s.HotReload)
	assert.Equal(t, 16, s.Pool.MaxIdle, "env wins over file")
	assert.Equal(t, "config/routes.yaml", s.RoutesFile)
	assert.Equal(t, "blog", c.String("service.name"))
}

func TestLoadSettings_Invalid(t *testing.T) {
	path := writeFile(t, "app.yaml", "environment: qa\n")

	_, _, err := LoadSettings(t.Context(), path, "")
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "validate", cerr.Operation)
}
