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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings is the application configuration.
type Settings struct {
	Service     ServiceSettings   `config:"service"`
	Environment string            `config:"environment" validate:"required,oneof=development test staging production"`
	Server      ServerSettings    `config:"server"`
	Log         LogSettings       `config:"log"`
	HotReload   bool              `config:"hot_reload"`
	RoutesFile  string            `config:"routes_file"`
	ViewsDir    string            `config:"views_dir"`
	Metrics     MetricsSettings   `config:"metrics"`
	Tracing     TracingSettings   `config:"tracing"`
	Pool        PoolSettings      `config:"pool"`
	Subdomain   SubdomainSettings `config:"subdomain"`
	CORS        CORSSettings      `config:"cors"`
	RateLimit   RateLimitSettings `config:"rate_limit"`
}

// ServiceSettings identifies the service in logs, traces and metrics.
type ServiceSettings struct {
	Name    string `config:"name" validate:"required"`
	Version string `config:"version"`
}

// ServerSettings configures the HTTP server.
type ServerSettings struct {
	Address         string        `config:"address" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `config:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `config:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `config:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `config:"shutdown_timeout" validate:"gt=0"`
	H2C             bool          `config:"h2c"`
	RequestTimeout  time.Duration `config:"request_timeout" validate:"gte=0"`
	MaxBodySize     int64         `config:"max_body_size" validate:"gte=0"`
	Compression     bool          `config:"compression"`
	TrailingSlash   string        `config:"trailing_slash" validate:"omitempty,oneof=remove add strict"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level  string `config:"level" validate:"oneof=debug info warn error"`
	Format string `config:"format" validate:"oneof=json text console"`
}

// MetricsSettings configures the metrics endpoint.
type MetricsSettings struct {
	Enabled  bool   `config:"enabled"`
	Provider string `config:"provider" validate:"oneof=prometheus otlp stdout"`
	Endpoint string `config:"endpoint" validate:"required_if=Provider otlp"`
	Path     string `config:"path" validate:"startswith=/"`
}

// TracingSettings configures span export.
type TracingSettings struct {
	Provider   string  `config:"provider" validate:"oneof=noop stdout otlp otlp-http"`
	Endpoint   string  `config:"endpoint" validate:"required_if=Provider otlp-http,required_if=Provider otlp"`
	SampleRate float64 `config:"sample_rate" validate:"gte=0,lte=1"`
}

// PoolSettings bounds the controller pools.
type PoolSettings struct {
	MaxIdle int `config:"max_idle" validate:"gte=0"`
	Warmup  int `config:"warmup" validate:"gte=0"`
}

// SubdomainSettings configures host label matching.
type SubdomainSettings struct {
	TLDLength int `config:"tld_length" validate:"gte=1"`
}

// CORSSettings configures cross-origin requests. CORS is off while no
// origin is allowed; "*" allows every origin.
type CORSSettings struct {
	AllowedOrigins   []string `config:"allowed_origins"`
	AllowCredentials bool     `config:"allow_credentials"`
	MaxAge           int      `config:"max_age" validate:"gte=0"`
}

// RateLimitSettings configures the per client token bucket.
type RateLimitSettings struct {
	Enabled           bool `config:"enabled"`
	RequestsPerSecond int  `config:"requests_per_second" validate:"required_if=Enabled true,gte=0"`
	Burst             int  `config:"burst" validate:"required_if=Enabled true,gte=0"`
}

// DefaultSettings returns the settings used when no source sets a value.
func DefaultSettings() Settings {
	return Settings{
		Service:     ServiceSettings{Name: "mvc", Version: "dev"},
		Environment: "development",
		Server: ServerSettings{
			Address:         ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxBodySize:     2 << 20,
			Compression:     true,
		},
		Log:       LogSettings{Level: "info", Format: "console"},
		Metrics:   MetricsSettings{Provider: "prometheus", Path: "/metrics"},
		Tracing:   TracingSettings{Provider: "noop", SampleRate: 1},
		Subdomain: SubdomainSettings{TLDLength: 1},
		CORS:      CORSSettings{MaxAge: 3600},
		RateLimit: RateLimitSettings{RequestsPerSecond: 100, Burst: 20},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate implements [Validator].
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}

	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

// IsProduction reports whether the environment is production.
func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}

// LoadSettings loads [Settings] over the defaults from the optional file
// and the environment variables starting with envPrefix.
func LoadSettings(ctx context.Context, file, envPrefix string) (*Settings, *Config, error) {
	s := DefaultSettings()

	opts := []Option{WithBinding(&s)}
	if file != "" {
		opts = append(opts, WithOptionalFile(file))
	}
	if envPrefix != "" {
		opts = append(opts, WithEnv(envPrefix))
	}

	c, err := New(opts...)
	if err != nil {
		return nil, nil, err
	}
	if err = c.Load(ctx); err != nil {
		return nil, nil, err
	}

	return &s, c, nil
}
