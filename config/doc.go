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

// Package config loads layered configuration.
//
// Sources are read in order and deep-merged, later ones winning. Files
// are YAML, TOML or JSON by extension; environment variables map to
// nested keys with "__" between levels:
//
//	var s config.Settings
//	cfg := config.MustNew(
//		config.WithFile("config.yaml"),
//		config.WithEnv("BLOG_"),
//		config.WithBinding(&s),
//	)
//	if err := cfg.Load(ctx); err != nil {
//		return err
//	}
//	port := cfg.String("server.address")
//
// Keys are case-insensitive. Bound structs use the "config" tag and are
// validated when they implement [Validator]; [Settings] does so with
// go-playground/validator. A JSON schema may check the merged values too.
package config
