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
	"errors"
	"fmt"
)

// ErrUnknownFormat is returned for unsupported configuration formats.
var ErrUnknownFormat = errors.New("unknown configuration format")

// Error describes a failure while loading configuration.
type Error struct {
	Source    string // e.g. "source[0]", "json-schema", "binding"
	Operation string // e.g. "load", "merge", "validate", "bind"
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("config error in %s during %s: %v", e.Source, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(source, operation string, err error) *Error {
	return &Error{Source: source, Operation: operation, Err: err}
}
