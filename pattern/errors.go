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

package pattern

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedVariable is returned when a variable token has no name or a
	// name that is not an identifier.
	ErrMalformedVariable = errors.New("malformed variable token")

	// ErrDuplicateVariable is returned when the same variable name appears
	// twice in one template.
	ErrDuplicateVariable = errors.New("duplicate variable name")

	// ErrDanglingOptional is returned when '?' follows literal text.
	ErrDanglingOptional = errors.New("optional marker without variable")

	// ErrMissingValue is returned by [Pattern.Build] when a required
	// variable has no value.
	ErrMissingValue = errors.New("missing required variable")
)

// CompileError describes why a template could not be compiled.
type CompileError struct {
	Template string
	Offset   int
	Err      error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("pattern %q at offset %d: %v", e.Template, e.Offset, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *CompileError) Unwrap() error {
	return e.Err
}
