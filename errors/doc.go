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

// Package errors formats errors for HTTP responses.
//
// The package defines a Formatter interface with two implementations:
//   - RFC9457: RFC 9457 Problem Details (application/problem+json)
//   - Simple: flat JSON error objects (application/json)
//
// The router uses a Formatter at its error boundary: an error returned by a
// controller filter or action is formatted once and written with [Write].
// Domain errors can implement optional interfaces (ErrorType, ErrorDetails,
// ErrorCode) to control status codes and provide structured details, or be
// wrapped with [WithStatus]:
//
//	if post == nil {
//		return errors.WithStatus(fmt.Errorf("post %s not found", id), http.StatusNotFound)
//	}
//
// # Error Interfaces
//
//   - ErrorType: declare the HTTP status code
//   - ErrorDetails: provide structured details (e.g. field-level validation errors)
//   - ErrorCode: provide a machine-readable error code, used as problem type
package errors
