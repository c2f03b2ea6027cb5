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

package routing

import (
	"context"
	"net/http"
)

type contextKey int

const (
	paramsKey contextKey = iota
	entryKey
	nextKey
)

// Params returns the path variables bound by the matched route.
func Params(r *http.Request) map[string]string {
	if p, ok := r.Context().Value(paramsKey).(map[string]string); ok {
		return p
	}

	return nil
}

// Param returns one path variable, or "" when it is not bound.
func Param(r *http.Request, name string) string {
	return Params(r)[name]
}

// EntryFrom returns the route entry that matched r.
func EntryFrom(r *http.Request) *Entry {
	e, _ := r.Context().Value(entryKey).(*Entry)

	return e
}

func withMatch(r *http.Request, e *Entry, params map[string]string, next NextFunc) *http.Request {
	ctx := context.WithValue(r.Context(), paramsKey, params)
	ctx = context.WithValue(ctx, entryKey, e)
	ctx = context.WithValue(ctx, nextKey, next)

	return r.WithContext(ctx)
}

func nextFrom(r *http.Request) NextFunc {
	if next, ok := r.Context().Value(nextKey).(NextFunc); ok {
		return next
	}

	return func(error) {}
}
