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

package binding

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	rerrors "rivaas.dev/mvc/errors"
)

// Request binds the parameters of r into out and validates them.
//
// A JSON body is decoded with the `json` tags. Otherwise the query string,
// the form body and the path parameters are merged, in increasing order of
// precedence, and decoded with the `form` tags.
func Request(r *http.Request, params map[string]string, out any) error {
	if isJSON(r) {
		if err := decodeJSON(r.Body, out); err != nil {
			return err
		}
		return Validate(out)
	}

	if err := r.ParseForm(); err != nil {
		return badRequest(err)
	}
	values := r.URL.Query()
	for k, v := range r.PostForm {
		values[k] = v
	}
	for k, v := range params {
		values[k] = []string{v}
	}

	return FormTo(values, out)
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || r.Body == nil || r.Body == http.NoBody {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}

	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func decodeJSON(body io.Reader, out any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest(errors.New("empty body"))
		}
		return badRequest(err)
	}
	if dec.More() {
		return badRequest(errors.New("body must hold a single JSON value"))
	}

	return nil
}

func badRequest(err error) error {
	return rerrors.WithStatus(fmt.Errorf("%w: %w", ErrBind, err), http.StatusBadRequest)
}
