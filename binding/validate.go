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
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failed rule.
type FieldError struct {
	// Field is the parameter path, e.g. "title" or "post.author".
	Field string `json:"field"`
	// Rule is the validate tag that failed, e.g. "required".
	Rule string `json:"rule"`
	// Param is the argument of the rule, e.g. "120" for max=120.
	Param string `json:"param,omitempty"`
	// Message is the full sentence shown to users.
	Message string `json:"message"`
}

// Error lists the failed rules of a validated value.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// HTTPStatus implements rivaas.dev/mvc/errors.ErrorType.
func (e *Error) HTTPStatus() int { return http.StatusUnprocessableEntity }

// Details implements rivaas.dev/mvc/errors.ErrorDetails.
func (e *Error) Details() any { return e.Fields }

// Code implements rivaas.dev/mvc/errors.ErrorCode.
func (e *Error) Code() string { return "validation_failed" }

// Messages returns the full messages in field order.
func (e *Error) Messages() []string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}

	return msgs
}

// On returns the messages of one field.
func (e *Error) On(field string) []string {
	var msgs []string
	for _, f := range e.Fields {
		if f.Field == field {
			msgs = append(msgs, f.Message)
		}
	}

	return msgs
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			switch name {
			case "-":
				return ""
			case "":
				continue
			default:
				return name
			}
		}
		return f.Name
	})

	return v
}

// Validate checks the `validate` tags of v. Only struct values are
// validated; anything else passes.
func Validate(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		out.Fields = append(out.Fields, FieldError{
			Field:   field,
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: humanize(fe.Field()) + " " + clause(fe),
		})
	}

	return out
}

func clause(fe validator.FieldError) string {
	stringy := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_if", "required_with", "required_unless":
		return "can't be blank"
	case "max", "lte":
		if stringy {
			return fmt.Sprintf("is too long (maximum is %s characters)", fe.Param())
		}
		return "must be less than or equal to " + fe.Param()
	case "min", "gte":
		if stringy {
			return fmt.Sprintf("is too short (minimum is %s characters)", fe.Param())
		}
		return "must be greater than or equal to " + fe.Param()
	case "len":
		return fmt.Sprintf("is the wrong length (should be %s characters)", fe.Param())
	case "gt":
		return "must be greater than " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "oneof":
		return "is not included in the list"
	case "email":
		return "is not a valid email address"
	case "url", "http_url":
		return "is not a valid URL"
	case "eqfield":
		return "doesn't match " + humanize(fe.Param())
	default:
		return "is invalid"
	}
}

// humanize turns "author_name" into "Author name".
func humanize(s string) string {
	s = strings.ReplaceAll(strings.TrimSuffix(s, "_id"), "_", " ")
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
