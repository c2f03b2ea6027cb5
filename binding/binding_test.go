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
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "rivaas.dev/mvc/errors"
)

type author struct {
	Name  string `form:"name" json:"name" validate:"required"`
	Email string `form:"email" json:"email" validate:"omitempty,email"`
}

type postParams struct {
	Title     string        `form:"title" json:"title" validate:"required,max=12"`
	Body      string        `form:"body" json:"body"`
	Rating    int           `form:"rating" json:"rating" validate:"gte=0,lte=5"`
	Published bool          `form:"published" json:"published"`
	Tags      []string      `form:"tags" json:"tags"`
	TTL       time.Duration `form:"ttl" json:"-"`
	Author    author        `form:"author" json:"author"`
}

func TestForm(t *testing.T) {
	t.Parallel()

	values := url.Values{
		"title":         {"  Hello  "},
		"body":          {"words"},
		"rating":        {"4"},
		"published":     {"on"},
		"tags[]":        {"go", "web"},
		"ttl":           {"90s"},
		"author[name]":  {"ada"},
		"author[email]": {"ada@example.com"},
		"_method":       {"put"},
	}

	p, err := Form[postParams](values)
	require.NoError(t, err)
	assert.Equal(t, postParams{
		Title:     "Hello",
		Body:      "words",
		Rating:    4,
		Published: true,
		Tags:      []string{"go", "web"},
		TTL:       90 * time.Second,
		Author:    author{Name: "ada", Email: "ada@example.com"},
	}, p)
}

func TestForm_SingleValueFillsSlice(t *testing.T) {
	t.Parallel()

	p, err := Form[postParams](url.Values{"title": {"t"}, "tags": {"solo"}, "author[name]": {"x"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, p.Tags)
}

func TestForm_Validation(t *testing.T) {
	t.Parallel()

	_, err := Form[postParams](url.Values{
		"title":         {"   "},
		"rating":        {"9"},
		"author[email]": {"nope"},
	})

	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, http.StatusUnprocessableEntity, rerrors.StatusOf(err))
	assert.Equal(t, []string{
		"Title can't be blank",
		"Rating must be less than or equal to 5",
		"Name can't be blank",
		"Email is not a valid email address",
	}, verr.Messages())
	assert.Equal(t, []string{"Name can't be blank"}, verr.On("author.name"))
	assert.Equal(t, "required", verr.Fields[0].Rule)

	_, err = Form[postParams](url.Values{"title": {"far too long a title"}, "author[name]": {"x"}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Title is too long (maximum is 12 characters)"}, verr.Messages())
	assert.Equal(t, "12", verr.Fields[0].Param)
}

func TestForm_Malformed(t *testing.T) {
	t.Parallel()

	_, err := Form[postParams](url.Values{"rating": {"five"}})
	require.ErrorIs(t, err, ErrBind)
	assert.Equal(t, http.StatusBadRequest, rerrors.StatusOf(err))

	var verr *Error
	assert.False(t, errors.As(err, &verr))
}

func TestFormTo_RejectsNonPointer(t *testing.T) {
	t.Parallel()

	err := FormTo(url.Values{}, postParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-nil pointer")
}

func TestSplitKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key      string
		wantPath []string
		wantList bool
	}{
		{key: "title", wantPath: []string{"title"}},
		{key: "post[title]", wantPath: []string{"post", "title"}},
		{key: "post[author][name]", wantPath: []string{"post", "author", "name"}},
		{key: "tags[]", wantPath: []string{"tags"}, wantList: true},
		{key: "post[tags][]", wantPath: []string{"post", "tags"}, wantList: true},
		{key: "post[title", wantPath: []string{"post[title"}},
	}
	for _, tt := range tests {
		path, list := splitKey(tt.key)
		assert.Equal(t, tt.wantPath, path, tt.key)
		assert.Equal(t, tt.wantList, list, tt.key)
	}
}

func TestRequest_Form(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/posts/7?title=query&body=query", strings.NewReader("title=Form+title&author[name]=ada"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var p struct {
		ID     int    `form:"id"`
		Title  string `form:"title"`
		Body   string `form:"body"`
		Author author `form:"author"`
	}
	require.NoError(t, Request(req, map[string]string{"id": "7", "title": "ignored"}, &p))
	assert.Equal(t, 7, p.ID)
	assert.Equal(t, "ignored", p.Title)
	assert.Equal(t, "query", p.Body)
	assert.Equal(t, "ada", p.Author.Name)

	req = httptest.NewRequest(http.MethodPost, "/posts?title=query", strings.NewReader("title=Form+title"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, Request(req, nil, &p))
	assert.Equal(t, "Form title", p.Title)
}

func TestRequest_JSON(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"title":"Hi","author":{"name":"ada"},"tags":["a"]}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	var p postParams
	require.NoError(t, Request(req, nil, &p))
	assert.Equal(t, "Hi", p.Title)
	assert.Equal(t, []string{"a"}, p.Tags)

	req = httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"title":""}`))
	req.Header.Set("Content-Type", "application/vnd.api+json")
	var verr *Error
	require.ErrorAs(t, Request(req, nil, &postParams{}), &verr)
	assert.Contains(t, verr.Messages(), "Title can't be blank")

	req = httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{"title":`))
	req.Header.Set("Content-Type", "application/json")
	err := Request(req, nil, &postParams{})
	require.ErrorIs(t, err, ErrBind)
	assert.Equal(t, http.StatusBadRequest, rerrors.StatusOf(err))

	req = httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(`{} {}`))
	req.Header.Set("Content-Type", "application/json")
	assert.ErrorContains(t, Request(req, nil, &postParams{}), "single JSON value")
}

func TestValidate_NonStruct(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate(3))
	assert.NoError(t, Validate((*postParams)(nil)))
}

func TestError_Problem(t *testing.T) {
	t.Parallel()

	_, err := Form[postParams](url.Values{"author[name]": {"x"}})
	require.Error(t, err)

	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	resp := rerrors.NewRFC9457("").Format(req, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)

	p, ok := resp.Body.(rerrors.ProblemDetail)
	require.True(t, ok)
	assert.Equal(t, "validation_failed", p.Extensions["code"])
	fields, ok := p.Extensions["errors"].([]FieldError)
	require.True(t, ok)
	assert.Equal(t, "title", fields[0].Field)
}
