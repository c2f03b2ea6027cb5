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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"rivaas.dev/mvc/binding"
	"rivaas.dev/mvc/controller"
	rerrors "rivaas.dev/mvc/errors"
)

type pagesController struct {
	controller.Base
	store *Store
}

func newPages(store *Store) controller.Factory {
	return func() controller.Controller {
		c := &pagesController{store: store}
		c.Action("home", func(context.Context) error {
			posts := c.store.All()
			return c.View(http.StatusOK, "", map[string]any{"Posts": posts[:min(3, len(posts))]})
		})
		c.Action("about", func(context.Context) error {
			return c.View(http.StatusOK, "", nil)
		})
		return c
	}
}

type postsController struct {
	controller.Base
	store *Store
	post  Post
}

// postParams are the fields accepted by create and update.
type postParams struct {
	Title string `form:"title" json:"title" validate:"required,max=120"`
	Body  string `form:"body" json:"body" validate:"required"`
}

type commentParams struct {
	Author string `form:"author" validate:"max=40"`
	Body   string `form:"body" validate:"max=2000"`
}

// postForm is what the new and edit views render.
type postForm struct {
	Post   Post
	Errors []string
}

func newPosts(store *Store) controller.Factory {
	return func() controller.Controller {
		c := &postsController{store: store}
		c.Before(c.load, controller.Only("show", "edit", "update", "destroy"), controller.Named("load_post"))
		c.Action("index", c.index)
		c.Action("show", c.show)
		c.Action("new", func(context.Context) error {
			return c.View(http.StatusOK, "", postForm{})
		})
		c.Action("create", c.create)
		c.Action("edit", func(context.Context) error {
			return c.View(http.StatusOK, "", postForm{Post: c.post})
		})
		c.Action("update", c.update)
		c.Action("destroy", c.destroy)
		return c
	}
}

// Reset implements controller.Controller.
func (c *postsController) Reset() {
	c.Base.Reset()
	c.post = Post{}
}

func (c *postsController) load(context.Context) error {
	p, err := findPost(c.store, c.Param("id"))
	if err != nil {
		return err
	}
	c.post = p

	return nil
}

func (c *postsController) index(context.Context) error {
	posts := c.store.All()
	if c.Param("format") == "json" {
		return c.JSON(http.StatusOK, posts)
	}

	return c.View(http.StatusOK, "", map[string]any{"Posts": posts})
}

func (c *postsController) show(context.Context) error {
	if c.Param("format") == "json" {
		return c.JSON(http.StatusOK, c.post)
	}

	return c.View(http.StatusOK, "", c.post)
}

func (c *postsController) create(context.Context) error {
	var params postParams
	if err := c.Bind(&params); err != nil {
		return c.invalid(err, "new", Post{Title: params.Title, Body: params.Body})
	}
	p := c.store.Create(params.Title, params.Body)
	if c.Param("format") == "json" {
		return c.JSON(http.StatusCreated, p)
	}

	return c.RedirectTo("post", p.ID)
}

func (c *postsController) update(context.Context) error {
	var params postParams
	if err := c.Bind(&params); err != nil {
		c.post.Title, c.post.Body = params.Title, params.Body
		return c.invalid(err, "edit", c.post)
	}
	if err := c.store.Update(c.post.ID, params.Title, params.Body); err != nil {
		return rerrors.WithStatus(err, http.StatusNotFound)
	}

	return c.RedirectTo("post", c.post.ID)
}

// invalid re-renders view with the validation messages of err. JSON
// requests and other errors get the problem response.
func (c *postsController) invalid(err error, view string, p Post) error {
	var verr *binding.Error
	if !errors.As(err, &verr) || c.Param("format") == "json" {
		return err
	}

	return c.View(http.StatusUnprocessableEntity, view, postForm{Post: p, Errors: verr.Messages()})
}

func (c *postsController) destroy(context.Context) error {
	if err := c.store.Delete(c.post.ID); err != nil {
		return rerrors.WithStatus(err, http.StatusNotFound)
	}

	return c.RedirectTo("posts")
}

type commentsController struct {
	controller.Base
	store *Store
	post  Post
}

func newComments(store *Store) controller.Factory {
	return func() controller.Controller {
		c := &commentsController{store: store}
		c.Before(func(context.Context) error {
			p, err := findPost(c.store, c.Param("post_id"))
			if err != nil {
				return err
			}
			c.post = p
			return nil
		})
		c.Action("create", func(context.Context) error {
			var params commentParams
			if err := c.Bind(&params); err != nil {
				return err
			}
			if params.Author == "" {
				params.Author = "anonymous"
			}
			if params.Body != "" {
				if _, err := c.store.AddComment(c.post.ID, params.Author, params.Body); err != nil {
					return rerrors.WithStatus(err, http.StatusNotFound)
				}
			}
			return c.RedirectTo("post", c.post.ID)
		})
		c.Action("destroy", func(context.Context) error {
			id, err := strconv.Atoi(c.Param("id"))
			if err != nil {
				return rerrors.WithStatus(fmt.Errorf("invalid comment id %q", c.Param("id")), http.StatusBadRequest)
			}
			if err = c.store.DeleteComment(c.post.ID, id); err != nil {
				return rerrors.WithStatus(err, http.StatusNotFound)
			}
			return c.RedirectTo("post", c.post.ID)
		})
		return c
	}
}

// Reset implements controller.Controller.
func (c *commentsController) Reset() {
	c.Base.Reset()
	c.post = Post{}
}

func findPost(store *Store, rawID string) (Post, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return Post{}, rerrors.WithStatus(fmt.Errorf("%w: %q", errPostNotFound, rawID), http.StatusNotFound)
	}
	p, err := store.Find(id)
	if err != nil {
		return Post{}, rerrors.WithStatus(fmt.Errorf("%w: %d", err, id), http.StatusNotFound)
	}

	return p, nil
}

