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
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

var errPostNotFound = errors.New("post not found")

// Post is a blog entry.
type Post struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Comments  []Comment `json:"comments"`
}

// Comment belongs to a post.
type Comment struct {
	ID     int    `json:"id"`
	Author string `json:"author"`
	Body   string `json:"body"`
}

// Store keeps posts in memory.
type Store struct {
	mu     sync.RWMutex
	posts  map[int]*Post
	nextID int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{posts: make(map[int]*Post), nextID: 1}
}

// Seed adds a welcome post.
func (s *Store) Seed() {
	p := s.Create("Hello, world", "The first post of this blog.")
	_, _ = s.AddComment(p.ID, "ada", "Welcome!")
}

// Ping implements a readiness check.
func (s *Store) Ping(context.Context) error {
	return nil
}

// All returns the posts, newest first.
func (s *Store) All() []Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b Post) int { return cmp.Compare(b.ID, a.ID) })

	return out
}

// Find returns a copy of the post with id.
func (s *Store) Find(id int) (Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, errPostNotFound
	}
	cp := *p
	cp.Comments = slices.Clone(p.Comments)

	return cp, nil
}

// Create adds a post.
func (s *Store) Create(title, body string) Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Post{ID: s.nextID, Title: title, Body: body, CreatedAt: time.Now().UTC()}
	s.nextID++
	s.posts[p.ID] = p

	return *p
}

// Update changes the title and body of a post.
func (s *Store) Update(id int, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return errPostNotFound
	}
	p.Title, p.Body = title, body

	return nil
}

// Delete removes a post and its comments.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return errPostNotFound
	}
	delete(s.posts, id)

	return nil
}

// AddComment appends a comment to a post.
func (s *Store) AddComment(postID int, author, body string) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return Comment{}, errPostNotFound
	}
	c := Comment{ID: len(p.Comments) + 1, Author: author, Body: body}
	if n := len(p.Comments); n > 0 {
		c.ID = p.Comments[n-1].ID + 1
	}
	p.Comments = append(p.Comments, c)

	return c, nil
}

// DeleteComment removes a comment. Deleting a missing comment is not an
// error.
func (s *Store) DeleteComment(postID, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return errPostNotFound
	}
	p.Comments = slices.DeleteFunc(p.Comments, func(c Comment) bool { return c.ID == id })

	return nil
}
