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
	"net/http"
	"os"

	"rivaas.dev/mvc/config"
	"rivaas.dev/mvc/controller"
	"rivaas.dev/mvc/middleware/basicauth"
	"rivaas.dev/mvc/routing"
)

type dashboardController struct {
	controller.Base
	store *Store
}

func newDashboard(store *Store) controller.Factory {
	return func() controller.Controller {
		c := &dashboardController{store: store}
		c.Action("show", func(ctx context.Context) error {
			posts := c.store.All()
			comments := 0
			for _, p := range posts {
				comments += len(p.Comments)
			}
			return c.View(http.StatusOK, "", map[string]any{
				"User":     basicauth.Username(ctx),
				"Posts":    len(posts),
				"Comments": comments,
				"Recent":   posts[:min(5, len(posts))],
			})
		})
		return c
	}
}

// adminRoutes mounts the dashboard behind basic auth. The password comes
// from BLOG_ADMIN_PASSWORD; outside production it defaults to "admin".
// Without a password the admin area is not mounted.
func adminRoutes(s *config.Settings) func(*routing.Map) {
	password, ok := os.LookupEnv("BLOG_ADMIN_PASSWORD")
	if !ok && !s.IsProduction() {
		password = "admin"
	}
	if password == "" {
		return nil
	}

	auth := basicauth.New(
		basicauth.WithUsers(map[string]string{"admin": password}),
		basicauth.WithRealm(s.Service.Name+" admin"),
	)

	return func(m *routing.Map) {
		m.Namespace("admin", func(m *routing.Map) {
			m.Root("dashboard#show")
		}, routing.Use(auth))
	}
}
