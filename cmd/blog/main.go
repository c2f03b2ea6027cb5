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

// Command blog is a small blog with posts and comments:
//
//	blog server 3000
//	blog routes posts
//	BLOG_HOT_RELOAD=true BLOG_ROUTES_FILE=cmd/blog/routes.yaml blog server
package main

import (
	"embed"
	"fmt"
	"io/fs"

	"rivaas.dev/mvc/app"
	"rivaas.dev/mvc/cli"
	"rivaas.dev/mvc/config"
	"rivaas.dev/mvc/controller"
	"rivaas.dev/mvc/routing"
)

var (
	//go:embed routes.yaml
	routesYAML []byte

	//go:embed views
	viewsFS embed.FS
)

func main() {
	cli.Execute(cli.New("blog", build,
		cli.WithShort("A small blog with posts and comments"),
		cli.WithEnvPrefix("BLOG"),
	))
}

// build wires the blog. The embedded routes and views are used unless the
// settings point at files on disk. The admin area is declared in Go and
// comes first either way.
func build(s *config.Settings, opts ...app.Option) (*app.App, error) {
	store := NewStore()
	store.Seed()

	reg := controller.NewRegistry()
	reg.MustRegister("pages", newPages(store))
	reg.MustRegister("posts", newPosts(store))
	reg.MustRegister("comments", newComments(store))
	reg.MustRegister("admin/dashboard", newDashboard(store))

	base := []app.Option{
		app.WithSettings(s),
		app.WithControllers(reg),
		app.WithReadinessCheck("store", store.Ping),
	}
	admin := adminRoutes(s)
	var embedded func(*routing.Map)
	if s.RoutesFile == "" {
		var err error
		if embedded, err = routing.Decode(routesYAML); err != nil {
			return nil, fmt.Errorf("embedded routes: %w", err)
		}
	}
	if admin != nil || embedded != nil {
		base = append(base, app.WithRoutes(func(m *routing.Map) {
			if admin != nil {
				admin(m)
			}
			if embedded != nil {
				embedded(m)
			}
		}))
	}
	if s.ViewsDir == "" {
		views, err := fs.Sub(viewsFS, "views")
		if err != nil {
			return nil, err
		}
		base = append(base, app.WithViews(views))
	}

	return app.New(append(base, opts...)...)
}
