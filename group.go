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

package dispatch

import "strings"

// Group registers routes under a shared path prefix and middleware set.
// Nested groups accumulate both: the outer group's middleware wraps the
// inner group's, and a route's own middleware runs innermost, immediately
// before the handler.
//
// Example:
//
//	api := r.Group("/api", authMiddleware)
//	v1 := api.Group("/v1", versionMiddleware)
//	v1.Handle("GET", "/users/:id", getUser) // matches /api/v1/users/:id
type Group struct {
	router     *Router
	prefix     string
	middleware []HandlerFunc
}

// Handle registers a route under the group's prefix with the group's
// middleware prepended to the route's own.
func (g *Group) Handle(method, path string, handler HandlerFunc, mw ...HandlerFunc) (*Route, error) {
	combined := make([]HandlerFunc, 0, len(g.middleware)+len(mw))
	combined = append(combined, g.middleware...)
	combined = append(combined, mw...)
	return g.router.Handle(method, g.join(path), handler, combined...)
}

// Group creates a nested group. The child inherits this group's prefix and
// middleware; its own middleware runs inside the parent's.
func (g *Group) Group(prefix string, mw ...HandlerFunc) *Group {
	combined := make([]HandlerFunc, 0, len(g.middleware)+len(mw))
	combined = append(combined, g.middleware...)
	combined = append(combined, mw...)
	return &Group{
		router:     g.router,
		prefix:     g.join(prefix),
		middleware: combined,
	}
}

// Use appends middleware to the group, affecting routes registered
// afterwards.
func (g *Group) Use(mw ...HandlerFunc) {
	g.middleware = append(g.middleware, mw...)
}

// join concatenates the group prefix with a route path, normalizing
// slashes.
func (g *Group) join(path string) string {
	if path == "" || path == "/" {
		if g.prefix == "" {
			return "/"
		}
		return g.prefix
	}
	return g.prefix + "/" + strings.TrimPrefix(path, "/")
}
