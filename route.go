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

// Route is one registered (method, template, handler) entry. Routes are
// immutable after the router is frozen; the composed handler chain is built
// exactly once at freeze time.
type Route struct {
	// Method is the HTTP method the route is registered under.
	Method string

	// Pattern is the raw route template as registered, e.g. "/users/:id".
	Pattern string

	segments   []segment
	handler    HandlerFunc
	middleware []HandlerFunc // group then route middleware, outermost first
	chain      []HandlerFunc // global + middleware + handler, composed at freeze
	index      int           // registration order, final tie-break
}

// RouteMatch is the outcome of a successful lookup: the winning route and
// the parameter values captured from the path. It is created per request
// and must not be retained beyond it.
type RouteMatch struct {
	// Route is the registered route that won the match.
	Route *Route

	// Params maps parameter names to captured path values. Optional
	// segments the path did not fill are absent from the map. A wildcard
	// capture is bound under WildcardParam.
	Params map[string]string
}

// Param returns the captured value for name, or "" when absent.
func (m *RouteMatch) Param(name string) string {
	return m.Params[name]
}
