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

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Router owns the registered route table and selects the best match per
// request.
//
// Registration happens during startup; Freeze seals the table, composes
// every route's handler chain, and makes the table read-only so concurrent
// requests match without locking. Registration after Freeze fails with
// ErrRoutesFrozen.
//
// Matching walks each candidate template for the request method and picks
// the most specific successful match: an exact static segment beats a
// parameter at the same position, required beats optional, anything beats a
// wildcard, fewer optional/wildcard segments win among ties, and remaining
// ties resolve by registration order. Registration order as the final
// tie-break is an implementation detail, not a guarantee.
//
// Example:
//
//	r := dispatch.NewRouter()
//	_, _ = r.Handle("GET", "/users/:id", getUser)
//	_ = r.Freeze()
//	m, err := r.Match("GET", "/users/7") // m.Param("id") == "7"
type Router struct {
	mu         sync.Mutex
	routes     map[string][]*Route // method → candidates in registration order
	registered map[string]struct{} // method+canonical template, duplicate detection
	middleware []HandlerFunc       // global middleware applied to every route
	frozen     atomic.Bool
	nextIndex  int
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		routes:     make(map[string][]*Route),
		registered: make(map[string]struct{}),
	}
}

// Use appends global middleware, applied to every route ahead of group and
// route middleware. Must be called before Freeze.
func (r *Router) Use(mw ...HandlerFunc) error {
	if r.frozen.Load() {
		return ErrRoutesFrozen
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw...)
	return nil
}

// Handle compiles the template and registers a route for the given method.
// It returns the registered route, or an error when the template is
// malformed, the (method, template) pair is already registered, or the
// router is frozen.
func (r *Router) Handle(method, path string, handler HandlerFunc, mw ...HandlerFunc) (*Route, error) {
	if r.frozen.Load() {
		return nil, ErrRoutesFrozen
	}
	if handler == nil {
		return nil, fmt.Errorf("route %s %s: handler is nil", method, path)
	}

	segs, err := compileTemplate(path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := method + " " + canonicalTemplate(segs)
	if _, dup := r.registered[key]; dup {
		return nil, fmt.Errorf("%w: %s %s", ErrDuplicateRoute, method, path)
	}
	r.registered[key] = struct{}{}

	rt := &Route{
		Method:     method,
		Pattern:    path,
		segments:   segs,
		handler:    handler,
		middleware: mw,
		index:      r.nextIndex,
	}
	r.nextIndex++
	r.routes[method] = append(r.routes[method], rt)
	return rt, nil
}

// Group creates a route group under the given prefix. Routes registered
// through the group inherit the prefix and the group's middleware; nested
// groups wrap inner ones.
func (r *Router) Group(prefix string, mw ...HandlerFunc) *Group {
	return &Group{router: r, prefix: strings.TrimSuffix(prefix, "/"), middleware: mw}
}

// Freeze seals the route table and composes every route's handler chain:
// global middleware first, then group and route middleware outermost to
// innermost, then the terminal handler. Matching is lock-free afterwards.
// Freeze is idempotent.
func (r *Router) Freeze() error {
	if r.frozen.Swap(true) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, candidates := range r.routes {
		for _, rt := range candidates {
			chain := make([]HandlerFunc, 0, len(r.middleware)+len(rt.middleware)+1)
			chain = append(chain, r.middleware...)
			chain = append(chain, rt.middleware...)
			chain = append(chain, rt.handler)
			rt.chain = chain
		}
	}
	return nil
}

// Frozen reports whether the route table has been sealed.
func (r *Router) Frozen() bool { return r.frozen.Load() }

// Match selects the most specific route for the given method and path.
// It returns ErrNoRouteMatched when nothing matches, or ErrMethodNotAllowed
// when the path matches a template registered under a different method.
func (r *Router) Match(method, path string) (*RouteMatch, error) {
	rt, params, err := r.lookup(method, path)
	if err != nil {
		return nil, err
	}
	m := &RouteMatch{Route: rt, Params: make(map[string]string, len(params))}
	for _, p := range params {
		m.Params[p.key] = p.value
	}
	return m, nil
}

// lookup is the allocation-light core of Match, shared with the dispatcher
// hot path.
func (r *Router) lookup(method, path string) (*Route, []paramBinding, error) {
	parts := splitPath(path)

	var (
		best    *Route
		bestRes matchResult
	)
	for _, rt := range r.candidates(method) {
		res, ok := matchSegments(rt.segments, parts)
		if !ok {
			continue
		}
		if best == nil || moreSpecific(res, bestRes) {
			best, bestRes = rt, res
		}
	}
	if best != nil {
		return best, bestRes.params, nil
	}

	// Distinguish "not found" from "method not allowed": does any other
	// method's template match this path?
	for _, m := range r.methods() {
		if m == method {
			continue
		}
		for _, rt := range r.candidates(m) {
			if _, ok := matchSegments(rt.segments, parts); ok {
				return nil, nil, ErrMethodNotAllowed
			}
		}
	}
	return nil, nil, ErrNoRouteMatched
}

// methods returns the method keys of the route table. After Freeze the
// table is read-only and no locking is needed.
func (r *Router) methods() []string {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	methods := make([]string, 0, len(r.routes))
	for m := range r.routes {
		methods = append(methods, m)
	}
	return methods
}

// candidates returns the routes registered for a method. After Freeze the
// table is read-only and no locking is needed.
func (r *Router) candidates(method string) []*Route {
	if r.frozen.Load() {
		return r.routes[method]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.routes[method]
}

// Routes returns every registered route in registration order, mainly for
// introspection and tests.
func (r *Router) Routes() []*Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*Route, 0, r.nextIndex)
	for _, candidates := range r.routes {
		all = append(all, candidates...)
	}
	// Restore registration order across methods.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].index < all[j-1].index; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	return all
}

// canonicalTemplate renders compiled segments into a canonical form so
// templates that differ only in parameter names register as duplicates.
func canonicalTemplate(segs []segment) string {
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		switch s.kind {
		case segStatic:
			b.WriteString(s.literal)
		case segRequired:
			b.WriteString(":p")
		case segOptional:
			b.WriteString(":p?")
		case segWildcard:
			b.WriteByte('*')
		}
	}
	return b.String()
}
