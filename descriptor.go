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

// UnitDescriptor describes one unit (service or controller) managed by the
// resolution graph. Descriptors are flat records produced by an external
// discovery mechanism; the graph only consumes them.
//
// Exactly one of New or Instance must be set. Units are singletons:
// the graph constructs each unit at most once and caches it for its
// lifetime.
//
// Example:
//
//	dispatch.UnitDescriptor{
//	    Type: "UserController",
//	    Deps: []string{"UserService", "Logger"},
//	    New: func(deps ...any) (any, error) {
//	        return &UserController{
//	            users:  deps[0].(*UserService),
//	            logger: deps[1].(*slog.Logger),
//	        }, nil
//	    },
//	}
type UnitDescriptor struct {
	// Type is the unit's type identity, unique within a graph.
	Type string

	// Deps lists the type identities of the unit's dependencies, in the
	// order the constructor expects them. Every listed type must itself be
	// resolvable or resolution fails.
	Deps []string

	// New constructs the unit from its resolved dependencies, passed in
	// declared order. A descriptor with dependencies but no constructor is
	// rejected as NoInjectableConstructor.
	New func(deps ...any) (any, error)

	// Instance supplies a pre-built value instead of a constructor.
	// Useful for leaf units like loggers or configuration.
	Instance any
}

// RouteDescriptor describes one route produced by external discovery:
// method, raw path template, the controller unit owning the handler, and the
// middleware units wrapping it.
//
// Template grammar: literal text is static, ":name" is a required parameter,
// ":name?" is an optional parameter (trailing only), and "*" is a wildcard
// consuming the rest of the path (final only).
type RouteDescriptor struct {
	// Method is the HTTP method, e.g. "GET".
	Method string

	// Path is the raw route template, e.g. "/users/:id".
	Path string

	// Unit is the type identity of the controller owning the handler.
	// Empty for routes whose handler needs no resolved state.
	Unit string

	// Handler binds the resolved controller instance (nil when Unit is
	// empty) to the terminal handler for this route.
	Handler func(unit any) HandlerFunc

	// Middleware lists the type identities of middleware units applied to
	// this route, outermost first. Each must resolve to a value
	// implementing Middleware.
	Middleware []string
}

// DescriptorSupplier yields the pre-extracted descriptors the dispatcher is
// built from. Implementations perform whatever discovery they like (code
// generation, manual registration, config files); the dispatcher only ever
// sees flat lists.
type DescriptorSupplier interface {
	// Units returns every unit descriptor, in registration order.
	Units() []UnitDescriptor

	// Routes returns every route descriptor, in registration order.
	Routes() []RouteDescriptor

	// GlobalHandler returns the type identity of the unit acting as the
	// global exception handler, or "" when none is declared. The resolved
	// unit must implement GlobalErrorHandler.
	GlobalHandler() string
}

// Middleware is implemented by units that can be declared in a route's
// middleware list. Handle receives the request context and must call
// c.Next() to continue the chain; not calling it terminates the request.
type Middleware interface {
	Handle(c *Context)
}

// Descriptors is a DescriptorSupplier backed by plain slices, for callers
// that assemble descriptors by hand or from generated code.
type Descriptors struct {
	UnitList          []UnitDescriptor
	RouteList         []RouteDescriptor
	GlobalHandlerUnit string
}

// Units implements DescriptorSupplier.
func (d *Descriptors) Units() []UnitDescriptor { return d.UnitList }

// Routes implements DescriptorSupplier.
func (d *Descriptors) Routes() []RouteDescriptor { return d.RouteList }

// GlobalHandler implements DescriptorSupplier.
func (d *Descriptors) GlobalHandler() string { return d.GlobalHandlerUnit }
