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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRouteMatched indicates that no registered route matches the request path.
	ErrNoRouteMatched = errors.New("no route matched")

	// ErrMethodNotAllowed indicates that the path matches a route registered
	// under a different HTTP method.
	ErrMethodNotAllowed = errors.New("method not allowed for path")

	// ErrDuplicateRoute indicates that a route with the same method and
	// template is already registered.
	ErrDuplicateRoute = errors.New("duplicate route registration")

	// ErrDuplicateUnit indicates that a unit with the same type identity is
	// already registered in the resolution graph.
	ErrDuplicateUnit = errors.New("duplicate unit registration")

	// ErrCircularDependency indicates that unit resolution re-entered a type
	// that is already being constructed on the current resolution path.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrUnresolvedDependency indicates that a declared dependency type was
	// never registered in the resolution graph.
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrNoInjectableConstructor indicates that a unit descriptor declares
	// dependencies but exposes no constructor to receive them.
	ErrNoInjectableConstructor = errors.New("no injectable constructor")

	// ErrMalformedTemplate indicates that a route template violates segment
	// placement rules (non-trailing optional, non-final wildcard).
	ErrMalformedTemplate = errors.New("malformed route template")

	// ErrNotGlobalHandler indicates that the unit supplied as the global
	// exception handler does not implement GlobalErrorHandler.
	ErrNotGlobalHandler = errors.New("unit is not a global error handler")

	// ErrUnitNotMiddleware indicates that a unit declared in a route's
	// middleware list does not implement the Middleware interface.
	ErrUnitNotMiddleware = errors.New("unit does not implement Middleware")

	// ErrRoutesFrozen indicates an attempt to register a route after the
	// dispatcher has been built and the route table sealed.
	ErrRoutesFrozen = errors.New("route table is frozen")

	// ErrServerTimeoutInvalid indicates that a server timeout value must be positive.
	ErrServerTimeoutInvalid = errors.New("server timeout must be positive")

	// ErrResponseWriterNotHijacker indicates that the underlying ResponseWriter
	// does not implement the http.Hijacker interface.
	ErrResponseWriterNotHijacker = errors.New("responseWriter does not implement http.Hijacker")
)

// CircularDependencyError reports a dependency cycle discovered during unit
// resolution. Cycle holds the full path, starting and ending with the type
// that was re-entered.
type CircularDependencyError struct {
	// Cycle is the resolution path forming the cycle, e.g. ["A", "B", "A"].
	Cycle []string
}

// Error returns the cycle as an arrow-joined path.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCircularDependency so callers can match with errors.Is.
func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// UnresolvedDependencyError reports a dependency type that was never
// registered in the graph, naming the type that required it.
type UnresolvedDependencyError struct {
	// Type is the missing dependency type identity.
	Type string

	// RequiredBy is the unit that declared the dependency. Empty when the
	// missing type was requested directly via Resolve.
	RequiredBy string
}

// Error names the missing type and, when known, the requesting unit.
func (e *UnresolvedDependencyError) Error() string {
	if e.RequiredBy == "" {
		return fmt.Sprintf("unresolved dependency: %q is not registered", e.Type)
	}
	return fmt.Sprintf("unresolved dependency: %q required by %q is not registered", e.Type, e.RequiredBy)
}

// Unwrap returns ErrUnresolvedDependency so callers can match with errors.Is.
func (e *UnresolvedDependencyError) Unwrap() error { return ErrUnresolvedDependency }

// NoInjectableConstructorError reports a unit that cannot be constructed
// because its descriptor provides neither a constructor nor an instance.
type NoInjectableConstructorError struct {
	// Type is the unit type identity.
	Type string
}

// Error names the unit lacking a constructor.
func (e *NoInjectableConstructorError) Error() string {
	return fmt.Sprintf("no injectable constructor for unit %q", e.Type)
}

// Unwrap returns ErrNoInjectableConstructor so callers can match with errors.Is.
func (e *NoInjectableConstructorError) Unwrap() error { return ErrNoInjectableConstructor }

// TemplateError reports a route template that violates segment placement
// rules at registration time.
type TemplateError struct {
	// Template is the raw template string as registered.
	Template string

	// Reason describes the violated rule.
	Reason string
}

// Error names the template and the violated rule.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("malformed route template %q: %s", e.Template, e.Reason)
}

// Unwrap returns ErrMalformedTemplate so callers can match with errors.Is.
func (e *TemplateError) Unwrap() error { return ErrMalformedTemplate }

// PanicError wraps a panic recovered during request dispatch so it can flow
// through the exception-handling path as an ordinary error.
type PanicError struct {
	// Value is the recovered panic value.
	Value any

	// Stack is the goroutine stack captured at recovery time.
	Stack []byte
}

// Error formats the recovered panic value.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic during dispatch: %v", e.Value)
}
