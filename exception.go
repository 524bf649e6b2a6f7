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
	"reflect"
)

// ErrorHandlerFunc renders an uncaught failure into a response. A failure
// inside the handler propagates to the dispatcher and is fatal for that
// request only.
type ErrorHandlerFunc func(c *Context, err error)

// ErrorHandlerEntry declares one handler method of the global error
// handler: the error type it claims and the callable that renders it.
type ErrorHandlerEntry struct {
	// Match is a prototype value whose dynamic type this entry handles.
	// A nil Match makes the entry the catch-all fallback for any error.
	Match error

	// Handler renders the failure.
	Handler ErrorHandlerFunc
}

// GlobalErrorHandler tags a unit as the owner of exception-handling
// methods. The ExceptionRegistry is constructed from exactly one such unit;
// anything else is rejected.
//
// Example:
//
//	type APIErrorHandler struct{}
//
//	func (h *APIErrorHandler) ErrorHandlers() []dispatch.ErrorHandlerEntry {
//	    return []dispatch.ErrorHandlerEntry{
//	        {Match: &ValidationError{}, Handler: h.validation},
//	        {Match: nil, Handler: h.fallback},
//	    }
//	}
type GlobalErrorHandler interface {
	ErrorHandlers() []ErrorHandlerEntry
}

// ExceptionRegistry indexes the global handler's methods by declared error
// type and finds the most specific applicable handler for a thrown failure.
//
// FindHandler walks the failure's wrap chain from the concrete value
// outward via errors.Unwrap, returning the first entry registered for the
// exact dynamic type at each level. Handlers for wrapped (more general)
// types therefore act as fallbacks behind handlers for the concrete type.
// The registry is immutable after construction.
type ExceptionRegistry struct {
	owner    any
	byType   map[reflect.Type]ErrorHandlerEntry
	fallback *ErrorHandlerEntry
}

// NewExceptionRegistry builds a registry from the single global handler
// unit. It returns ErrNotGlobalHandler when the unit does not implement
// GlobalErrorHandler. When multiple entries declare the same error type,
// the first registered wins.
func NewExceptionRegistry(unit any) (*ExceptionRegistry, error) {
	tagged, ok := unit.(GlobalErrorHandler)
	if !ok {
		return nil, ErrNotGlobalHandler
	}

	reg := &ExceptionRegistry{
		owner:  unit,
		byType: make(map[reflect.Type]ErrorHandlerEntry),
	}
	for _, entry := range tagged.ErrorHandlers() {
		if entry.Handler == nil {
			continue
		}
		if entry.Match == nil {
			if reg.fallback == nil {
				e := entry
				reg.fallback = &e
			}
			continue
		}
		t := reflect.TypeOf(entry.Match)
		if _, exists := reg.byType[t]; !exists {
			reg.byType[t] = entry
		}
	}
	return reg, nil
}

// Owner returns the global handler unit the registry was built from.
func (r *ExceptionRegistry) Owner() any { return r.owner }

// FindHandler returns the most specific handler for the failure, or false
// when no registered entry (including the catch-all) applies.
func (r *ExceptionRegistry) FindHandler(err error) (ErrorHandlerEntry, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if entry, ok := r.byType[reflect.TypeOf(e)]; ok {
			return entry, true
		}
	}
	if r.fallback != nil {
		return *r.fallback, true
	}
	return ErrorHandlerEntry{}, false
}

// Invoke calls the entry's handler. Panics inside the handler are not
// recovered here; they propagate to the dispatcher, which treats them as
// fatal for the current request only.
func (r *ExceptionRegistry) Invoke(entry ErrorHandlerEntry, c *Context, err error) {
	entry.Handler(c, err)
}
