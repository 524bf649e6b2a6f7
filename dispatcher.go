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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"
)

// Dispatcher is the composition root: it builds the unit graph from
// descriptors, registers resolved controllers into the router, and per
// request runs the middleware chain and exception dispatch.
//
// Configuration-time failures (cycles, unresolved or unconstructible
// units, malformed templates, duplicate routes) surface from Build and
// must stop startup. Per-request failures are always recovered into a
// response; no request ever takes down another.
//
// Dispatcher implements http.Handler and is safe for concurrent use after
// Build.
//
// Example:
//
//	d := dispatch.MustNew(dispatch.WithLogger(slog.Default()))
//	if err := d.Load(descriptors); err != nil {
//	    log.Fatal(err)
//	}
//	if err := d.Build(); err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(d.Serve(":8080"))
type Dispatcher struct {
	graph  *Graph
	router *Router

	exceptions    *ExceptionRegistry
	observability ObservabilityRecorder
	diagnostics   DiagnosticHandler
	logger        *slog.Logger
	formatter     Formatter

	timeout           time.Duration
	checkCancellation bool
	serverTimeouts    *serverTimeouts
	enableH2C         bool

	pool *contextPool

	// Deferred route registration: route descriptors bind to resolved
	// unit instances, so registration happens during Build.
	pendingRoutes     []RouteDescriptor
	globalHandlerUnit string
	pendingMu         sync.Mutex

	buildOnce sync.Once
	buildErr  error

	serverState serverState
}

// New creates a dispatcher with optional configuration. Configuration is
// validated immediately rather than at request time.
func New(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		graph:             NewGraph(),
		router:            NewRouter(),
		logger:            noopLogger,
		formatter:         &SimpleFormatter{},
		checkCancellation: true,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.serverTimeouts == nil {
		d.serverTimeouts = defaultServerTimeouts()
	}
	if err := d.serverTimeouts.validate(); err != nil {
		return nil, fmt.Errorf("dispatcher configuration validation failed: %w", err)
	}
	if d.timeout < 0 {
		return nil, fmt.Errorf("dispatcher configuration validation failed: negative timeout")
	}

	d.pool = newContextPool(d.checkCancellation)
	return d, nil
}

// MustNew creates a dispatcher and panics if configuration is invalid.
func MustNew(opts ...Option) *Dispatcher {
	d, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("dispatch.MustNew: %v", err))
	}
	return d
}

// Graph returns the dispatcher's unit resolution graph.
func (d *Dispatcher) Graph() *Graph { return d.graph }

// Router returns the dispatcher's router.
func (d *Dispatcher) Router() *Router { return d.router }

// Use appends global middleware ahead of every route's chain. Must be
// called before Build.
func (d *Dispatcher) Use(mw ...HandlerFunc) error { return d.router.Use(mw...) }

// Handle registers a plain-function route, bypassing unit resolution.
// Must be called before Build.
func (d *Dispatcher) Handle(method, path string, handler HandlerFunc, mw ...HandlerFunc) (*Route, error) {
	return d.router.Handle(method, path, handler, mw...)
}

// Group creates a route group on the underlying router.
func (d *Dispatcher) Group(prefix string, mw ...HandlerFunc) *Group {
	return d.router.Group(prefix, mw...)
}

// Load consumes a descriptor supplier: unit descriptors are registered
// into the graph immediately, route and global-handler descriptors are
// deferred to Build where they bind to resolved instances.
func (d *Dispatcher) Load(s DescriptorSupplier) error {
	for _, desc := range s.Units() {
		if err := d.graph.Register(desc); err != nil {
			return err
		}
	}

	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	d.pendingRoutes = append(d.pendingRoutes, s.Routes()...)
	if gh := s.GlobalHandler(); gh != "" {
		if d.globalHandlerUnit != "" && d.globalHandlerUnit != gh {
			return fmt.Errorf("conflicting global handler units %q and %q", d.globalHandlerUnit, gh)
		}
		d.globalHandlerUnit = gh
	}
	return nil
}

// Build resolves every unit eagerly, registers descriptor routes bound to
// their resolved controllers, constructs the exception registry, and
// freezes the route table. Build is idempotent; the first error is
// remembered and returned on every call. Any error is a configuration
// error and must stop startup.
func (d *Dispatcher) Build() error {
	d.buildOnce.Do(func() { d.buildErr = d.build() })
	return d.buildErr
}

func (d *Dispatcher) build() error {
	if err := d.graph.ResolveAll(); err != nil {
		return err
	}

	d.pendingMu.Lock()
	pending := d.pendingRoutes
	d.pendingRoutes = nil
	ghUnit := d.globalHandlerUnit
	d.pendingMu.Unlock()

	for _, rd := range pending {
		handler, mw, err := d.bindRoute(rd)
		if err != nil {
			return err
		}
		if _, err := d.router.Handle(rd.Method, rd.Path, handler, mw...); err != nil {
			return err
		}
		d.emit(DiagRouteRegistered, "route registered", map[string]any{
			"method": rd.Method, "path": rd.Path, "unit": rd.Unit,
		})
	}

	if ghUnit != "" {
		instance, err := d.graph.Resolve(ghUnit)
		if err != nil {
			return err
		}
		reg, err := NewExceptionRegistry(instance)
		if err != nil {
			return fmt.Errorf("%w: unit %q", err, ghUnit)
		}
		d.exceptions = reg
	}

	return d.router.Freeze()
}

// bindRoute resolves a route descriptor's unit and middleware units into a
// terminal handler and middleware chain.
func (d *Dispatcher) bindRoute(rd RouteDescriptor) (HandlerFunc, []HandlerFunc, error) {
	if rd.Handler == nil {
		return nil, nil, fmt.Errorf("route %s %s: handler factory is nil", rd.Method, rd.Path)
	}

	var instance any
	if rd.Unit != "" {
		var err error
		instance, err = d.graph.Resolve(rd.Unit)
		if err != nil {
			return nil, nil, err
		}
	}
	handler := rd.Handler(instance)
	if handler == nil {
		return nil, nil, fmt.Errorf("route %s %s: handler factory returned nil", rd.Method, rd.Path)
	}

	mw := make([]HandlerFunc, 0, len(rd.Middleware))
	for _, typ := range rd.Middleware {
		unit, err := d.graph.Resolve(typ)
		if err != nil {
			return nil, nil, err
		}
		m, ok := unit.(Middleware)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q on route %s %s", ErrUnitNotMiddleware, typ, rd.Method, rd.Path)
		}
		mw = append(mw, m.Handle)
	}
	return handler, mw, nil
}

// ServeHTTP dispatches one request: route lookup, chain execution, and on
// uncaught failure, exception dispatch. It builds the dispatcher lazily on
// first use so a dispatcher handed straight to http.ListenAndServe still
// works; prefer calling Build explicitly so configuration errors stop
// startup.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if err := d.Build(); err != nil {
		d.logger.Error("dispatcher build failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var obsState any
	if d.observability != nil {
		enriched, state := d.observability.OnRequestStart(req.Context(), req)
		req = req.WithContext(enriched)
		obsState = state
	}

	if d.timeout > 0 {
		ctx, cancel := context.WithTimeout(req.Context(), d.timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	c := d.pool.acquire(w, req)
	defer d.pool.release(c)

	pattern := d.dispatch(c)

	if d.observability != nil && obsState != nil {
		d.observability.OnRequestEnd(req.Context(), obsState, &c.writer, pattern)
	}
}

// dispatch runs route lookup and the chain for one request, returning the
// route pattern for observability.
func (d *Dispatcher) dispatch(c *Context) string {
	route, params, err := d.router.lookup(c.Request.Method, c.Request.URL.Path)
	if err != nil {
		return d.failLookup(c, err)
	}
	c.setRoute(route, params)

	// The chain may install derived contexts on c.Request (the timeout
	// middleware does) and cancel them on unwind. Only cancellation of the
	// context the request arrived with means disconnect or deadline.
	baseCtx := c.Request.Context()

	runErr := d.run(c)
	if runErr == nil && !c.Committed() {
		// Errors collected by middleware via Error/AbortWithError flow
		// through the same path as thrown failures.
		if collected := c.Errors(); len(collected) > 0 {
			runErr = collected[0]
		}
	}

	switch {
	case runErr != nil:
		d.handleError(c, runErr)
	case !c.Committed() && baseCtx.Err() != nil:
		d.writeTimeout(c, baseCtx.Err())
	}
	return route.Pattern
}

// run executes the middleware chain, converting panics into PanicError so
// they flow through exception dispatch.
func (d *Dispatcher) run(c *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	c.Next()
	return nil
}

// handleError resolves the most specific exception handler for the failure
// and invokes it. A failure inside the handler itself is fatal for this
// request only: it is logged and a generic response is returned. When no
// handler claims the failure, the default formatter renders it, honoring
// any status or body the failure declares.
func (d *Dispatcher) handleError(c *Context, err error) {
	if pe, ok := err.(*PanicError); ok {
		d.logger.Error("panic during dispatch",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", pe.Value,
		)
	}

	if d.exceptions != nil {
		if entry, ok := d.exceptions.FindHandler(err); ok {
			if d.invokeHandler(c, entry, err) {
				return
			}
			// The handler itself failed: generic response, this request only.
			if !c.Committed() {
				http.Error(c.Response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
			return
		}
	}

	if !c.Committed() {
		d.writeErrorResponse(c, d.formatter.Format(c.Request, err))
	}
}

// invokeHandler runs one exception handler, reporting false when the
// handler panicked.
func (d *Dispatcher) invokeHandler(c *Context, entry ErrorHandlerEntry, cause error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			d.logger.Error("exception handler failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"cause", cause,
				"panic", r,
			)
			d.emit(DiagExceptionHandlerFailed, "exception handler failed", map[string]any{
				"cause": cause.Error(),
			})
		}
	}()
	d.exceptions.Invoke(entry, c, cause)
	return true
}

// failLookup renders not-found and method-not-allowed outcomes, returning
// the sentinel pattern for observability.
func (d *Dispatcher) failLookup(c *Context, err error) string {
	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		d.writeErrorResponse(c, ErrorResponse{
			Status:      http.StatusMethodNotAllowed,
			ContentType: "application/json; charset=utf-8",
			Body:        map[string]any{"error": http.StatusText(http.StatusMethodNotAllowed)},
		})
		return patternMethodNotAllowed
	default:
		d.writeErrorResponse(c, ErrorResponse{
			Status:      http.StatusNotFound,
			ContentType: "application/json; charset=utf-8",
			Body:        map[string]any{"error": http.StatusText(http.StatusNotFound)},
		})
		return patternNotFound
	}
}

// writeTimeout renders the deadline-exceeded outcome for a chain that
// never committed a response.
func (d *Dispatcher) writeTimeout(c *Context, cause error) {
	status := http.StatusGatewayTimeout
	if !errors.Is(cause, context.DeadlineExceeded) {
		// Client disconnect: the response goes nowhere, but commit a
		// status so the writer state is consistent for observability.
		status = http.StatusServiceUnavailable
	}
	d.writeErrorResponse(c, ErrorResponse{
		Status:      status,
		ContentType: "application/json; charset=utf-8",
		Body:        map[string]any{"error": http.StatusText(status)},
	})
}

// writeErrorResponse writes a formatted error response unless the response
// is already committed.
func (d *Dispatcher) writeErrorResponse(c *Context, resp ErrorResponse) {
	if c.Committed() {
		return
	}
	c.SetHeader("Content-Type", resp.ContentType)
	c.Response.WriteHeader(resp.Status)
	if resp.Body != nil {
		_ = writeJSONBody(c.Response, resp.Body)
	}
}

// emit sends a diagnostic event if a handler is configured.
func (d *Dispatcher) emit(kind DiagnosticKind, message string, fields map[string]any) {
	if d.diagnostics != nil {
		d.diagnostics.OnDiagnostic(DiagnosticEvent{Kind: kind, Message: message, Fields: fields})
	}
}
