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
	"encoding/json"
	"log/slog"
	"net/http"
)

// maxArrayParams is the number of path parameters stored in the fixed
// arrays before overflowing to the Params map.
const maxArrayParams = 8

// HandlerFunc is the signature shared by route handlers and middleware.
// Middleware call c.Next() to continue the chain; not calling it
// terminates the request, which is the designed mechanism for rejecting
// one.
//
// Example middleware:
//
//	func Timing(c *dispatch.Context) {
//	    start := time.Now()
//	    c.Next()
//	    c.Logger().Info("handled", "elapsed", time.Since(start))
//	}
type HandlerFunc func(*Context)

// Context carries one request through the middleware chain to its terminal
// handler: the request, the committed-flag-tracking response writer, the
// captured path parameters, and the chain cursor.
//
// A Context is bound to a single request and must only be touched by the
// goroutine handling it. Contexts are pooled and reused; do not retain
// references past the handler's return, and copy any needed values before
// starting goroutines.
type Context struct {
	// Request is the HTTP request being dispatched.
	Request *http.Request

	// Response is the response writer. Writing to it commits the
	// response; see Committed.
	Response http.ResponseWriter

	handlers []HandlerFunc
	index    int32
	writer   responseWriter
	route    *Route

	// Parameter storage: fixed arrays for typical routes, map overflow
	// for routes with many parameters.
	paramCount  int32
	paramKeys   [maxArrayParams]string
	paramValues [maxArrayParams]string
	overflow    map[string]string

	logger            *slog.Logger
	aborted           bool
	checkCancellation bool
	errs              []error
}

// NewContext creates a context outside the normal pooled request flow,
// mainly for tests.
func NewContext(w http.ResponseWriter, req *http.Request) *Context {
	c := &Context{index: -1, checkCancellation: true}
	c.begin(w, req)
	return c
}

// begin binds the context to a request/response pair.
func (c *Context) begin(w http.ResponseWriter, req *http.Request) {
	c.writer = responseWriter{ResponseWriter: w}
	c.Response = &c.writer
	c.Request = req
}

// reset clears per-request state so the context can return to the pool.
func (c *Context) reset() {
	c.Request = nil
	c.Response = nil
	c.writer = responseWriter{}
	c.handlers = nil
	c.index = -1
	c.route = nil
	c.paramCount = 0
	for i := range c.paramKeys {
		c.paramKeys[i] = ""
		c.paramValues[i] = ""
	}
	c.overflow = nil
	c.logger = nil
	c.aborted = false
	c.errs = nil
}

// setRoute installs the matched route, its composed chain, and the captured
// parameters.
func (c *Context) setRoute(rt *Route, params []paramBinding) {
	c.route = rt
	c.handlers = rt.chain
	for _, p := range params {
		c.addParam(p.key, p.value)
	}
}

// addParam stores one captured parameter, overflowing to the map when the
// arrays are full.
func (c *Context) addParam(key, value string) {
	if c.paramCount < maxArrayParams {
		c.paramKeys[c.paramCount] = key
		c.paramValues[c.paramCount] = value
		c.paramCount++
		return
	}
	if c.overflow == nil {
		c.overflow = make(map[string]string, 4)
	}
	c.overflow[key] = value
}

// Next advances the cursor one step and runs the next handler in the
// chain. Not calling Next terminates the chain: handlers past the current
// one never execute, which is how middleware reject a request. Code after
// the call runs on the way back out, once the rest of the chain has
// unwound.
//
// Next returns without running anything when the chain is exhausted,
// aborted, or the request context is canceled. Call it at most once per
// handler.
func (c *Context) Next() {
	c.index++
	if c.aborted || c.index >= int32(len(c.handlers)) {
		return
	}
	if c.checkCancellation && c.Request.Context().Err() != nil {
		return
	}
	c.handlers[c.index](c)
}

// Abort stops the chain: no handler after the current one executes.
// Handlers already on the stack still run their post-Next code.
func (c *Context) Abort() { c.aborted = true }

// AbortWithStatus commits the response with the given status and aborts.
func (c *Context) AbortWithStatus(code int) {
	c.Response.WriteHeader(code)
	c.Abort()
}

// AbortWithError records the error and aborts. The dispatcher routes
// collected errors through the exception-handling path once the chain
// unwinds, so this is how middleware reject a request with a typed
// failure.
func (c *Context) AbortWithError(err error) {
	c.Error(err)
	c.Abort()
}

// IsAborted reports whether the chain has been aborted.
func (c *Context) IsAborted() bool { return c.aborted }

// Committed reports whether the response has been committed (status or
// body written). A committed response short-circuits default and error
// rendering.
func (c *Context) Committed() bool { return c.writer.Written() }

// Param returns the captured path parameter for name, or "" when absent.
// Optional segments the path did not fill are absent.
func (c *Context) Param(name string) string {
	for i := int32(0); i < c.paramCount; i++ {
		if c.paramKeys[i] == name {
			return c.paramValues[i]
		}
	}
	return c.overflow[name]
}

// Wildcard returns the capture of the route's wildcard segment, or "" when
// the route has none.
func (c *Context) Wildcard() string { return c.Param(WildcardParam) }

// Query returns the first query value for key, or "" when absent.
func (c *Context) Query(key string) string {
	return c.Request.URL.Query().Get(key)
}

// DefaultQuery returns the first query value for key, or def when absent.
func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Request.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

// Header returns the first request header value for key.
func (c *Context) Header(key string) string {
	return c.Request.Header.Get(key)
}

// SetHeader sets a response header. Headers set after the response is
// committed have no effect.
func (c *Context) SetHeader(key, value string) {
	c.Response.Header().Set(key, value)
}

// Status commits the response with the given status code and no body.
func (c *Context) Status(code int) {
	c.Response.WriteHeader(code)
}

// JSON writes a JSON response with the given status code and commits it.
func (c *Context) JSON(code int, v any) error {
	c.SetHeader("Content-Type", "application/json; charset=utf-8")
	c.Response.WriteHeader(code)
	return json.NewEncoder(c.Response).Encode(v)
}

// String writes a plain-text response with the given status code and
// commits it.
func (c *Context) String(code int, s string) error {
	c.SetHeader("Content-Type", "text/plain; charset=utf-8")
	c.Response.WriteHeader(code)
	_, err := c.Response.Write([]byte(s))
	return err
}

// RoutePattern returns the matched route's template, e.g. "/users/:id",
// or "" when no route matched. Observability uses the pattern rather than
// the raw path to keep label cardinality bounded.
func (c *Context) RoutePattern() string {
	if c.route == nil {
		return ""
	}
	return c.route.Pattern
}

// Error records an error against the request. Collected errors flow
// through the dispatcher's exception-handling path after the chain
// unwinds, unless the response was already committed.
func (c *Context) Error(err error) {
	if err == nil {
		return
	}
	c.errs = append(c.errs, err)
}

// Errors returns the errors collected during the request, oldest first.
func (c *Context) Errors() []error { return c.errs }

// Logger returns the request-scoped logger, or the no-op logger when none
// was attached.
func (c *Context) Logger() *slog.Logger {
	if c.logger == nil {
		return noopLogger
	}
	return c.logger
}

// SetLogger attaches a request-scoped logger, typically done by the
// observability recorder or request-ID middleware.
func (c *Context) SetLogger(l *slog.Logger) { c.logger = l }
