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

// Package recovery provides middleware that recovers from panics in later
// handlers and converts them into errors flowing through the dispatcher's
// exception path.
package recovery

import (
	"log/slog"
	"runtime/debug"

	"rivaas.dev/dispatch"
)

// Option defines functional options for recovery middleware configuration.
type Option func(*config)

// config holds the configuration for the recovery middleware.
type config struct {
	// stackTrace enables capturing a stack trace on panic
	stackTrace bool

	// stackSize caps the captured stack trace in bytes
	stackSize int

	// logger receives panic events; nil disables logging
	logger *slog.Logger

	// handler is called with the recovered panic converted to an error
	handler func(c *dispatch.Context, err error)
}

// defaultConfig returns the default configuration for recovery middleware.
func defaultConfig() *config {
	return &config{
		stackTrace: true,
		stackSize:  4 << 10, // 4KB
		logger:     slog.Default(),
		handler:    defaultHandler,
	}
}

// defaultHandler aborts the chain with the panic error, letting the
// dispatcher's exception registry and formatter render the response.
func defaultHandler(c *dispatch.Context, err error) {
	c.AbortWithError(err)
}

// WithLogger sets a custom logger for panic events.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = logger }
}

// WithoutLogging disables panic logging.
func WithoutLogging() Option {
	return func(cfg *config) { cfg.logger = nil }
}

// WithStackTrace toggles stack trace capture. Enabled by default.
func WithStackTrace(enable bool) Option {
	return func(cfg *config) { cfg.stackTrace = enable }
}

// WithStackSize caps the captured stack trace size in bytes.
func WithStackSize(size int) Option {
	return func(cfg *config) { cfg.stackSize = size }
}

// WithHandler replaces the default behavior of routing the panic through
// the exception path. The handler may write its own response instead.
func WithHandler(handler func(c *dispatch.Context, err error)) Option {
	return func(cfg *config) { cfg.handler = handler }
}

// New returns a middleware that recovers from panics in subsequent
// handlers. The recovered panic is logged and, by default, converted into
// a *dispatch.PanicError routed through the dispatcher's exception path.
//
// The dispatcher itself also recovers panics that escape the chain; this
// middleware exists for apps that want recovery earlier in the chain so
// outer middleware still run their unwind logic with a recorded error.
//
// Example:
//
//	d := dispatch.MustNew()
//	d.Use(recovery.New())
func New(opts ...Option) dispatch.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *dispatch.Context) {
		defer func() {
			if r := recover(); r != nil {
				var stack []byte
				if cfg.stackTrace {
					stack = debug.Stack()
					if len(stack) > cfg.stackSize {
						stack = stack[:cfg.stackSize]
					}
				}
				if cfg.logger != nil {
					cfg.logger.Error("panic recovered",
						"panic", r,
						"method", c.Request.Method,
						"path", c.Request.URL.Path,
						"stack", string(stack),
					)
				}
				cfg.handler(c, &dispatch.PanicError{Value: r, Stack: stack})
			}
		}()
		c.Next()
	}
}
