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

// Package timeout provides middleware that bounds the remaining chain with
// a deadline. Cancellation is cooperative: the chain stops between
// handlers once the deadline expires, and a running handler is never
// interrupted preemptively.
package timeout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rivaas.dev/dispatch"
)

// Option defines functional options for timeout middleware configuration.
type Option func(*config)

// config holds the configuration for the timeout middleware.
type config struct {
	// duration is the deadline applied to the remaining chain
	duration time.Duration

	// logger receives timeout events; nil disables logging
	logger *slog.Logger

	// handler renders the timeout response when nothing was committed
	handler func(c *dispatch.Context, timeout time.Duration)

	// skipPaths are exact paths excluded from the deadline
	skipPaths map[string]bool

	// skipPrefixes are path prefixes excluded from the deadline
	skipPrefixes []string
}

// defaultConfig returns the default configuration for timeout middleware.
func defaultConfig() *config {
	return &config{
		duration:  30 * time.Second,
		logger:    slog.Default(),
		handler:   defaultHandler,
		skipPaths: make(map[string]bool),
	}
}

// defaultHandler renders the timeout response.
func defaultHandler(c *dispatch.Context, timeout time.Duration) {
	c.JSON(http.StatusRequestTimeout, map[string]any{
		"error":   "Request timeout",
		"code":    "TIMEOUT",
		"timeout": timeout.String(),
		"path":    c.Request.URL.Path,
	})
}

// WithDuration sets the deadline. Default: 30 seconds.
func WithDuration(d time.Duration) Option {
	return func(cfg *config) { cfg.duration = d }
}

// WithLogger sets a custom logger for timeout events.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = logger }
}

// WithoutLogging disables timeout logging.
func WithoutLogging() Option {
	return func(cfg *config) { cfg.logger = nil }
}

// WithHandler replaces the default timeout response.
func WithHandler(handler func(c *dispatch.Context, timeout time.Duration)) Option {
	return func(cfg *config) { cfg.handler = handler }
}

// WithSkipPaths excludes exact paths from the deadline.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.skipPaths[p] = true
		}
	}
}

// WithSkipPrefix excludes path prefixes from the deadline.
func WithSkipPrefix(prefixes ...string) Option {
	return func(cfg *config) {
		cfg.skipPrefixes = append(cfg.skipPrefixes, prefixes...)
	}
}

// shouldSkip reports whether the deadline is excluded for this request.
func shouldSkip(cfg *config, c *dispatch.Context) bool {
	path := c.Request.URL.Path
	if cfg.skipPaths[path] {
		return true
	}
	for _, prefix := range cfg.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// New returns a middleware that installs a deadline on the request context
// for the remainder of the chain. When the deadline expires before a
// response is committed, the configured handler renders the timeout
// response and the chain is aborted.
//
// Example:
//
//	d := dispatch.MustNew()
//	d.Use(timeout.New(timeout.WithDuration(5 * time.Second)))
func New(opts ...Option) dispatch.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *dispatch.Context) {
		if shouldSkip(cfg, c) {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.duration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Committed() {
			if cfg.logger != nil {
				cfg.logger.Warn("request timed out",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"timeout", cfg.duration,
				)
			}
			cfg.handler(c, cfg.duration)
			c.Abort()
		}
	}
}
