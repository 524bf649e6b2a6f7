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

// Package accesslog provides middleware that emits one structured log line
// per request. For apps using the built-in observability recorder this is
// redundant; it exists for chains that want access logs without metrics.
package accesslog

import (
	"log/slog"
	"os"
	"time"

	"rivaas.dev/dispatch"
)

// Option defines functional options for accesslog middleware configuration.
type Option func(*config)

// config holds the configuration for the accesslog middleware.
type config struct {
	// logger receives the access log lines
	logger *slog.Logger

	// skipPaths are exact paths excluded from logging
	skipPaths map[string]bool
}

// defaultConfig returns the default configuration for accesslog middleware.
func defaultConfig() *config {
	return &config{
		logger:    slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		skipPaths: make(map[string]bool),
	}
}

// WithLogger sets the logger receiving access log lines.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithSkipPaths excludes exact paths from logging, typically health and
// metrics endpoints.
func WithSkipPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.skipPaths[p] = true
		}
	}
}

// New returns a middleware that logs one line per request after the rest
// of the chain completes, including the matched route pattern, status,
// response size, and elapsed time.
//
// Example:
//
//	d := dispatch.MustNew()
//	d.Use(accesslog.New(accesslog.WithSkipPaths("/healthz")))
func New(opts ...Option) dispatch.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *dispatch.Context) {
		if cfg.skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status, size := 0, int64(0)
		if info, ok := c.Response.(dispatch.ResponseInfo); ok {
			status, size = info.StatusCode(), info.Size()
		}
		cfg.logger.LogAttrs(c.Request.Context(), slog.LevelInfo, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.RoutePattern()),
			slog.Int("status", status),
			slog.Int64("bytes", size),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
