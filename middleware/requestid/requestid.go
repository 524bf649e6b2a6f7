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

// Package requestid provides middleware that attaches a unique request ID
// to each request for log correlation.
package requestid

import (
	"github.com/google/uuid"

	"rivaas.dev/dispatch"
)

// HeaderName is the default header carrying the request ID.
const HeaderName = "X-Request-ID"

// Option defines functional options for requestid middleware configuration.
type Option func(*config)

// config holds the configuration for the requestid middleware.
type config struct {
	// headerName is the header carrying the request ID
	headerName string

	// generator produces new request IDs
	generator func() string

	// allowClientID accepts request IDs supplied by clients
	allowClientID bool
}

// defaultConfig returns the default configuration for requestid middleware.
func defaultConfig() *config {
	return &config{
		headerName:    HeaderName,
		generator:     uuid.NewString,
		allowClientID: true,
	}
}

// WithHeaderName sets the header carrying the request ID.
func WithHeaderName(name string) Option {
	return func(cfg *config) { cfg.headerName = name }
}

// WithGenerator replaces the default UUID generator.
func WithGenerator(generator func() string) Option {
	return func(cfg *config) { cfg.generator = generator }
}

// WithAllowClientID controls whether client-supplied IDs are trusted.
// Enabled by default; disable on edge servers where clients are untrusted.
func WithAllowClientID(allow bool) Option {
	return func(cfg *config) { cfg.allowClientID = allow }
}

// New returns a middleware that ensures every request carries an ID:
// a client-supplied one when allowed, otherwise a freshly generated UUID.
// The ID is echoed on the response and attached to the request-scoped
// logger.
//
// Example:
//
//	d := dispatch.MustNew()
//	d.Use(requestid.New())
func New(opts ...Option) dispatch.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *dispatch.Context) {
		id := ""
		if cfg.allowClientID {
			id = c.Header(cfg.headerName)
		}
		if id == "" {
			id = cfg.generator()
		}

		c.SetHeader(cfg.headerName, id)
		c.SetLogger(c.Logger().With("request_id", id))
		c.Next()
	}
}
