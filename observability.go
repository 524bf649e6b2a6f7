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
	"io"
	"log/slog"
	"net/http"
)

// noopLogger is a singleton no-op logger used when no observability is
// configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NoopLogger returns the singleton no-op logger.
func NoopLogger() *slog.Logger { return noopLogger }

// ObservabilityRecorder provides unified observability lifecycle hooks for
// dispatched requests: metrics, tracing, and access logging behind one
// interface.
//
// Lifecycle:
//  1. The dispatcher calls OnRequestStart(ctx, req) → (enrichedCtx, state).
//     The enriched context is always installed on the request. A nil state
//     excludes the request from the remaining hooks (context enrichment
//     still applies, so trace propagation keeps working on excluded paths).
//  2. The chain executes.
//  3. The dispatcher calls OnRequestEnd(ctx, state, info, routePattern)
//     only when state is non-nil. routePattern is the matched template
//     (e.g. "/users/:id") or a sentinel like "_not_found"; implementations
//     should label metrics with it, not the raw path, to bound
//     cardinality.
//
// All methods must be safe for concurrent use.
type ObservabilityRecorder interface {
	// OnRequestStart is called before routing begins. Return a nil state
	// to exclude the request from OnRequestEnd.
	OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any)

	// OnRequestEnd is called after dispatch completes, with the response
	// metadata and the matched route pattern.
	OnRequestEnd(ctx context.Context, state any, info ResponseInfo, routePattern string)
}

// Sentinel route patterns reported to observability when no route matched.
const (
	patternNotFound         = "_not_found"
	patternMethodNotAllowed = "_method_not_allowed"
)
