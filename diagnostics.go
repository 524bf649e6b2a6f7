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

// DiagnosticEvent represents a dispatcher diagnostic or anomaly. These are
// informational events that may indicate configuration issues; dispatch
// works the same whether they are collected or not.
type DiagnosticEvent struct {
	Kind    DiagnosticKind
	Message string
	Fields  map[string]any // Structured context
}

// DiagnosticKind categorizes diagnostic events.
type DiagnosticKind string

const (
	// DiagRouteRegistered is emitted for every route registered at build time.
	DiagRouteRegistered DiagnosticKind = "route_registered"

	// DiagUnitResolved is emitted for every unit resolved at build time.
	DiagUnitResolved DiagnosticKind = "unit_resolved"

	// DiagExceptionHandlerFailed is emitted when an exception handler
	// itself fails while rendering a failure.
	DiagExceptionHandlerFailed DiagnosticKind = "exception_handler_failed"

	// DiagH2CEnabled is emitted when cleartext HTTP/2 is enabled.
	DiagH2CEnabled DiagnosticKind = "h2c_enabled"
)

// DiagnosticHandler receives diagnostic events from the dispatcher.
// Implementations may log, emit metrics, or ignore them. If none is
// configured, events are silently dropped.
//
// Example:
//
//	handler := dispatch.DiagnosticHandlerFunc(func(e dispatch.DiagnosticEvent) {
//	    slog.Warn(e.Message, "kind", e.Kind, "fields", e.Fields)
//	})
//	d := dispatch.MustNew(dispatch.WithDiagnostics(handler))
type DiagnosticHandler interface {
	OnDiagnostic(DiagnosticEvent)
}

// DiagnosticHandlerFunc is a function adapter for DiagnosticHandler.
type DiagnosticHandlerFunc func(DiagnosticEvent)

// OnDiagnostic implements DiagnosticHandler.
func (f DiagnosticHandlerFunc) OnDiagnostic(e DiagnosticEvent) { f(e) }
