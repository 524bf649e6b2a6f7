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
	"log/slog"
	"time"
)

// Option defines functional options for dispatcher configuration.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's structured logger. Defaults to the
// no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObservability sets the observability recorder consulted around every
// request. Pass nil to disable.
func WithObservability(recorder ObservabilityRecorder) Option {
	return func(d *Dispatcher) {
		d.observability = recorder
	}
}

// WithDiagnostics sets a diagnostic event handler.
//
// Example:
//
//	handler := dispatch.DiagnosticHandlerFunc(func(e dispatch.DiagnosticEvent) {
//	    slog.Warn(e.Message, "kind", e.Kind, "fields", e.Fields)
//	})
//	d := dispatch.MustNew(dispatch.WithDiagnostics(handler))
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(d *Dispatcher) {
		d.diagnostics = handler
	}
}

// WithErrorFormatter sets the formatter used for default error responses
// when no exception handler claims a failure. Defaults to SimpleFormatter.
func WithErrorFormatter(f Formatter) Option {
	return func(d *Dispatcher) {
		if f != nil {
			d.formatter = f
		}
	}
}

// WithTimeout bounds chain execution per request. The deadline is installed
// on the request context before the chain runs; handlers observe it
// cooperatively, and the dispatcher renders 504 when the deadline expires
// before the response is committed. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithCancellationCheck toggles the per-handler cancellation check in
// Context.Next. Enabled by default; disable only on hot paths where the
// chain is short and handlers check the context themselves.
func WithCancellationCheck(enable bool) Option {
	return func(d *Dispatcher) {
		d.checkCancellation = enable
	}
}

// WithServerTimeouts configures HTTP server timeouts used by Serve.
//
// Defaults (if not set):
//
//	ReadHeaderTimeout: 5s
//	ReadTimeout:       15s
//	WriteTimeout:      30s
//	IdleTimeout:       60s
func WithServerTimeouts(readHeader, read, write, idle time.Duration) Option {
	return func(d *Dispatcher) {
		d.serverTimeouts = &serverTimeouts{
			readHeader: readHeader,
			read:       read,
			write:      write,
			idle:       idle,
		}
	}
}

// WithH2C enables HTTP/2 Cleartext support in Serve.
//
// ⚠️ SECURITY WARNING: Only use in development or behind a trusted load
// balancer. Do not enable on public-facing servers without TLS.
func WithH2C(enable bool) Option {
	return func(d *Dispatcher) {
		d.enableH2C = enable
	}
}

// serverTimeouts holds HTTP server timeout configuration.
type serverTimeouts struct {
	readHeader time.Duration
	read       time.Duration
	write      time.Duration
	idle       time.Duration
}

// defaultServerTimeouts returns the default timeout configuration.
func defaultServerTimeouts() *serverTimeouts {
	return &serverTimeouts{
		readHeader: 5 * time.Second,
		read:       15 * time.Second,
		write:      30 * time.Second,
		idle:       60 * time.Second,
	}
}

// validate checks a timeout configuration for non-positive values.
func (t *serverTimeouts) validate() error {
	if t.readHeader <= 0 || t.read <= 0 || t.write <= 0 || t.idle <= 0 {
		return ErrServerTimeoutInvalid
	}
	return nil
}
