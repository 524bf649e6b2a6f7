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
	"net/http"
	"sync"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// serverState holds the running server reference for Shutdown, protected
// separately from dispatch state.
type serverState struct {
	mu     sync.Mutex
	server *http.Server
}

// Serve builds the dispatcher and starts the HTTP server on the given
// address, blocking until the server exits. Configuration errors from
// Build are returned before the listener opens, so misconfiguration stops
// startup instead of surfacing under traffic.
//
// The server uses production-safe timeouts (see WithServerTimeouts) and
// enables cleartext HTTP/2 when configured via WithH2C.
//
// Example:
//
//	d := dispatch.MustNew()
//	_ = d.Load(descriptors)
//
//	go func() {
//	    if err := d.Serve(":8080"); err != nil && err != http.ErrServerClosed {
//	        log.Fatal(err)
//	    }
//	}()
//
//	quit := make(chan os.Signal, 1)
//	signal.Notify(quit, os.Interrupt)
//	<-quit
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	d.Shutdown(ctx)
func (d *Dispatcher) Serve(addr string) error {
	if err := d.Build(); err != nil {
		return err
	}

	h := http.Handler(d)
	if d.enableH2C {
		h = h2c.NewHandler(h, &http2.Server{})
		d.emit(DiagH2CEnabled, "H2C enabled; use only in dev or behind a trusted LB", nil)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: d.serverTimeouts.readHeader,
		ReadTimeout:       d.serverTimeouts.read,
		WriteTimeout:      d.serverTimeouts.write,
		IdleTimeout:       d.serverTimeouts.idle,
	}

	d.serverState.mu.Lock()
	d.serverState.server = srv
	d.serverState.mu.Unlock()

	return srv.ListenAndServe()
}

// ServeTLS builds the dispatcher and starts the HTTPS server. HTTP/2 is
// negotiated automatically via ALPN.
func (d *Dispatcher) ServeTLS(addr, certFile, keyFile string) error {
	if err := d.Build(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           d,
		ReadHeaderTimeout: d.serverTimeouts.readHeader,
		ReadTimeout:       d.serverTimeouts.read,
		WriteTimeout:      d.serverTimeouts.write,
		IdleTimeout:       d.serverTimeouts.idle,
	}

	d.serverState.mu.Lock()
	d.serverState.server = srv
	d.serverState.mu.Unlock()

	return srv.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown gracefully shuts down the running server without interrupting
// in-flight requests. It is a no-op when no server is running.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.serverState.mu.Lock()
	srv := d.serverState.server
	d.serverState.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
