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
	"bufio"
	"net"
	"net/http"
)

// ResponseInfo is implemented by response writers that track response
// metadata. Observability recorders type-assert to it in OnRequestEnd to
// extract status and size.
type ResponseInfo interface {
	StatusCode() int
	Size() int64
}

// responseWriter wraps http.ResponseWriter to track the committed flag,
// status code, and response size. It also suppresses duplicate
// WriteHeader calls.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

// WriteHeader commits the response with the given status, ignoring
// duplicate calls.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

// Write commits the response if it is not committed yet and tracks the
// bytes written.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
	}
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// StatusCode returns the HTTP status code, defaulting to 200 when the
// response was written without an explicit WriteHeader.
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

// Size returns the number of body bytes written.
func (rw *responseWriter) Size() int64 { return rw.size }

// Written reports whether the response has been committed.
func (rw *responseWriter) Written() bool { return rw.written }

// Compile-time check that responseWriter implements ResponseInfo.
var _ ResponseInfo = (*responseWriter)(nil)

// Hijack implements http.Hijacker when the underlying writer supports it.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, ErrResponseWriterNotHijacker
}

// Flush implements http.Flusher when the underlying writer supports it.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
