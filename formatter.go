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
	"errors"
	"io"
	"net/http"
)

// writeJSONBody marshals a formatted error body to the wire.
func writeJSONBody(w io.Writer, body any) error {
	return json.NewEncoder(w).Encode(body)
}

// ErrorType allows failures to declare their own HTTP status code.
// Domain errors can optionally implement this interface to control the
// status of their default response instead of the generic 500.
//
// Example:
//
//	type NotFoundError struct{ Resource string }
//
//	func (e NotFoundError) Error() string    { return e.Resource + " not found" }
//	func (e NotFoundError) HTTPStatus() int  { return http.StatusNotFound }
type ErrorType interface {
	HTTPStatus() int
}

// ErrorCode allows failures to expose an application-specific error code
// included in the default response body.
type ErrorCode interface {
	Code() string
}

// ErrorDetails allows failures to expose structured details included in the
// default response body.
type ErrorDetails interface {
	Details() map[string]any
}

// ErrorResponse represents a formatted error response: everything needed to
// write the failure to the wire.
type ErrorResponse struct {
	// Status is the HTTP status code.
	Status int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is the response body, marshaled to JSON before writing.
	Body any
}

// Formatter converts uncaught failures into error responses. It is consulted
// by the Dispatcher when no exception handler claims a failure.
type Formatter interface {
	// Format converts an error into response components. The request is
	// available for formatters that include instance information.
	Format(req *http.Request, err error) ErrorResponse
}

// SimpleFormatter formats errors as flat JSON objects:
// {"error": "message", "code": "...", "details": {...}}.
//
// The status comes from the ErrorType interface when the failure declares
// one, otherwise http.StatusInternalServerError. For 5xx responses the
// error message is replaced with a generic one so internal detail never
// leaks to clients.
type SimpleFormatter struct {
	// ExposeInternal includes the real error message in 5xx responses.
	// Leave false in production.
	ExposeInternal bool
}

// Format implements Formatter.
func (f *SimpleFormatter) Format(_ *http.Request, err error) ErrorResponse {
	status := http.StatusInternalServerError
	var typed ErrorType
	if errors.As(err, &typed) {
		status = typed.HTTPStatus()
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError && !f.ExposeInternal {
		msg = http.StatusText(status)
	}

	body := map[string]any{"error": msg}
	var coded ErrorCode
	if errors.As(err, &coded) {
		body["code"] = coded.Code()
	}
	var detailed ErrorDetails
	if errors.As(err, &detailed) {
		body["details"] = detailed.Details()
	}

	return ErrorResponse{
		Status:      status,
		ContentType: "application/json; charset=utf-8",
		Body:        body,
	}
}
