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

package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
)

func newDispatcher(t *testing.T, mw dispatch.HandlerFunc) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.MustNew()
	require.NoError(t, d.Use(mw))
	_, err := d.Handle(http.MethodGet, "/ping", func(c *dispatch.Context) {
		c.Status(http.StatusOK)
	})
	require.NoError(t, err)
	require.NoError(t, d.Build())
	return d
}

func TestRequestIDGenerated(t *testing.T) {
	t.Parallel()
	d := newDispatcher(t, New())

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := rec.Header().Get(HeaderName)
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err, "generated IDs are UUIDs")
}

func TestRequestIDEchoesClientID(t *testing.T) {
	t.Parallel()
	d := newDispatcher(t, New())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderName, "client-supplied")
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied", rec.Header().Get(HeaderName))
}

func TestRequestIDRejectsClientIDWhenDisallowed(t *testing.T) {
	t.Parallel()
	d := newDispatcher(t, New(
		WithAllowClientID(false),
		WithGenerator(func() string { return "server-generated" }),
	))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderName, "client-supplied")
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	assert.Equal(t, "server-generated", rec.Header().Get(HeaderName))
}

func TestRequestIDCustomHeader(t *testing.T) {
	t.Parallel()
	d := newDispatcher(t, New(
		WithHeaderName("X-Correlation-ID"),
		WithGenerator(func() string { return "fixed" }),
	))

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "fixed", rec.Header().Get("X-Correlation-ID"))
	assert.Empty(t, rec.Header().Get(HeaderName))
}
