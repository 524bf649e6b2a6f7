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

package timeout

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
)

func newDispatcher(t *testing.T, mw dispatch.HandlerFunc, path string, handler dispatch.HandlerFunc) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.MustNew()
	require.NoError(t, d.Use(mw))
	_, err := d.Handle(http.MethodGet, path, handler)
	require.NoError(t, err)
	require.NoError(t, d.Build())
	return d
}

func TestTimeoutRendersDefaultResponse(t *testing.T) {
	t.Parallel()
	mw := New(WithDuration(10*time.Millisecond), WithoutLogging())
	d := newDispatcher(t, mw, "/slow", func(c *dispatch.Context) {
		<-c.Request.Context().Done()
	})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"TIMEOUT"`)
	assert.Contains(t, rec.Body.String(), `"path":"/slow"`)
}

func TestTimeoutCustomHandler(t *testing.T) {
	t.Parallel()
	mw := New(
		WithDuration(10*time.Millisecond),
		WithoutLogging(),
		WithHandler(func(c *dispatch.Context, timeout time.Duration) {
			_ = c.String(http.StatusGatewayTimeout, "too slow")
		}),
	)
	d := newDispatcher(t, mw, "/slow", func(c *dispatch.Context) {
		<-c.Request.Context().Done()
	})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "too slow", rec.Body.String())
}

func TestTimeoutCommittedResponseWins(t *testing.T) {
	t.Parallel()
	mw := New(WithDuration(10*time.Millisecond), WithoutLogging())
	d := newDispatcher(t, mw, "/slow", func(c *dispatch.Context) {
		_ = c.String(http.StatusOK, "done")
		<-c.Request.Context().Done()
	})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}

func TestTimeoutFastHandlerUnaffected(t *testing.T) {
	t.Parallel()
	mw := New(WithDuration(time.Second), WithoutLogging())
	d := newDispatcher(t, mw, "/fast", func(c *dispatch.Context) {
		_ = c.String(http.StatusOK, "fast")
	})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fast", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTimeoutUncommittedFastHandlerUnaffected(t *testing.T) {
	t.Parallel()
	mw := New(WithDuration(5*time.Second), WithoutLogging())
	d := newDispatcher(t, mw, "/quiet", func(c *dispatch.Context) {})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quiet", nil))

	assert.Equal(t, http.StatusOK, rec.Code,
		"the middleware's own deferred cancel must not read as a disconnect")
	assert.Empty(t, rec.Body.String())
}

func TestTimeoutSkipPaths(t *testing.T) {
	t.Parallel()
	var hasDeadline bool
	mw := New(
		WithDuration(time.Second),
		WithoutLogging(),
		WithSkipPaths("/healthz"),
	)
	d := newDispatcher(t, mw, "/healthz", func(c *dispatch.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.False(t, hasDeadline, "skipped paths run without a deadline")
}

func TestTimeoutSkipPrefix(t *testing.T) {
	t.Parallel()
	var hasDeadline bool
	mw := New(
		WithDuration(time.Second),
		WithoutLogging(),
		WithSkipPrefix("/internal/"),
	)
	d := newDispatcher(t, mw, "/internal/debug", func(c *dispatch.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/internal/debug", nil))
	assert.False(t, hasDeadline)
}
