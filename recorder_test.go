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
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderUnsupportedProvider(t *testing.T) {
	t.Parallel()
	_, err := NewRecorder(WithMetricsProvider("graphite"))
	assert.Error(t, err)
}

func TestRecorderPrometheusScrape(t *testing.T) {
	t.Parallel()
	rec, err := NewRecorder()
	require.NoError(t, err)
	defer rec.Shutdown(context.Background()) //nolint:errcheck

	d := MustNew(WithObservability(rec))
	_, err = d.Handle(http.MethodGet, "/ping", func(c *Context) {
		c.Status(http.StatusOK)
	})
	require.NoError(t, err)
	require.NoError(t, d.Build())

	perform(d, http.MethodGet, "/ping")
	perform(d, http.MethodGet, "/ping")

	scrape := httptest.NewRecorder()
	rec.MetricsHandler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, scrape.Code)
	assert.Contains(t, scrape.Body.String(), "http_requests_total")
	assert.Contains(t, scrape.Body.String(), `http_route="/ping"`)
}

func TestRecorderExcludedPaths(t *testing.T) {
	t.Parallel()
	rec, err := NewRecorder(WithExcludedPaths("/healthz"))
	require.NoError(t, err)
	defer rec.Shutdown(context.Background()) //nolint:errcheck

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	_, state := rec.OnRequestStart(req.Context(), req)
	assert.Nil(t, state, "excluded paths produce no request state")

	// OnRequestEnd tolerates the nil state.
	rec.OnRequestEnd(req.Context(), state, &responseWriter{}, "/healthz")
}

func TestRecorderSentinelPatternsForLookupFailures(t *testing.T) {
	t.Parallel()
	rec, err := NewRecorder()
	require.NoError(t, err)
	defer rec.Shutdown(context.Background()) //nolint:errcheck

	d := MustNew(WithObservability(rec))
	_, err = d.Handle(http.MethodGet, "/only", func(c *Context) { c.Status(http.StatusOK) })
	require.NoError(t, err)
	require.NoError(t, d.Build())

	perform(d, http.MethodGet, "/missing")
	perform(d, http.MethodPost, "/only")

	scrape := httptest.NewRecorder()
	rec.MetricsHandler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	assert.Contains(t, body, `http_route="_not_found"`)
	assert.Contains(t, body, `http_route="_method_not_allowed"`)
}

func TestRecorderAccessLog(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	rec, err := NewRecorder(
		WithAccessLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
		WithServiceName("orders"),
	)
	require.NoError(t, err)
	defer rec.Shutdown(context.Background()) //nolint:errcheck

	d := MustNew(WithObservability(rec))
	_, err = d.Handle(http.MethodGet, "/orders/:id", func(c *Context) {
		_ = c.String(http.StatusOK, "ok")
	})
	require.NoError(t, err)
	require.NoError(t, d.Build())

	perform(d, http.MethodGet, "/orders/42")

	line := buf.String()
	assert.Contains(t, line, `"route":"/orders/:id"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"service":"orders"`)
}

func TestRecorderMetricsHandlerWithoutPrometheus(t *testing.T) {
	t.Parallel()
	rec, err := NewRecorder(WithMetricsProvider(StdoutProvider))
	require.NoError(t, err)
	defer rec.Shutdown(context.Background()) //nolint:errcheck

	scrape := httptest.NewRecorder()
	rec.MetricsHandler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, scrape.Code)
}
