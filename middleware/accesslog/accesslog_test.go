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

package accesslog

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
)

func newDispatcher(t *testing.T, mw dispatch.HandlerFunc) *dispatch.Dispatcher {
	t.Helper()
	d := dispatch.MustNew()
	require.NoError(t, d.Use(mw))
	_, err := d.Handle(http.MethodGet, "/orders/:id", func(c *dispatch.Context) {
		_ = c.String(http.StatusCreated, "created")
	})
	require.NoError(t, err)
	_, err = d.Handle(http.MethodGet, "/healthz", func(c *dispatch.Context) {
		c.Status(http.StatusOK)
	})
	require.NoError(t, err)
	require.NoError(t, d.Build())
	return d
}

func TestAccessLogLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	d := newDispatcher(t, New(WithLogger(slog.New(slog.NewJSONHandler(&buf, nil)))))

	d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/42", nil))

	line := buf.String()
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"path":"/orders/42"`)
	assert.Contains(t, line, `"route":"/orders/:id"`)
	assert.Contains(t, line, `"status":201`)
	assert.Contains(t, line, `"bytes":7`)
}

func TestAccessLogSkipPaths(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	d := newDispatcher(t, New(
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
		WithSkipPaths("/healthz"),
	))

	d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, buf.String())

	d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/1", nil))
	assert.NotEmpty(t, buf.String())
}
