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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		wantErr  bool
		kinds    []segmentKind
	}{
		{name: "root", template: "/", kinds: nil},
		{name: "static", template: "/users/all", kinds: []segmentKind{segStatic, segStatic}},
		{name: "required", template: "/users/:id", kinds: []segmentKind{segStatic, segRequired}},
		{name: "trailing optional", template: "/users/:id?", kinds: []segmentKind{segStatic, segOptional}},
		{name: "two optionals", template: "/a/:b?/:c?", kinds: []segmentKind{segStatic, segOptional, segOptional}},
		{name: "wildcard", template: "/files/*", kinds: []segmentKind{segStatic, segWildcard}},
		{name: "static after optional", template: "/users/:id?/extra", wantErr: true},
		{name: "required after optional", template: "/users/:id?/:name", wantErr: true},
		{name: "wildcard not last", template: "/files/*/x", wantErr: true},
		{name: "wildcard after optional", template: "/files/:v?/*", wantErr: true},
		{name: "unnamed parameter", template: "/users/:", wantErr: true},
		{name: "unnamed optional", template: "/users/:?", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			segs, err := compileTemplate(tt.template)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedTemplate)
				return
			}
			require.NoError(t, err)
			kinds := make([]segmentKind, 0, len(segs))
			for _, s := range segs {
				kinds = append(kinds, s.kind)
			}
			if tt.kinds == nil {
				assert.Empty(t, kinds)
			} else {
				assert.Equal(t, tt.kinds, kinds)
			}
		})
	}
}

func TestMatchSegments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		path     string
		ok       bool
		params   map[string]string
	}{
		{name: "static exact", template: "/users/all", path: "/users/all", ok: true, params: map[string]string{}},
		{name: "static mismatch", template: "/users/all", path: "/users/one", ok: false},
		{name: "required bound", template: "/users/:id", path: "/users/5", ok: true, params: map[string]string{"id": "5"}},
		{name: "required missing", template: "/users/:id", path: "/users", ok: false},
		{name: "optional present", template: "/users/:id?", path: "/users/5", ok: true, params: map[string]string{"id": "5"}},
		{name: "optional absent", template: "/users/:id?", path: "/users", ok: true, params: map[string]string{}},
		{name: "wildcard multi", template: "/files/*", path: "/files/a/b/c", ok: true, params: map[string]string{WildcardParam: "a/b/c"}},
		{name: "wildcard empty", template: "/files/*", path: "/files", ok: true, params: map[string]string{WildcardParam: ""}},
		{name: "trailing unconsumed", template: "/users/:id", path: "/users/5/extra", ok: false},
		{name: "root", template: "/", path: "/", ok: true, params: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			segs, err := compileTemplate(tt.template)
			require.NoError(t, err)

			res, ok := matchSegments(segs, splitPath(tt.path))
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			got := make(map[string]string, len(res.params))
			for _, p := range res.params {
				got[p.key] = p.value
			}
			assert.Equal(t, tt.params, got)
		})
	}
}

func TestMoreSpecific(t *testing.T) {
	t.Parallel()

	match := func(template, path string) matchResult {
		segs, err := compileTemplate(template)
		require.NoError(t, err)
		res, ok := matchSegments(segs, splitPath(path))
		require.True(t, ok, "template %q must match %q", template, path)
		return res
	}

	t.Run("static beats required", func(t *testing.T) {
		t.Parallel()
		assert.True(t, moreSpecific(match("/static", "/static"), match("/:id", "/static")))
		assert.False(t, moreSpecific(match("/:id", "/static"), match("/static", "/static")))
	})

	t.Run("required beats optional", func(t *testing.T) {
		t.Parallel()
		assert.True(t, moreSpecific(match("/u/:id", "/u/5"), match("/u/:id?", "/u/5")))
	})

	t.Run("anything beats wildcard", func(t *testing.T) {
		t.Parallel()
		assert.True(t, moreSpecific(match("/f/:name", "/f/x"), match("/f/*", "/f/x")))
	})

	t.Run("fewer loose segments wins", func(t *testing.T) {
		t.Parallel()
		a := match("/u/:id", "/u/5")
		b := match("/u/:id?", "/u/5")
		assert.True(t, moreSpecific(a, b))
	})

	t.Run("equal results are not more specific", func(t *testing.T) {
		t.Parallel()
		a := match("/u/:id", "/u/5")
		b := match("/u/:name", "/u/5")
		assert.False(t, moreSpecific(a, b))
		assert.False(t, moreSpecific(b, a))
	})
}
