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
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStore struct{ id int }

type testService struct{ store *testStore }

// storeDescriptor returns a descriptor counting constructions.
func storeDescriptor(constructions *atomic.Int32) UnitDescriptor {
	return UnitDescriptor{
		Type: "Store",
		New: func(...any) (any, error) {
			constructions.Add(1)
			return &testStore{id: 1}, nil
		},
	}
}

func TestGraphResolveCachesSingleton(t *testing.T) {
	t.Parallel()
	var constructions atomic.Int32

	g := NewGraph()
	require.NoError(t, g.Register(storeDescriptor(&constructions)))
	require.NoError(t, g.Register(UnitDescriptor{
		Type: "Service",
		Deps: []string{"Store"},
		New: func(deps ...any) (any, error) {
			return &testService{store: deps[0].(*testStore)}, nil
		},
	}))

	first, err := g.Resolve("Service")
	require.NoError(t, err)
	second, err := g.Resolve("Service")
	require.NoError(t, err)

	assert.Same(t, first, second, "resolve must return the same instance every call")
	assert.Equal(t, int32(1), constructions.Load(), "dependency constructed exactly once")

	store, err := g.Resolve("Store")
	require.NoError(t, err)
	assert.Same(t, first.(*testService).store, store, "service holds the cached store singleton")
}

func TestGraphConcurrentResolveConstructsOnce(t *testing.T) {
	t.Parallel()
	var constructions atomic.Int32

	g := NewGraph()
	require.NoError(t, g.Register(storeDescriptor(&constructions)))

	const goroutines = 32
	results := make([]any, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := g.Resolve("Store")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), constructions.Load(), "at most one construction under concurrent resolution")
	for _, v := range results {
		assert.Same(t, results[0], v)
	}
}

func TestGraphCircularDependency(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	require.NoError(t, g.Register(UnitDescriptor{
		Type: "A", Deps: []string{"B"},
		New: func(...any) (any, error) { return "a", nil },
	}))
	require.NoError(t, g.Register(UnitDescriptor{
		Type: "B", Deps: []string{"A"},
		New: func(...any) (any, error) { return "b", nil },
	}))

	_, err := g.Resolve("A")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircularDependency)

	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A", "B", "A"}, cycleErr.Cycle, "cycle names both participants")
}

func TestGraphUnresolvedDependency(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	require.NoError(t, g.Register(UnitDescriptor{
		Type: "Service", Deps: []string{"Missing"},
		New: func(...any) (any, error) { return "s", nil },
	}))

	_, err := g.Resolve("Service")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedDependency)

	var missing *UnresolvedDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Missing", missing.Type)
	assert.Equal(t, "Service", missing.RequiredBy, "error names the requester")

	// Resolving an unregistered type directly names no requester.
	_, err = g.Resolve("Nowhere")
	require.ErrorAs(t, err, &missing)
	assert.Empty(t, missing.RequiredBy)
}

func TestGraphNoInjectableConstructor(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	require.NoError(t, g.Register(UnitDescriptor{Type: "Broken", Deps: []string{"Other"}}))
	require.NoError(t, g.Register(UnitDescriptor{Type: "Other", Instance: "other"}))

	_, err := g.Resolve("Broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoInjectableConstructor)
}

func TestGraphDuplicateRegistration(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	desc := UnitDescriptor{Type: "Store", Instance: &testStore{}}
	require.NoError(t, g.Register(desc))

	err := g.Register(desc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateUnit)
}

func TestGraphRejectsAmbiguousDescriptor(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	err := g.Register(UnitDescriptor{
		Type:     "Ambiguous",
		New:      func(...any) (any, error) { return &testStore{}, nil },
		Instance: &testStore{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of New or Instance")
	assert.Equal(t, 0, g.Len())
}

func TestGraphResolveAllFailsFast(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	require.NoError(t, g.Register(UnitDescriptor{Type: "Ok", Instance: 1}))
	require.NoError(t, g.Register(UnitDescriptor{
		Type: "Bad", Deps: []string{"Missing"},
		New: func(...any) (any, error) { return nil, nil },
	}))

	err := g.ResolveAll()
	assert.ErrorIs(t, err, ErrUnresolvedDependency)
}

func TestGraphConstructorErrorWrapped(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	g := NewGraph()
	require.NoError(t, g.Register(UnitDescriptor{
		Type: "Flaky",
		New:  func(...any) (any, error) { return nil, boom },
	}))

	_, err := g.Resolve("Flaky")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Flaky")
}

func TestGraphInstanceDescriptor(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	store := &testStore{id: 42}
	require.NoError(t, g.Register(UnitDescriptor{Type: "Store", Instance: store}))

	v, err := g.Resolve("Store")
	require.NoError(t, err)
	assert.Same(t, store, v)
	assert.Equal(t, 1, g.Len())
}
