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
	"fmt"
	"sync"
	"sync/atomic"
)

// Graph resolves declared units into live singleton instances.
//
// Units are registered as flat UnitDescriptor records and constructed
// lazily on first resolution, depth-first through their declared
// dependencies. Each unit is constructed at most once; the instance is
// cached for the graph's lifetime.
//
// Resolution failures are configuration errors and surface as
// CircularDependencyError, UnresolvedDependencyError, or
// NoInjectableConstructorError. ResolveAll resolves every registered unit
// eagerly so misconfiguration is caught at startup rather than under
// traffic.
//
// Graph is safe for concurrent use. Concurrent Resolve calls for the same
// type serialize so construction happens exactly once.
//
// Example:
//
//	g := dispatch.NewGraph()
//	_ = g.Register(dispatch.UnitDescriptor{Type: "Store", New: newStore})
//	_ = g.Register(dispatch.UnitDescriptor{
//	    Type: "UserService",
//	    Deps: []string{"Store"},
//	    New: func(deps ...any) (any, error) {
//	        return &UserService{store: deps[0].(*Store)}, nil
//	    },
//	})
//	if err := g.ResolveAll(); err != nil {
//	    log.Fatal(err)
//	}
type Graph struct {
	mu      sync.Mutex // serializes construction
	entries map[string]*unitEntry
	order   []string // registration order, used by ResolveAll
}

// unitEntry tracks one registered unit and its cached instance.
type unitEntry struct {
	desc  UnitDescriptor
	built atomic.Bool
	value any
}

// NewGraph creates an empty resolution graph.
func NewGraph() *Graph {
	return &Graph{entries: make(map[string]*unitEntry)}
}

// Register adds a unit descriptor to the graph. It returns ErrDuplicateUnit
// if a descriptor with the same type identity is already registered, and an
// error if the descriptor has no type identity or sets both New and
// Instance.
func (g *Graph) Register(desc UnitDescriptor) error {
	if desc.Type == "" {
		return fmt.Errorf("unit descriptor has empty type identity")
	}
	if desc.New != nil && desc.Instance != nil {
		return fmt.Errorf("unit %q: exactly one of New or Instance must be set", desc.Type)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.entries[desc.Type]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateUnit, desc.Type)
	}
	g.entries[desc.Type] = &unitEntry{desc: desc}
	g.order = append(g.order, desc.Type)
	return nil
}

// Resolve returns the singleton instance for the given type identity,
// constructing it (and, recursively, its declared dependencies) on first
// use.
func (g *Graph) Resolve(typ string) (any, error) {
	g.mu.Lock()
	e, ok := g.entries[typ]
	g.mu.Unlock()
	if ok && e.built.Load() {
		return e.value, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolveLocked(typ, nil)
}

// ResolveAll eagerly resolves every registered unit in registration order.
// It returns the first resolution error encountered, making startup fail
// fast on misconfiguration.
func (g *Graph) ResolveAll() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, typ := range g.order {
		if _, err := g.resolveLocked(typ, nil); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of registered units.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// resolveLocked performs depth-first resolution under g.mu. The path slice
// is the in-progress set for the current resolution chain; re-entering a
// type already on it is a cycle.
func (g *Graph) resolveLocked(typ string, path []string) (any, error) {
	e, ok := g.entries[typ]
	if !ok {
		missing := &UnresolvedDependencyError{Type: typ}
		if len(path) > 0 {
			missing.RequiredBy = path[len(path)-1]
		}
		return nil, missing
	}
	if e.built.Load() {
		return e.value, nil
	}

	for i, p := range path {
		if p == typ {
			cycle := append(append([]string{}, path[i:]...), typ)
			return nil, &CircularDependencyError{Cycle: cycle}
		}
	}
	path = append(path, typ)

	if e.desc.Instance != nil {
		e.value = e.desc.Instance
		e.built.Store(true)
		return e.value, nil
	}
	if e.desc.New == nil {
		return nil, &NoInjectableConstructorError{Type: typ}
	}

	deps := make([]any, len(e.desc.Deps))
	for i, dep := range e.desc.Deps {
		v, err := g.resolveLocked(dep, path)
		if err != nil {
			return nil, err
		}
		deps[i] = v
	}

	v, err := e.desc.New(deps...)
	if err != nil {
		return nil, fmt.Errorf("constructing unit %q: %w", typ, err)
	}
	e.value = v
	e.built.Store(true)
	return v, nil
}
