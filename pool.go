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
	"net/http"
	"sync"
)

// contextPool reuses Context instances across requests. Contexts are reset
// before release; see the retention rules on Context.
type contextPool struct {
	pool sync.Pool
}

func newContextPool(checkCancellation bool) *contextPool {
	return &contextPool{
		pool: sync.Pool{
			New: func() any {
				return &Context{index: -1, checkCancellation: checkCancellation}
			},
		},
	}
}

// acquire returns a context bound to the given request/response pair.
func (p *contextPool) acquire(w http.ResponseWriter, req *http.Request) *Context {
	c := p.pool.Get().(*Context)
	c.begin(w, req)
	return c
}

// release resets the context and returns it to the pool.
func (p *contextPool) release(c *Context) {
	c.reset()
	p.pool.Put(c)
}
