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

// Package dispatch is the runtime core of a declarative request-handling
// framework. It turns flat descriptor records (controller units with
// declared dependencies, routes with path templates and middleware lists)
// into a disambiguated, ordered execution plan per request.
//
// Three subsystems cooperate:
//
//   - Graph builds live singleton instances from declared dependency
//     lists, failing fast on cycles, unregistered dependencies, and
//     units without a constructor.
//   - Router compiles path templates of static, required (":name"),
//     optional (":name?") and wildcard ("*") segments and picks the most
//     specific match per request deterministically.
//   - Context runs the composed middleware chain with an explicit cursor:
//     middleware call Next to continue, and not calling it terminates the
//     chain. Uncaught failures flow to the ExceptionRegistry, which finds
//     the most specific handler by walking the error's wrap chain.
//
// The Dispatcher composes the three and implements http.Handler.
// Transport framing, body binding, and validation are deliberately
// external: descriptors arrive pre-extracted, and the dispatcher only
// consumes flat lists.
//
// # Quick start
//
//	descriptors := &dispatch.Descriptors{
//	    UnitList: []dispatch.UnitDescriptor{
//	        {Type: "Greeter", New: func(...any) (any, error) { return &Greeter{}, nil }},
//	    },
//	    RouteList: []dispatch.RouteDescriptor{
//	        {
//	            Method: "GET", Path: "/hello/:name", Unit: "Greeter",
//	            Handler: func(u any) dispatch.HandlerFunc {
//	                g := u.(*Greeter)
//	                return func(c *dispatch.Context) {
//	                    c.String(http.StatusOK, g.Greet(c.Param("name")))
//	                }
//	            },
//	        },
//	    },
//	}
//
//	d := dispatch.MustNew(dispatch.WithLogger(slog.Default()))
//	if err := d.Load(descriptors); err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(d.Serve(":8080"))
//
// # Concurrency
//
// Requests are handled concurrently, one goroutine per request; within a
// request execution is strictly sequential. The route table is read-only
// after Build, so matching takes no locks. Contexts are pooled and
// exclusive to their request. Cancellation is cooperative: the chain
// checks the request context between handlers and never interrupts a
// running handler preemptively.
package dispatch
