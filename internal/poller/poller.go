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

// Package poller implements the periodic GetPendingUpdates emitter (C7).
package poller

import (
	"context"
	"time"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

// Poller emits GetPendingUpdates on a fixed cadence. Missed ticks are
// dropped, never queued (spec.md §4.7).
type Poller struct {
	interval time.Duration
}

// New builds a Poller with the given cadence.
func New(interval time.Duration) *Poller {
	return &Poller{interval: interval}
}

// Run emits GetPendingUpdates every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, out chan<- datatype.Command) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case out <- datatype.GetPendingUpdates{}:
			case <-ctx.Done():
				return
			}
		}
	}
}
