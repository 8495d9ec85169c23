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

package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

func TestRegistry_FanOutPreservesOrder(t *testing.T) {
	inlet := make(chan datatype.Event)
	r := New(inlet)

	outA := r.Subscribe()
	outB := r.Subscribe()

	done := make(chan struct{})
	go func() {
		r.Start()
		close(done)
	}()

	events := []datatype.Event{
		datatype.NewUpdateAvailable{RequestID: "1"},
		datatype.NewUpdateAvailable{RequestID: "2"},
		datatype.NewUpdateAvailable{RequestID: "3"},
	}
	for _, e := range events {
		inlet <- e
	}
	close(inlet)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("registry did not shut down")
	}

	for _, outlet := range []<-chan datatype.Event{outA, outB} {
		var got []datatype.Event
		for e := range outlet {
			got = append(got, e)
		}
		require.Len(t, got, len(events))
		for i, e := range events {
			assert.Equal(t, e, got[i])
		}
	}
}

func TestRegistry_ClosingInletClosesOutlets(t *testing.T) {
	inlet := make(chan datatype.Event)
	r := New(inlet)
	outlet := r.Subscribe()

	go r.Start()
	close(inlet)

	_, ok := <-outlet
	assert.False(t, ok)
}
