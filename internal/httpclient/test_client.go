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

package httpclient

import (
	"context"
	"fmt"
	"sync"
)

// TestHttpClient is an in-memory HttpClient double that replays a queue of
// canned response bodies, one per Send call, or returns an error once the
// queue is exhausted (spec.md §9's "dynamic dispatch" capability-set note).
type TestHttpClient struct {
	mu       sync.Mutex
	replies  [][]byte
	sent     []string
}

// NewTestHttpClient builds a TestHttpClient that replays replies in order.
func NewTestHttpClient(replies ...string) *TestHttpClient {
	bodies := make([][]byte, len(replies))
	for i, r := range replies {
		bodies[i] = []byte(r)
	}
	return &TestHttpClient{replies: bodies}
}

// Send implements HttpClient.
func (c *TestHttpClient) Send(_ context.Context, method, requestURL string, _ []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, method+" "+requestURL)
	if len(c.replies) == 0 {
		return nil, fmt.Errorf("http client error: %s", requestURL)
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

// Requests returns the "METHOD URL" strings sent so far, for assertions.
func (c *TestHttpClient) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}
