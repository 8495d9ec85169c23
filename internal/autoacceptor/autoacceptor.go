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

// Package autoacceptor implements the policy subscriber (C6): it turns
// NewUpdateAvailable events into AcceptUpdate commands. Stateless and
// restartable.
package autoacceptor

import "github.com/advancedtelematic/ota-agent/internal/datatype"

// Policy decides whether an announced update should be auto-accepted. The
// source's autoacceptor is unconditional; per spec.md §9's open question,
// this is exposed as an injectable predicate while AcceptAll preserves the
// original accept-all default.
type Policy func(datatype.PackageId) bool

// AcceptAll is the default policy: every announced update is accepted.
func AcceptAll(datatype.PackageId) bool { return true }

// Autoacceptor reads events and writes commands.
type Autoacceptor struct {
	policy Policy
}

// New builds an Autoacceptor with the given policy. A nil policy defaults
// to AcceptAll.
func New(policy Policy) *Autoacceptor {
	if policy == nil {
		policy = AcceptAll
	}
	return &Autoacceptor{policy: policy}
}

// NewDefault builds the accept-all Autoacceptor actually wired by
// cmd/ota-agent.
func NewDefault() *Autoacceptor {
	return New(AcceptAll)
}

// Run consumes events until the channel is closed, writing AcceptUpdate
// commands to out. packageOf maps a request id to the PackageId the policy
// should evaluate; an id with no known PackageId is always accepted,
// matching the source's unconditional behavior for updates observed only
// by request id.
func (a *Autoacceptor) Run(events <-chan datatype.Event, out chan<- datatype.Command, packageOf func(requestID string) (datatype.PackageId, bool)) {
	for event := range events {
		a.dispatch(event, out, packageOf)
	}
}

func (a *Autoacceptor) dispatch(event datatype.Event, out chan<- datatype.Command, packageOf func(string) (datatype.PackageId, bool)) {
	switch e := event.(type) {
	case datatype.NewUpdateAvailable:
		if pkg, ok := packageOf(e.RequestID); ok && !a.policy(pkg) {
			return
		}
		out <- datatype.AcceptUpdate{RequestID: e.RequestID}
	case datatype.Batch:
		for _, inner := range e.Events {
			a.dispatch(inner, out, packageOf)
		}
	}
}
