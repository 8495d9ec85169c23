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

package datatype

// Command is the closed set of values gateways, the poller, and the
// autoacceptor feed into the interpreter's command channel.
type Command interface {
	isCommand()
}

// GetPendingUpdates asks the interpreter to fetch the current update list
// from the OTA backend and announce any not already in flight.
type GetPendingUpdates struct{}

func (GetPendingUpdates) isCommand() {}

// AcceptUpdate drives a single PendingUpdate through download, assembly,
// verification, install, and report.
type AcceptUpdate struct {
	RequestID string
}

func (AcceptUpdate) isCommand() {}

// PostInstalledPackages queries the local package manager and reports the
// result to the OTA backend; it emits no event.
type PostInstalledPackages struct{}

func (PostInstalledPackages) isCommand() {}

// ListInstalledPackages queries the local package manager and emits
// FoundInstalledPackages.
type ListInstalledPackages struct{}

func (ListInstalledPackages) isCommand() {}

// Shutdown drains in-flight transfers and terminates the interpreter loop.
type Shutdown struct{}

func (Shutdown) isCommand() {}
