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

// Package dbus is a placeholder for the RVI/DBus chunked-transfer gateway.
// That transport is an external collaborator specified only by interface;
// this module does not implement it.
package dbus

import "errors"

// ErrNotImplemented is returned by New. The RVI/DBus gateway is out of
// scope for this agent; it is a separate system component addressed only
// through the chunked-transfer wire format internal/transfer implements.
var ErrNotImplemented = errors.New("dbus gateway: not implemented, external collaborator")

// Gateway is an unusable placeholder; New always fails.
type Gateway struct{}

// New always returns ErrNotImplemented.
func New() (*Gateway, error) {
	return nil, ErrNotImplemented
}
