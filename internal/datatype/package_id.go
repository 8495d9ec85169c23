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

// Package datatype holds the wire and in-memory data model shared by every
// OTA agent component: package identities, pending updates, update state,
// install reports, access tokens, and the Event/Command
// taxonomy that flows across the pub/sub bus.
package datatype

import "fmt"

// PackageId identifies a package by name and version. Both fields are
// expected to be non-empty printable strings; equality is structural.
type PackageId struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// String renders the canonical "{name}-{version}" form used for directory
// and file naming throughout Transfer.
func (p PackageId) String() string {
	return fmt.Sprintf("%s-%s", p.Name, p.Version)
}

// Equal reports whether two package identities are structurally identical.
func (p PackageId) Equal(other PackageId) bool {
	return p.Name == other.Name && p.Version == other.Version
}
