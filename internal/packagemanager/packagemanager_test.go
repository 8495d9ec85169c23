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

package packagemanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/advancedtelematic/ota-agent/internal/datatype"
)

func TestFile_InstallFailure(t *testing.T) {
	f := File{Succeeds: false}
	code, text := f.Install(context.Background(), "/irrelevant")
	assert.Equal(t, datatype.ResultInstallFailed, code)
	assert.Equal(t, "failed", text)
}

func TestFile_InstallSuccess(t *testing.T) {
	f := File{Succeeds: true}
	code, text := f.Install(context.Background(), "/irrelevant")
	assert.Equal(t, datatype.ResultOK, code)
	assert.Equal(t, "", text)
}

func TestFile_Extension(t *testing.T) {
	assert.Equal(t, "deb", Dpkg{}.Extension())
	assert.Equal(t, "rpm", Rpm{}.Extension())
	assert.Equal(t, "spkg", File{}.Extension())
}
