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

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultPackagesDir, cfg.Ota.PackagesDir)
	assert.Equal(t, DefaultPollingIntervalS, cfg.Ota.PollingIntervalSec)
	assert.Equal(t, DefaultPackageManagerTag, cfg.Ota.PackageManager)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileIsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir() + "/missing.toml")
	require.NoError(t, err)
	assert.True(t, cfg.Equal(Default()))
}

func TestLoad_UnparseableFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.toml"
	require.NoError(t, os.WriteFile(path, []byte("not { valid toml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFromBytes_Sections(t *testing.T) {
	data := []byte(`
[auth]
server_url = "https://auth.example.com"
client_id = "abc"
secret = "shh"

[ota]
server_url = "https://ota.example.com"
vin = "VIN123"
packages_dir = "/tmp/pkgs"
polling_interval_sec = 30
package_manager = "rpm"
file_succeeds = true

[test]
looping = true
fake_package_manager = false
`)
	cfg, err := LoadFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com", cfg.Auth.ServerURL)
	assert.Equal(t, "VIN123", cfg.Ota.VIN)
	assert.Equal(t, 30, cfg.Ota.PollingIntervalSec)
	assert.Equal(t, "rpm", cfg.Ota.PackageManager)
	assert.True(t, cfg.Test.Looping)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Ota.PollingIntervalSec = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Ota.PackagesDir = ""
	assert.Error(t, cfg.Validate())
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(map[string]string{
		"ota-vin":    "VINOVERRIDE",
		"auth-server": "https://override.example.com",
	})
	assert.Equal(t, "VINOVERRIDE", cfg.Ota.VIN)
	assert.Equal(t, "https://override.example.com", cfg.Auth.ServerURL)
}
