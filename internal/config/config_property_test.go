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
	"testing"

	"pgregory.net/rapid"
)

// TestProperty_DefaultConfigRoundTrip asserts parse_config(render_default())
// == default_config, independent of any other property in this file.
func TestProperty_DefaultConfigRoundTrip(t *testing.T) {
	rendered, err := RenderDefault()
	if err != nil {
		t.Fatalf("RenderDefault failed: %v", err)
	}
	parsed, err := LoadFromBytes(rendered)
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if !parsed.Equal(Default()) {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", parsed, Default())
	}
}

func generateValidConfig(rt *rapid.T) *Config {
	pkgMgr := rapid.SampledFrom([]string{"dpkg", "rpm", "custom-file-manager"}).Draw(rt, "packageManager")
	return &Config{
		Auth: AuthConfig{
			ServerURL: rapid.StringMatching(`https://[a-z]{3,10}\.example\.com`).Draw(rt, "authServerURL"),
			ClientID:  rapid.StringMatching(`[a-zA-Z0-9]{4,16}`).Draw(rt, "clientID"),
			Secret:    rapid.StringMatching(`[a-zA-Z0-9]{8,32}`).Draw(rt, "secret"),
		},
		Ota: OtaConfig{
			ServerURL:          rapid.StringMatching(`https://[a-z]{3,10}\.example\.com`).Draw(rt, "otaServerURL"),
			VIN:                rapid.StringMatching(`[A-Z0-9]{11,17}`).Draw(rt, "vin"),
			PackagesDir:        "/" + rapid.StringMatching(`[a-z]{3,10}(/[a-z]{3,10}){0,3}`).Draw(rt, "packagesDir"),
			PollingIntervalSec: rapid.IntRange(1, 86400).Draw(rt, "pollingInterval"),
			PackageManager:     pkgMgr,
			FileSucceeds:       rapid.Bool().Draw(rt, "fileSucceeds"),
		},
		Test: TestConfig{
			Looping:            rapid.Bool().Draw(rt, "looping"),
			FakePackageManager: rapid.Bool().Draw(rt, "fakePackageManager"),
		},
	}
}

// TestProperty_ConfigTOMLRoundTrip: for any generated valid config,
// parsing its own rendered TOML yields an equal config.
func TestProperty_ConfigTOMLRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := generateValidConfig(rt)

		rendered, err := cfg.ToTOML()
		if err != nil {
			rt.Fatalf("ToTOML failed: %v", err)
		}

		parsed, err := LoadFromBytes(rendered)
		if err != nil {
			rt.Fatalf("LoadFromBytes failed: %v", err)
		}

		if !parsed.Equal(cfg) {
			rt.Fatalf("round-trip mismatch: got %+v, want %+v", parsed, cfg)
		}
	})
}

// TestProperty_LoadMissingFileYieldsDefaults: load_config of a nonexistent
// path yields the default config.
func TestProperty_LoadMissingFileYieldsDefaults(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		suffix := rapid.StringMatching(`[a-z0-9]{6,12}`).Draw(rt, "suffix")
		cfg, err := Load(t.TempDir() + "/does-not-exist-" + suffix + ".toml")
		if err != nil {
			rt.Fatalf("Load of missing file returned error: %v", err)
		}
		if !cfg.Equal(Default()) {
			rt.Fatalf("expected default config, got %+v", cfg)
		}
	})
}
