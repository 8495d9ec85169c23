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

// Package config provides configuration management for the OTA agent.
//
// Configuration loading priority (highest to lowest):
// 1. Command line arguments
// 2. Environment variables
// 3. Configuration file (TOML)
// 4. Default values
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultConfigPathEnv     = "OTA_PLUS_CLIENT_CFG"
	DefaultConfigPath        = "/opt/ats/ota/etc/ota.toml"
	DefaultPollingIntervalS  = 10
	DefaultPackagesDir       = "/opt/ats/ota/packages"
	DefaultPackageManagerTag = "dpkg"
)

// Config is the immutable, read-once-at-startup configuration shared
// read-only by every component.
type Config struct {
	Auth AuthConfig `mapstructure:"auth"`
	Ota  OtaConfig  `mapstructure:"ota"`
	Test TestConfig `mapstructure:"test"`
}

// AuthConfig holds the OAuth2 client-credentials used against the auth server.
type AuthConfig struct {
	ServerURL string `mapstructure:"server_url"`
	ClientID  string `mapstructure:"client_id"`
	Secret    string `mapstructure:"secret"`
}

// OtaConfig holds the OTA backend connection and package-manager selection.
type OtaConfig struct {
	ServerURL          string `mapstructure:"server_url"`
	VIN                string `mapstructure:"vin"`
	PackagesDir        string `mapstructure:"packages_dir"`
	PollingIntervalSec int    `mapstructure:"polling_interval_sec"`

	// PackageManager is one of "dpkg", "rpm", or a File{filename} override
	// identified by any other non-empty string naming the success-flag file.
	PackageManager string `mapstructure:"package_manager"`
	// FileSucceeds only applies when PackageManager selects the File test
	// variant; it is the install outcome used when the companion file named
	// by PackageManager cannot be read. A readable file decides instead:
	// install succeeds iff its trimmed contents are "true".
	FileSucceeds bool `mapstructure:"file_succeeds"`
}

// TestConfig holds flags only meaningful for local/manual testing.
type TestConfig struct {
	Looping           bool `mapstructure:"looping"`
	FakePackageManager bool `mapstructure:"fake_package_manager"`
}

// Default returns the all-defaults configuration; equivalent to loading a
// missing file.
func Default() *Config {
	return &Config{
		Auth: AuthConfig{},
		Ota: OtaConfig{
			PackagesDir:        DefaultPackagesDir,
			PollingIntervalSec: DefaultPollingIntervalS,
			PackageManager:     DefaultPackageManagerTag,
		},
		Test: TestConfig{},
	}
}

// Load loads configuration from a TOML file, overlaid by environment
// variables. A missing file is equivalent to all-defaults; an unparseable
// file is fatal.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)

	if configPath == "" {
		configPath = os.Getenv(DefaultConfigPathEnv)
	}
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	v.SetConfigFile(configPath)

	v.SetEnvPrefix("OTA_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			if _, statErr := os.Stat(configPath); statErr == nil {
				return nil, fmt.Errorf("config: failed to parse %s: %w", configPath, err)
			}
		}
		// file doesn't exist: fall through to defaults-only config
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("auth.server_url", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.secret", "")

	v.SetDefault("ota.server_url", "")
	v.SetDefault("ota.vin", "")
	v.SetDefault("ota.packages_dir", DefaultPackagesDir)
	v.SetDefault("ota.polling_interval_sec", DefaultPollingIntervalS)
	v.SetDefault("ota.package_manager", DefaultPackageManagerTag)
	v.SetDefault("ota.file_succeeds", false)

	v.SetDefault("test.looping", false)
	v.SetDefault("test.fake_package_manager", false)
}

// Validate checks the configuration for obviously invalid values. It does
// not attempt network or filesystem validation.
func (c *Config) Validate() error {
	if c.Ota.PollingIntervalSec <= 0 {
		return errors.New("ota.polling_interval_sec must be positive")
	}
	if c.Ota.PackagesDir == "" {
		return errors.New("ota.packages_dir is required")
	}
	if c.Ota.PackageManager == "" {
		return errors.New("ota.package_manager is required")
	}
	return nil
}

// String returns a debug-oriented representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Ota.VIN: %s, Ota.ServerURL: %s, Ota.PackageManager: %s, Ota.PollingIntervalSec: %d}",
		c.Ota.VIN, c.Ota.ServerURL, c.Ota.PackageManager, c.Ota.PollingIntervalSec,
	)
}

// RenderDefault serializes the all-defaults configuration to TOML text.
func RenderDefault() ([]byte, error) {
	return Default().ToTOML()
}

// ToTOML serializes the configuration to TOML format.
func (c *Config) ToTOML() ([]byte, error) {
	tomlContent := fmt.Sprintf(`[auth]
server_url = %q
client_id = %q
secret = %q

[ota]
server_url = %q
vin = %q
packages_dir = %q
polling_interval_sec = %d
package_manager = %q
file_succeeds = %t

[test]
looping = %t
fake_package_manager = %t
`,
		c.Auth.ServerURL, c.Auth.ClientID, c.Auth.Secret,
		c.Ota.ServerURL, c.Ota.VIN, c.Ota.PackagesDir, c.Ota.PollingIntervalSec, c.Ota.PackageManager, c.Ota.FileSucceeds,
		c.Test.Looping, c.Test.FakePackageManager,
	)
	return []byte(tomlContent), nil
}

// LoadFromBytes loads configuration from TOML bytes, defaults-first.
func LoadFromBytes(tomlData []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadConfig(strings.NewReader(string(tomlData))); err != nil {
		return nil, fmt.Errorf("config: failed to parse: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	return &cfg, nil
}

// Equal compares two configs field by field.
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Auth == other.Auth && c.Ota == other.Ota && c.Test == other.Test
}

// ApplyOverrides applies CLI-flag overrides on top of an already loaded
// config, matching the precedence documented in the package doc comment
// (command line arguments outrank everything else).
func (c *Config) ApplyOverrides(overrides map[string]string) {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		switch key {
		case "auth-server":
			c.Auth.ServerURL = value
		case "auth-client-id":
			c.Auth.ClientID = value
		case "auth-secret":
			c.Auth.Secret = value
		case "ota-server":
			c.Ota.ServerURL = value
		case "ota-vin":
			c.Ota.VIN = value
		case "ota-packages-dir":
			c.Ota.PackagesDir = value
		case "ota-package-manager":
			c.Ota.PackageManager = value
		}
	}
}
