// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variable overrides.
// GLOWD_WIFI_SSID overrides wifi.ssid, GLOWD_SYSTEM_LOG_LEVEL overrides
// system.log_level, and so on.
const EnvPrefix = "GLOWD_"

// ErrNotFound is returned by Load when the config file does not exist.
// Callers treat it as a warning and continue with defaults; a missing
// config file must never stop the appliance from booting.
var ErrNotFound = errors.New("config file not found")

// Load builds the configuration in three layers, highest priority last:
// struct defaults, the JSON config file at path, then GLOWD_* environment
// variables. An empty path skips the file layer entirely.
//
// A missing file returns ErrNotFound; an unparsable file or a failed
// validation returns a wrapped error. In both cases the caller decides
// whether to proceed with defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse builds the configuration from raw JSON bytes, typically read
// through the storage layer, with the same layering as Load: struct
// defaults, then the document, then GLOWD_* environment variables.
func Parse(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config document: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc maps environment variable names to koanf config paths:
//
//	GLOWD_WIFI_SSID          -> wifi.ssid
//	GLOWD_MQTT_CLIENT_ID     -> mqtt.client_id
//	GLOWD_SYSTEM_DEVICE_NAME -> system.device_name
//	GLOWD_SCRIPT_FILE        -> script_file
//
// The first underscore separates the section from the key; remaining
// underscores stay part of the key name.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	if key == "script_file" {
		return key
	}

	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	switch section {
	case "wifi", "mqtt", "display", "system":
		return section + "." + rest
	default:
		// Not one of ours; ignore by returning an unused path.
		return ""
	}
}
