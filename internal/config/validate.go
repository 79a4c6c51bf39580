// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values that cannot be corrected
// by falling back to defaults. Out-of-range values that have an obvious
// safe interpretation are clamped instead of rejected; the appliance
// should boot with a best-effort config rather than refuse to start.
func (c *Config) Validate() error {
	if c.Display.Rotation < 0 || c.Display.Rotation > 3 {
		return fmt.Errorf("display.rotation must be 0-3, got %d", c.Display.Rotation)
	}
	if c.Display.BackgroundColor > 0xFFFFFF {
		return fmt.Errorf("display.background_color must be 24-bit RGB, got %#x", c.Display.BackgroundColor)
	}
	if c.Display.ForegroundColor > 0xFFFFFF {
		return fmt.Errorf("display.foreground_color must be 24-bit RGB, got %#x", c.Display.ForegroundColor)
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.enabled is true but mqtt.broker is empty")
		}
		if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
			return fmt.Errorf("mqtt.port must be 1-65535, got %d", c.MQTT.Port)
		}
	}

	if c.WiFi.RetryInterval <= 0 {
		c.WiFi.RetryInterval = Default().WiFi.RetryInterval
	}
	if c.MQTT.RetryInterval <= 0 {
		c.MQTT.RetryInterval = Default().MQTT.RetryInterval
	}
	if c.WiFi.ConnectTimeout <= 0 {
		c.WiFi.ConnectTimeout = Default().WiFi.ConnectTimeout
	}
	if c.System.TickBudget <= 0 {
		c.System.TickBudget = Default().System.TickBudget
	}

	switch strings.ToLower(c.System.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled", "":
	default:
		return fmt.Errorf("system.log_level %q is not a known level", c.System.LogLevel)
	}

	if !strings.HasPrefix(c.ScriptFile, "/") {
		return fmt.Errorf("script_file must be an absolute storage path, got %q", c.ScriptFile)
	}

	return nil
}
