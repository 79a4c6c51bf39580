// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package config

import "time"

// Config is the runtime configuration snapshot for the appliance. It is
// loaded once at startup and treated as immutable afterwards; mutation and
// persistence go through Manager, never through the struct directly.
type Config struct {
	WiFi       WiFiConfig    `koanf:"wifi" json:"wifi"`
	MQTT       MQTTConfig    `koanf:"mqtt" json:"mqtt"`
	Display    DisplayConfig `koanf:"display" json:"display"`
	System     SystemConfig  `koanf:"system" json:"system"`
	ScriptFile string        `koanf:"script_file" json:"script_file"`
}

// WiFiConfig holds wireless link credentials and policy.
type WiFiConfig struct {
	SSID           string        `koanf:"ssid" json:"ssid"`
	Password       string        `koanf:"password" json:"password"`
	Enabled        bool          `koanf:"enabled" json:"enabled"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" json:"connect_timeout"`
	RetryInterval  time.Duration `koanf:"retry_interval" json:"retry_interval"`
}

// MQTTConfig holds the message-bus link settings.
type MQTTConfig struct {
	Broker        string        `koanf:"broker" json:"broker"`
	Port          int           `koanf:"port" json:"port"`
	Username      string        `koanf:"username" json:"username"`
	Password      string        `koanf:"password" json:"password"`
	ClientID      string        `koanf:"client_id" json:"client_id"`
	Enabled       bool          `koanf:"enabled" json:"enabled"`
	Keepalive     time.Duration `koanf:"keepalive" json:"keepalive"`
	RetryInterval time.Duration `koanf:"retry_interval" json:"retry_interval"`
}

// DisplayConfig holds display defaults applied at bring-up.
type DisplayConfig struct {
	Brightness      uint8  `koanf:"brightness" json:"brightness"`
	Rotation        int    `koanf:"rotation" json:"rotation"`
	BackgroundColor uint32 `koanf:"background_color" json:"background_color"`
	ForegroundColor uint32 `koanf:"foreground_color" json:"foreground_color"`
}

// SystemConfig holds device-level settings.
type SystemConfig struct {
	DeviceName      string        `koanf:"device_name" json:"device_name"`
	LogLevel        string        `koanf:"log_level" json:"log_level"`
	LogFormat       string        `koanf:"log_format" json:"log_format"`
	WatchdogTimeout time.Duration `koanf:"watchdog_timeout" json:"watchdog_timeout"`
	// MetricsAddr is the listen address of the Prometheus telemetry
	// endpoint. Empty disables the listener.
	MetricsAddr string `koanf:"metrics_addr" json:"metrics_addr"`
	// TickBudget bounds a single script tick. An over-budget tick is
	// cancelled and reported as a runtime fault.
	TickBudget time.Duration `koanf:"tick_budget" json:"tick_budget"`
}

// Default returns a Config with built-in defaults. Every key missing from
// the config file falls back to these values.
func Default() *Config {
	return &Config{
		WiFi: WiFiConfig{
			SSID:           "",
			Password:       "",
			Enabled:        true,
			ConnectTimeout: 5 * time.Second,
			RetryInterval:  10 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:        "",
			Port:          1883,
			Username:      "",
			Password:      "",
			ClientID:      "", // derived from device name + random suffix when empty
			Enabled:       false,
			Keepalive:     60 * time.Second,
			RetryInterval: 10 * time.Second,
		},
		Display: DisplayConfig{
			Brightness:      200,
			Rotation:        0,
			BackgroundColor: 0x000000,
			ForegroundColor: 0xFFFFFF,
		},
		System: SystemConfig{
			DeviceName:      "glowd",
			LogLevel:        "info",
			LogFormat:       "console",
			WatchdogTimeout: 30 * time.Second,
			MetricsAddr:     "",
			TickBudget:      250 * time.Millisecond,
		},
		ScriptFile: "/app.star",
	}
}
