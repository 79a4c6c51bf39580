// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file failed: %v", err)
	}

	if cfg.Display.Brightness != 200 {
		t.Errorf("expected default brightness 200, got %d", cfg.Display.Brightness)
	}
	if cfg.ScriptFile != "/app.star" {
		t.Errorf("expected default script file /app.star, got %q", cfg.ScriptFile)
	}
	if cfg.MQTT.Enabled {
		t.Error("mqtt should be disabled by default")
	}
	if cfg.WiFi.RetryInterval != 10*time.Second {
		t.Errorf("expected 10s retry interval, got %v", cfg.WiFi.RetryInterval)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"wifi": {"ssid": "shoplight", "password": "hunter2", "enabled": true},
		"mqtt": {"broker": "broker.local", "port": 8883, "enabled": true},
		"display": {"brightness": 120, "rotation": 2},
		"system": {"device_name": "kitchen-panel", "log_level": "debug"},
		"script_file": "/clock.star"
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WiFi.SSID != "shoplight" {
		t.Errorf("wifi.ssid = %q", cfg.WiFi.SSID)
	}
	if cfg.MQTT.Port != 8883 {
		t.Errorf("mqtt.port = %d", cfg.MQTT.Port)
	}
	if cfg.Display.Brightness != 120 {
		t.Errorf("display.brightness = %d", cfg.Display.Brightness)
	}
	if cfg.Display.Rotation != 2 {
		t.Errorf("display.rotation = %d", cfg.Display.Rotation)
	}
	if cfg.ScriptFile != "/clock.star" {
		t.Errorf("script_file = %q", cfg.ScriptFile)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Display.ForegroundColor != 0xFFFFFF {
		t.Errorf("expected default foreground color, got %#x", cfg.Display.ForegroundColor)
	}
	if cfg.System.TickBudget != 250*time.Millisecond {
		t.Errorf("expected default tick budget, got %v", cfg.System.TickBudget)
	}
}

func TestLoadUnparsableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("parse failure must not be reported as not-found")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GLOWD_WIFI_SSID", "from-env")
	t.Setenv("GLOWD_SYSTEM_LOG_LEVEL", "warn")
	t.Setenv("GLOWD_SCRIPT_FILE", "/env.star")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WiFi.SSID != "from-env" {
		t.Errorf("wifi.ssid = %q, want env override", cfg.WiFi.SSID)
	}
	if cfg.System.LogLevel != "warn" {
		t.Errorf("system.log_level = %q", cfg.System.LogLevel)
	}
	if cfg.ScriptFile != "/env.star" {
		t.Errorf("script_file = %q", cfg.ScriptFile)
	}
}

func TestValidate(t *testing.T) {
	t.Run("rejects bad rotation", func(t *testing.T) {
		cfg := Default()
		cfg.Display.Rotation = 7
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for rotation 7")
		}
	})

	t.Run("rejects mqtt enabled without broker", func(t *testing.T) {
		cfg := Default()
		cfg.MQTT.Enabled = true
		cfg.MQTT.Broker = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for empty broker")
		}
	})

	t.Run("rejects relative script path", func(t *testing.T) {
		cfg := Default()
		cfg.ScriptFile = "app.star"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for relative script path")
		}
	})

	t.Run("repairs non-positive intervals", func(t *testing.T) {
		cfg := Default()
		cfg.WiFi.RetryInterval = 0
		cfg.System.TickBudget = -time.Second
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if cfg.WiFi.RetryInterval != 10*time.Second {
			t.Errorf("retry interval not repaired: %v", cfg.WiFi.RetryInterval)
		}
		if cfg.System.TickBudget != 250*time.Millisecond {
			t.Errorf("tick budget not repaired: %v", cfg.System.TickBudget)
		}
	})
}

func TestManagerSnapshotAndSave(t *testing.T) {
	cfg := Default()
	m := NewManager(cfg, "/config.json")

	if m.Dirty() {
		t.Error("fresh manager should not be dirty")
	}

	m.Update(func(c *Config) {
		c.Display.Brightness = 42
	})

	if !m.Dirty() {
		t.Error("manager should be dirty after Update")
	}
	if got := m.Snapshot().Display.Brightness; got != 42 {
		t.Errorf("snapshot brightness = %d, want 42", got)
	}

	var savedPath string
	var savedData []byte
	err := m.Save(func(path string, data []byte) error {
		savedPath, savedData = path, data
		return nil
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if savedPath != "/config.json" {
		t.Errorf("saved to %q", savedPath)
	}
	if len(savedData) == 0 {
		t.Error("no data written")
	}
	if m.Dirty() {
		t.Error("Save should clear the dirty flag")
	}
}

func TestManagerSaveWithoutPath(t *testing.T) {
	m := NewManager(Default(), "")
	m.Update(func(c *Config) { c.System.DeviceName = "x" })

	called := false
	if err := m.Save(func(string, []byte) error { called = true; return nil }); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if called {
		t.Error("Save must be a no-op without a path")
	}
}
