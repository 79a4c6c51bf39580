// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package config

import (
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
)

// Manager owns the live configuration after load. Reads take a snapshot
// copy; writes go through Update and mark the config dirty so the
// supervisor knows to persist it on shutdown. The same mutual-exclusion
// discipline as the handle table applies: a console collaborator and the
// supervisor's own persistence path may both touch the config.
type Manager struct {
	mu    sync.RWMutex
	cfg   Config
	dirty bool
	path  string
}

// NewManager wraps a loaded configuration. path is where Save writes the
// config back; empty disables persistence.
func NewManager(cfg *Config, path string) *Manager {
	return &Manager{cfg: *cfg, path: path}
}

// Snapshot returns a copy of the current configuration. The copy is safe
// to read without holding any lock.
func (m *Manager) Snapshot() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Update applies fn to the configuration under the write lock and marks
// it dirty. fn must not block or call back into the Manager.
func (m *Manager) Update(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.cfg)
	m.dirty = true
}

// Dirty reports whether the configuration has been modified since load
// or the last successful Save.
func (m *Manager) Dirty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirty
}

// Save persists the configuration as indented JSON through the given
// writer function (typically storage.Store.WriteFile) and clears the
// dirty flag. Save with an empty path is a no-op.
func (m *Manager) Save(write func(path string, data []byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(&m.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := write(m.path, data); err != nil {
		return fmt.Errorf("failed to persist config to %s: %w", m.path, err)
	}

	m.dirty = false
	return nil
}
