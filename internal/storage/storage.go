// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

// Package storage abstracts the appliance's external storage (the SD
// card on the original hardware). The physical driver is out of scope;
// this package defines the narrow mount/read/write contract the
// supervisor consumes and provides a directory-backed implementation.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotMounted is returned by file operations before a successful Mount.
var ErrNotMounted = errors.New("storage: not mounted")

// Store is the external-storage contract. Paths are absolute within the
// storage volume ("/config.json", "/app.star").
type Store interface {
	// Mount brings the volume up, retrying within the bounded window of
	// the context deadline. The supervisor proceeds to fallback mode if
	// it fails.
	Mount(ctx context.Context) error
	// Mounted reports whether the volume is available.
	Mounted() bool
	// Exists reports whether a file exists on the volume.
	Exists(path string) bool
	// ReadFile returns the file's contents.
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces the file's contents.
	WriteFile(path string, data []byte) error
	// Unmount releases the volume.
	Unmount()
}

// DirStore implements Store over a directory on the host filesystem.
type DirStore struct {
	root    string
	mounted bool

	// RetryDelay spaces mount attempts. Default 200ms, matching the
	// firmware's SD retry cadence.
	RetryDelay time.Duration
}

// NewDirStore creates a Store rooted at dir. The directory does not need
// to exist until Mount.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir, RetryDelay: 200 * time.Millisecond}
}

// Mount verifies the root directory is present and readable, retrying
// until the context expires. Mounting an already-mounted store is a
// no-op.
func (s *DirStore) Mount(ctx context.Context) error {
	if s.mounted {
		return nil
	}

	for {
		info, err := os.Stat(s.root)
		if err == nil && info.IsDir() {
			s.mounted = true
			return nil
		}

		select {
		case <-ctx.Done():
			if err == nil {
				err = fmt.Errorf("%s is not a directory", s.root)
			}
			return fmt.Errorf("storage mount failed: %w", err)
		case <-time.After(s.RetryDelay):
		}
	}
}

// Mounted reports whether Mount has succeeded.
func (s *DirStore) Mounted() bool { return s.mounted }

// Exists reports whether path exists on the mounted volume.
func (s *DirStore) Exists(path string) bool {
	if !s.mounted {
		return false
	}
	_, err := os.Stat(s.resolve(path))
	return err == nil
}

// ReadFile returns the contents of path.
func (s *DirStore) ReadFile(path string) ([]byte, error) {
	if !s.mounted {
		return nil, ErrNotMounted
	}
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("storage read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile replaces the contents of path, creating parent directories
// as needed.
func (s *DirStore) WriteFile(path string, data []byte) error {
	if !s.mounted {
		return ErrNotMounted
	}
	full := s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage write %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("storage write %s: %w", path, err)
	}
	return nil
}

// Unmount releases the volume.
func (s *DirStore) Unmount() { s.mounted = false }

// Resolve maps a volume path to a host path for collaborators that need
// direct access (the config loader reads through the host path).
func (s *DirStore) Resolve(path string) string { return s.resolve(path) }

func (s *DirStore) resolve(path string) string {
	return filepath.Join(s.root, strings.TrimPrefix(path, "/"))
}
