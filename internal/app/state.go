// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package app

// State is the application mode. All transitions go through a single
// step function; there is no recursive re-entry into the bring-up
// cascade.
type State int32

const (
	// StateInitializing covers the bring-up cascade.
	StateInitializing State = iota
	// StateRunningScript means the user script owns the screen.
	StateRunningScript
	// StateRunningFallback means the built-in animator owns the screen.
	StateRunningFallback
	// StateError is the terminal wait: nothing owns the screen, but
	// connectivity and health housekeeping keep running so the device
	// stays observable.
	StateError
	// StateShutdown is entered once and never left.
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunningScript:
		return "running_script"
	case StateRunningFallback:
		return "running_fallback"
	case StateError:
		return "error"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
