// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

// Package graphics defines the narrow contract the supervisor and the
// script bridge consume from the rendering pipeline. The pixel-level
// renderer and panel driver are external collaborators; glowd only
// decides when they are invoked and how their failures are absorbed.
//
// The graphics subsystem is single-writer: only the task driving the
// active mode (script or fallback) issues draw calls.
package graphics

import "errors"

// ErrUnavailable is returned by Init when no display hardware can be
// brought up. The supervisor treats it as a fatal hardware fault.
var ErrUnavailable = errors.New("graphics: display unavailable")

// Object is a created display object (label, image, chart series).
// Objects are referenced by scripts exclusively through the handle
// registry; these methods are invoked by the bridge after handle
// resolution.
type Object interface {
	Move(x, y int)
	Rotate(degrees int)
	SetStyle(property, value string) error
	Delete()
}

// Driver is the display contract.
type Driver interface {
	// Init brings up the display. Returns ErrUnavailable when the panel
	// is missing.
	Init() error
	// SetBrightness sets the backlight level (0-255).
	SetBrightness(level uint8)
	// SetRotation sets the panel rotation (0-3 quarter turns).
	SetRotation(rotation int)
	// Clear fills the screen with a 24-bit RGB color.
	Clear(rgb uint32)
	// CreateLabel creates a text object at the given position.
	CreateLabel(text string, x, y int) (Object, error)
	// CreateImage creates an image object from a storage path.
	CreateImage(path string, x, y int) (Object, error)
	// CreateLine creates a line object between two points.
	CreateLine(x1, y1, x2, y2 int) (Object, error)
	// Flush pushes pending drawing to the panel. Called once per tick
	// by whichever mode is active.
	Flush()
	// Close releases the display.
	Close()
}
