// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

// Package fallback renders the built-in screen shown whenever no user
// script is running. It depends only on the graphics driver, so it
// keeps working through storage, config, and script failures.
package fallback

import (
	"fmt"

	"github.com/glowstack/glowd/internal/graphics"
	"github.com/glowstack/glowd/internal/logging"
)

// DefaultMessage is shown when the caller supplies no banner text.
const DefaultMessage = "glowd"

// Animator scrolls a banner across the screen. Once Start succeeds,
// Tick never fails: a device in fallback mode must keep its heartbeat
// no matter what else is broken.
type Animator struct {
	gfx graphics.Driver

	Message    string
	Width      int
	Background uint32

	banner  graphics.Object
	x       int
	started bool
}

// NewAnimator builds an animator over the given driver.
func NewAnimator(gfx graphics.Driver) *Animator {
	return &Animator{
		gfx:     gfx,
		Message: DefaultMessage,
		Width:   536,
	}
}

// Start clears the screen and creates the banner label.
func (a *Animator) Start() error {
	if a.started {
		return nil
	}
	a.gfx.Clear(a.Background)

	msg := a.Message
	if msg == "" {
		msg = DefaultMessage
	}
	banner, err := a.gfx.CreateLabel(msg, 0, 0)
	if err != nil {
		return fmt.Errorf("fallback banner: %w", err)
	}
	a.banner = banner
	a.x = 0
	a.started = true
	logging.Info().Str("message", msg).Msg("fallback animator started")
	return nil
}

// Tick advances the banner one step and flushes the frame.
func (a *Animator) Tick() {
	if !a.started {
		return
	}
	a.x += 4
	if a.x > a.Width {
		a.x = -a.Width
	}
	a.banner.Move(a.x, 0)
	a.gfx.Flush()
}

// Running reports whether Start has succeeded.
func (a *Animator) Running() bool { return a.started }

// Stop deletes the banner. Safe to call repeatedly.
func (a *Animator) Stop() {
	if !a.started {
		return
	}
	a.banner.Delete()
	a.banner = nil
	a.started = false
}
