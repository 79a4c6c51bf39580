// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package fallback

import (
	"testing"

	"github.com/glowstack/glowd/internal/graphics"
)

func TestStartCreatesBanner(t *testing.T) {
	gfx := graphics.NewHeadless()
	a := NewAnimator(gfx)

	if a.Running() {
		t.Fatal("animator running before Start")
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !a.Running() {
		t.Fatal("animator not running after Start")
	}
	if gfx.Live() != 1 {
		t.Fatalf("live objects = %d, want 1", gfx.Live())
	}

	// Idempotent.
	if err := a.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if gfx.Live() != 1 {
		t.Fatalf("second Start created another banner, live = %d", gfx.Live())
	}
}

func TestTickFlushesEveryFrame(t *testing.T) {
	gfx := graphics.NewHeadless()
	a := NewAnimator(gfx)
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 10; i++ {
		a.Tick()
	}
	if got := gfx.Flushes.Load(); got != 10 {
		t.Fatalf("flushes = %d, want 10", got)
	}
}

func TestTickWrapsAroundScreen(t *testing.T) {
	gfx := graphics.NewHeadless()
	a := NewAnimator(gfx)
	a.Width = 20
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Enough ticks to cross the right edge at least once.
	for i := 0; i < 50; i++ {
		a.Tick()
		if a.x > a.Width+4 || a.x < -a.Width-4 {
			t.Fatalf("banner escaped the screen: x = %d", a.x)
		}
	}
}

func TestTickBeforeStartIsNoop(t *testing.T) {
	gfx := graphics.NewHeadless()
	a := NewAnimator(gfx)
	a.Tick()
	if gfx.Flushes.Load() != 0 {
		t.Fatal("tick before Start flushed a frame")
	}
}

func TestStopDeletesBanner(t *testing.T) {
	gfx := graphics.NewHeadless()
	a := NewAnimator(gfx)
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	a.Stop()
	if a.Running() {
		t.Fatal("animator running after Stop")
	}
	if gfx.Live() != 0 {
		t.Fatalf("live objects = %d after Stop, want 0", gfx.Live())
	}
	a.Stop() // idempotent
	a.Tick() // no-op after Stop
}
