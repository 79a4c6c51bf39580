// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

/*
Package app is the application supervisor: the bring-up cascade, the
mode state machine, and the run loop.

# Bring-up

Setup runs the cascade in order: display, storage mount (bounded retry
window), configuration, connectivity, runtime. Every failure past the
display degrades instead of aborting - a missing config file or script
lands the appliance on the fallback screen, never a boot loop. Only an
unusable display stops the boot.

# Modes

The device is always in exactly one mode: running the user script,
running the built-in fallback animator, parked in the error state, or
shutting down. Mode changes are driven by recovery strategies selected
by the fault handler; a script whose start failed is only retried
through an explicit Reload.

# Loop

Each Step ticks the active mode, polls the connectivity links, and
every 30 seconds evaluates system health. The loop runs as a supervised
suture service; see internal/supervisor.
*/
package app
