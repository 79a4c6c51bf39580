// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

// Package script runs user-provided appliance scripts in a Starlark
// sandbox. Scripts see the device only through registered natives that
// take and return integer handles; a stale or fabricated handle
// resolves to a no-op, never a crash. Each loop() tick runs under a
// wall-clock budget and is cancelled when the budget is exhausted.
package script
