// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

/*
Package connectivity keeps the wireless and message-bus links alive
under intermittent connectivity.

Each link is an independent state machine (Disconnected, Connecting,
Connected, Degraded). Retry pacing uses a token-bucket limiter so no two
attempts for one link ever happen closer together than the configured
interval (default 10s); repeated failures trip a circuit breaker into
Degraded, where the link keeps probing on the breaker's half-open
schedule but dependents are suppressed.

The message-bus link requires the wireless link to be Connected before
it attempts anything, and its retry pacing resets when wireless returns.
Failed attempts report Warning-severity faults only: losing connectivity
is an expected condition, never a reason to restart the system.
*/
package connectivity
