// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

/*
Package memory implements the two-tier resource manager.

Tier A models the fast, limited pool and tier B the large pool that may
be absent on some hardware. Allocation strategies choose between them;
Auto routes requests at or above LargeAllocThreshold, and requests that
would squeeze tier A below twice the requested size, toward tier B.

Every successful allocation is tracked in a record table keyed by an
opaque id. The live-record set is the authoritative leak-detection
source; Stats recomputes aggregates from it on demand. Allocation
failure increments a counter and returns an error, never aborting the
process: callers decide their own degraded-mode behavior.
*/
package memory
