// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

/*
Package handles maps native objects to opaque integer handles for the
script sandbox.

Scripts never see pointers: every bridge-exposed function that creates a
graphics object, style record, or message series returns a Handle, and
every function that mutates one takes a Handle back. The table is a
growable arena with a generation counter per slot, so a handle held past
its Release resolves to nil even after the slot has been reissued.

The table is shared between the script task and the supervisor loop and
is one of the two structures in the system requiring explicit mutual
exclusion (the other is the resource manager's allocation table).
*/
package handles
