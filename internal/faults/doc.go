// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

/*
Package faults is the central error taxonomy and recovery selector.

Every subsystem reports failures through Handler.Report, which classifies
the fault, emits one structured log line, updates counters, and returns
the recovery strategy the caller should execute. Recovery strategies are
advisory: the handler never restarts anything itself.

Codes are namespaced by subsystem (hardware 1-99, network 100-199,
configuration 200-299, runtime 300-399, system 400-499) and each severity
carries a minimum recovery floor. A per-code HandlerFunc can override the
default mapping; independent of overrides, an Error-severity code that
keeps returning Retry is escalated to RestartModule once it repeats
beyond the configured threshold inside the escalation window.

Connectivity loss never escalates to Fatal: it is expected, recoverable,
and handled by retry.
*/
package faults
