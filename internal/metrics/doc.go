// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

/*
Package metrics provides Prometheus instrumentation for glowd.

Metrics cover the resource manager (allocated/peak/failed bytes), the fault
handler (per-category counters and the health flag), per-link connectivity
state, and the supervisor loop. They are exposed at /metrics when the
telemetry listener is enabled in the system configuration:

	curl http://<device>:9100/metrics

All metrics are registered at package load through promauto; components
update them directly rather than going through a collection layer.
*/
package metrics
