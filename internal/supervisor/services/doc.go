// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

/*
Package services provides suture.Service wrappers for glowd components.

This package adapts application components to the suture v4 supervision
model, translating their lifecycle patterns (Run/Shutdown,
ListenAndServe) into suture's context-aware Serve pattern.

# Available Services

Run Loop (RunLoopService):
  - Wraps the application run loop
  - Performs the runner's shutdown sequence on context cancellation

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Used for the Prometheus metrics listener
  - Configurable shutdown timeout for draining connections

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Service Identification

All services implement fmt.Stringer; suture uses it in log messages.
*/
package services
