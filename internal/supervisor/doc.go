// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

/*
Package supervisor provides process supervision for glowd using suture v4.

This package implements a small supervisor tree that manages the
lifecycle of the appliance's long-running services, with Erlang/OTP-style
automatic restart, failure isolation, and graceful shutdown.

# Overview

The tree organizes services into two layers:

	RootSupervisor ("glowd")
	├── RuntimeSupervisor ("runtime-layer")
	│   └── RunLoopService
	└── TelemetrySupervisor ("telemetry-layer")
	    └── HTTPServerService (metrics listener)

This hierarchy ensures that:
  - A crashing metrics listener never disturbs the screen
  - A panicking run loop restarts without tearing down telemetry

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Graceful Shutdown:
  - Context cancellation propagates through the tree
  - Each service gets ShutdownTimeout to finish cleanly
  - UnstoppedServiceReport identifies services that did not stop
*/
package supervisor
