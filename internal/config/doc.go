// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

/*
Package config loads and owns the appliance runtime configuration.

Configuration is layered via Koanf v2 (highest priority wins):

  - GLOWD_* environment variables
  - JSON config file on external storage (conventionally /config.json)
  - Built-in defaults

A missing config file is reported as ErrNotFound and the appliance boots
on defaults; the supervisor records it as a configuration warning fault
rather than refusing to start. After load the snapshot is immutable;
mutation and persist-back go through Manager.
*/
package config
