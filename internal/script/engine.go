// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package script

import (
	"context"
	"errors"
)

// Engine is the script runtime contract the application supervisor
// consumes. The interpreter behind it is a black box; the supervisor
// only sequences Start/Tick/Stop and classifies their failures.
type Engine interface {
	// Start loads and executes the script's top level, then calls its
	// setup() function if one is defined. A failed Start is reported as
	// a runtime fault and flips the supervisor to fallback mode; it is
	// not retried without an explicit reload request.
	Start(ctx context.Context, name string, source []byte) error
	// Tick runs one iteration of the script's loop() function, bounded
	// by the tick budget. Returns ErrOverBudget when the budget was
	// exhausted.
	Tick(ctx context.Context) error
	// OnMessage queues an inbound message-bus payload for delivery to
	// the script's on_message(topic, payload) on its next tick.
	OnMessage(topic, payload string)
	// Stop releases the runtime. Safe to call on a never-started or
	// already-stopped engine.
	Stop()
}

// ErrOverBudget marks a tick cancelled for exceeding its time budget.
// The supervisor reports it as an Error-severity runtime fault.
var ErrOverBudget = errors.New("script: tick budget exceeded")
