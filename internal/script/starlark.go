// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/glowstack/glowd/internal/logging"
	"github.com/glowstack/glowd/internal/metrics"
)

// fileOptions relaxes the pure-Starlark dialect for appliance scripts:
// loop-heavy display code wants while and top-level control flow.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

const (
	// startBudget caps the script's top level plus setup(). Generous
	// compared to the tick budget: a cold start may load assets.
	startBudget = 5 * time.Second

	// inboxCap bounds queued inbound messages. A script that never
	// drains its inbox drops the oldest entries rather than growing
	// without bound.
	inboxCap = 32
)

type inboundMsg struct {
	topic   string
	payload string
}

// StarlarkEngine runs user scripts on the Starlark interpreter with a
// wall-clock budget per tick. Scripts follow three conventions: the
// top level plus an optional setup() run once at start, loop() runs
// every tick, and on_message(topic, payload) receives queued bus
// traffic before each loop() call.
type StarlarkEngine struct {
	natives *Natives
	budget  time.Duration

	mu      sync.Mutex
	globals starlark.StringDict
	started bool

	inboxMu sync.Mutex
	inbox   []inboundMsg
}

var _ Engine = (*StarlarkEngine)(nil)

// NewStarlarkEngine builds an engine over the given native surface.
// budget bounds a single Tick; non-positive values fall back to 250ms.
func NewStarlarkEngine(natives *Natives, budget time.Duration) *StarlarkEngine {
	if budget <= 0 {
		budget = 250 * time.Millisecond
	}
	return &StarlarkEngine{natives: natives, budget: budget}
}

// Start executes the script's top level and its setup() function.
func (e *StarlarkEngine) Start(ctx context.Context, name string, source []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	thread, cancel := e.newThread(name, startBudget)
	defer cancel()

	globals, err := starlark.ExecFileOptions(fileOptions, thread, name, source, e.natives.Declarations())
	if err != nil {
		return fmt.Errorf("exec %s: %w", name, normalizeErr(err))
	}
	e.globals = globals
	e.started = true

	if setup, ok := globals["setup"]; ok {
		if _, err := starlark.Call(thread, setup, nil, nil); err != nil {
			e.started = false
			return fmt.Errorf("setup: %w", normalizeErr(err))
		}
	}
	return nil
}

// Tick delivers queued messages to on_message, then runs one loop()
// iteration under the tick budget.
func (e *StarlarkEngine) Tick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}

	start := time.Now()
	thread, cancel := e.newThread("tick", e.budget)
	defer func() {
		cancel()
		metrics.ScriptTickDuration.Observe(time.Since(start).Seconds())
	}()

	if err := e.deliverInbox(thread); err != nil {
		return err
	}

	loop, ok := e.globals["loop"]
	if !ok {
		return nil
	}
	if _, err := starlark.Call(thread, loop, nil, nil); err != nil {
		return e.classify(err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// OnMessage queues a message for the next tick. Oldest entries are
// evicted once the inbox is full.
func (e *StarlarkEngine) OnMessage(topic, payload string) {
	e.inboxMu.Lock()
	defer e.inboxMu.Unlock()
	if len(e.inbox) >= inboxCap {
		logging.Warn().Str("topic", e.inbox[0].topic).Msg("script inbox full, dropping oldest message")
		e.inbox = e.inbox[1:]
	}
	e.inbox = append(e.inbox, inboundMsg{topic: topic, payload: payload})
}

// Stop discards the loaded script. It does not interrupt a tick in
// flight; callers sequence Stop after the run loop has parked.
func (e *StarlarkEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = false
	e.globals = nil

	e.inboxMu.Lock()
	e.inbox = nil
	e.inboxMu.Unlock()
}

func (e *StarlarkEngine) deliverInbox(thread *starlark.Thread) error {
	e.inboxMu.Lock()
	pending := e.inbox
	e.inbox = nil
	e.inboxMu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	handler, ok := e.globals["on_message"]
	if !ok {
		return nil
	}
	for _, msg := range pending {
		args := starlark.Tuple{starlark.String(msg.topic), starlark.String(msg.payload)}
		if _, err := starlark.Call(thread, handler, args, nil); err != nil {
			return e.classify(err)
		}
	}
	return nil
}

// newThread builds an interpreter thread that cancels itself after the
// budget elapses. The returned stop func must run before the budget
// outcome is inspected.
func (e *StarlarkEngine) newThread(name string, budget time.Duration) (*starlark.Thread, func()) {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			logging.Info().Str("component", "script").Msg(msg)
		},
	}
	timer := time.AfterFunc(budget, func() {
		thread.Cancel(budgetCancelReason)
	})
	return thread, func() { timer.Stop() }
}

const budgetCancelReason = "tick budget exceeded"

// classify maps a cancelled-for-budget interpreter error to the
// sentinel the supervisor keys fault reporting on.
func (e *StarlarkEngine) classify(err error) error {
	if strings.Contains(err.Error(), budgetCancelReason) {
		metrics.ScriptTicksOverBudget.Inc()
		return ErrOverBudget
	}
	return normalizeErr(err)
}

// normalizeErr attaches the script backtrace when the interpreter
// produced one; plain errors pass through.
func normalizeErr(err error) error {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return fmt.Errorf("%s\n%s", evalErr.Msg, strings.TrimSpace(evalErr.Backtrace()))
	}
	return err
}
