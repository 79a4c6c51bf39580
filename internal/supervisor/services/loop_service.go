// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package services

import (
	"context"
	"fmt"
)

// Runner interface matches the application run loop lifecycle.
//
// Satisfied by *app.App: Run blocks driving mode ticks until the
// context is canceled, Shutdown persists state and releases resources.
type Runner interface {
	Run(ctx context.Context) error
	Shutdown()
}

// RunLoopService wraps the application run loop as a supervised
// service. If the loop panics or returns an error, suture restarts it
// according to its backoff policy; the screen comes back without a
// power cycle.
type RunLoopService struct {
	runner Runner
	name   string
}

// NewRunLoopService creates a new run loop service wrapper.
func NewRunLoopService(runner Runner) *RunLoopService {
	return &RunLoopService{
		runner: runner,
		name:   "run-loop",
	}
}

// Serve implements suture.Service.
//
// Runs the loop until the context is canceled, then performs the
// runner's shutdown sequence before returning.
func (s *RunLoopService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		// Orderly shutdown: persist state before the tree tears down.
		s.runner.Shutdown()
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("run loop failed: %w", err)
	}
	return nil
}

// String implements fmt.Stringer for logging.
func (s *RunLoopService) String() string {
	return s.name
}
