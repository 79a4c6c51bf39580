// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package connectivity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/glowstack/glowd/internal/faults"
	"github.com/glowstack/glowd/internal/logging"
	"github.com/glowstack/glowd/internal/metrics"
)

// State is a link's connection state.
type State int

const (
	// Disconnected means the link is down and eligible for a retry.
	Disconnected State = iota
	// Connecting means one attempt is in flight.
	Connecting
	// Connected means the link is up.
	Connected
	// Degraded means repeated attempts failed within a bounded window;
	// the link still polls for recovery but dependents should be
	// suppressed.
	Degraded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Endpoint is the transport a Link drives. The wireless radio stack and
// the message-bus client both satisfy it; the Link only sequences their
// connect attempts.
type Endpoint interface {
	// Connect attempts to bring the transport up, bounded by ctx.
	Connect(ctx context.Context) error
	// Connected reports whether the transport is still up. Polled once
	// per loop iteration; must not block.
	Connected() bool
	// Disconnect tears the transport down.
	Disconnect()
}

// LinkOptions configures a Link.
type LinkOptions struct {
	// Name labels the link in logs and metrics ("wireless", "mqtt").
	Name string
	// RetryInterval is the minimum spacing between connection attempts.
	// Default: 10s.
	RetryInterval time.Duration
	// ConnectTimeout bounds a single attempt. Default: 5s.
	ConnectTimeout time.Duration
	// DegradedThreshold is the consecutive-failure count that trips the
	// link into Degraded. Default: 6.
	DegradedThreshold uint32
	// DegradedProbe is how long the link stays Degraded before probing
	// again. Default: 30s.
	DegradedProbe time.Duration
	// Precondition gates attempts; when it returns false the link does
	// not try to connect and its retry pacing resets once the
	// precondition returns. Used by the message-bus link to wait for
	// wireless. Optional.
	Precondition func() bool
	// Faults receives Warning-severity reports for failed attempts and
	// link loss. Optional.
	Faults *faults.Handler
	// FaultCode is the code used for those reports.
	FaultCode faults.Code
}

// Link is the per-link reconnection state machine. Poll is driven once
// per supervisor loop iteration from a single goroutine; the mutex only
// protects state reads from other goroutines (health evaluation, the
// script bridge).
type Link struct {
	name           string
	endpoint       Endpoint
	retryInterval  time.Duration
	connectTimeout time.Duration
	precondition   func() bool
	faults         *faults.Handler
	faultCode      faults.Code

	mu             sync.Mutex
	state          State
	lastAttempt    time.Time
	failures       uint32
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker[struct{}]
	precondBlocked bool
}

// NewLink wires a state machine around an endpoint.
func NewLink(endpoint Endpoint, opts LinkOptions) *Link {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 10 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.DegradedThreshold == 0 {
		opts.DegradedThreshold = 6
	}
	if opts.DegradedProbe <= 0 {
		opts.DegradedProbe = 30 * time.Second
	}

	l := &Link{
		name:           opts.Name,
		endpoint:       endpoint,
		retryInterval:  opts.RetryInterval,
		connectTimeout: opts.ConnectTimeout,
		precondition:   opts.Precondition,
		faults:         opts.Faults,
		faultCode:      opts.FaultCode,
		state:          Disconnected,
		limiter:        rate.NewLimiter(rate.Every(opts.RetryInterval), 1),
	}

	l.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    opts.Name,
		Timeout: opts.DegradedProbe,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.DegradedThreshold
		},
	})

	metrics.LinkState.WithLabelValues(l.name).Set(float64(Disconnected))
	return l
}

// State returns the link's current state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// ConsecutiveFailures returns the failed-attempt counter since the last
// successful connect.
func (l *Link) ConsecutiveFailures() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

// LastAttempt returns when the link last tried to connect.
func (l *Link) LastAttempt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastAttempt
}

// Poll advances the state machine by at most one step. In steady state
// it never blocks; a reconnection attempt blocks the calling iteration
// up to ConnectTimeout. Only one attempt is ever in flight.
func (l *Link) Poll(ctx context.Context) {
	l.mu.Lock()

	if l.state == Connected {
		if l.endpoint.Connected() {
			l.mu.Unlock()
			return
		}
		l.setStateLocked(Disconnected)
		l.mu.Unlock()
		l.reportf("%s link lost", l.name)
		return
	}

	if l.precondition != nil && !l.precondition() {
		l.precondBlocked = true
		l.mu.Unlock()
		return
	}
	if l.precondBlocked {
		// The precondition just came back; restart retry pacing so the
		// first attempt happens promptly instead of waiting out a stale
		// interval.
		l.limiter = rate.NewLimiter(rate.Every(l.retryInterval), 1)
		l.precondBlocked = false
	}

	if !l.limiter.Allow() {
		l.mu.Unlock()
		return
	}

	l.lastAttempt = time.Now()
	l.setStateLocked(Connecting)
	l.mu.Unlock()

	_, err := l.breaker.Execute(func() (struct{}, error) {
		cctx, cancel := context.WithTimeout(ctx, l.connectTimeout)
		defer cancel()
		return struct{}{}, l.endpoint.Connect(cctx)
	})

	l.mu.Lock()
	switch {
	case err == nil:
		l.failures = 0
		l.setStateLocked(Connected)
		l.mu.Unlock()
		metrics.LinkConnectAttempts.WithLabelValues(l.name, "success").Inc()
		logging.Info().Str("link", l.name).Msg("Link connected")

	case errors.Is(err, gobreaker.ErrOpenState):
		// The breaker swallowed the attempt; the link is in its
		// degraded probe window. Not counted as an attempt failure.
		l.setStateLocked(Degraded)
		l.mu.Unlock()
		metrics.LinkConnectAttempts.WithLabelValues(l.name, "suppressed").Inc()

	default:
		l.failures++
		if l.breaker.State() == gobreaker.StateOpen {
			l.setStateLocked(Degraded)
		} else {
			l.setStateLocked(Disconnected)
		}
		failures := l.failures
		l.mu.Unlock()
		metrics.LinkConnectAttempts.WithLabelValues(l.name, "failure").Inc()
		logging.Warn().Str("link", l.name).Uint32("consecutive_failures", failures).Err(err).
			Msg("Link connection attempt failed")
		l.reportf("%s connect failed: %v", l.name, err)
	}
}

// Drop forces the link to Disconnected, tearing down the endpoint. Used
// by the connectivity supervisor to cascade a wireless loss into the
// message-bus link.
func (l *Link) Drop() {
	l.mu.Lock()
	if l.state == Disconnected {
		l.mu.Unlock()
		return
	}
	l.setStateLocked(Disconnected)
	l.mu.Unlock()
	l.endpoint.Disconnect()
}

// Shutdown disconnects the endpoint without reporting a fault.
func (l *Link) Shutdown() {
	l.mu.Lock()
	l.setStateLocked(Disconnected)
	l.mu.Unlock()
	l.endpoint.Disconnect()
}

// setStateLocked transitions the state and mirrors it to metrics.
// Must be called with l.mu held.
func (l *Link) setStateLocked(s State) {
	if l.state == s {
		return
	}
	logging.Debug().Str("link", l.name).
		Str("from", l.state.String()).Str("to", s.String()).
		Msg("Link state transition")
	l.state = s
	metrics.LinkState.WithLabelValues(l.name).Set(float64(s))
}

// reportf sends a Warning-severity fault. Connectivity loss is expected
// and recoverable; it never escalates to Fatal.
func (l *Link) reportf(format string, args ...any) {
	if l.faults == nil {
		return
	}
	l.faults.Report(l.faultCode, faults.SeverityWarning, "connectivity", "Poll", 0,
		fmt.Sprintf(format, args...))
}
