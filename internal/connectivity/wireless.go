// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package connectivity

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// NetProbe is the wireless Endpoint used on hardware where the radio is
// managed by the host OS. Joining the network itself belongs to the
// platform's supplicant; glowd only needs to know whether the uplink
// works, which the probe verifies by dialing a known address.
type NetProbe struct {
	// Addr is the probe target. Default: 1.1.1.1:53.
	Addr string
	// Staleness is how long a successful check stays trusted before
	// Connected re-verifies. Default: 10s.
	Staleness time.Duration

	mu        sync.Mutex
	alive     bool
	lastCheck time.Time
}

// NewNetProbe creates a probe endpoint with defaults applied.
func NewNetProbe(addr string) *NetProbe {
	if addr == "" {
		addr = "1.1.1.1:53"
	}
	return &NetProbe{Addr: addr, Staleness: 10 * time.Second}
}

// Connect implements Endpoint.
func (p *NetProbe) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("uplink probe %s: %w", p.Addr, err)
	}
	conn.Close()

	p.mu.Lock()
	p.alive = true
	p.lastCheck = time.Now()
	p.mu.Unlock()
	return nil
}

// Connected implements Endpoint. It re-verifies the uplink once the last
// check is stale, with a short timeout so the poll loop is never held up
// for long.
func (p *NetProbe) Connected() bool {
	p.mu.Lock()
	if !p.alive {
		p.mu.Unlock()
		return false
	}
	if time.Since(p.lastCheck) < p.Staleness {
		p.mu.Unlock()
		return true
	}
	p.mu.Unlock()

	conn, err := net.DialTimeout("tcp", p.Addr, time.Second)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastCheck = time.Now()
	if err != nil {
		p.alive = false
		return false
	}
	conn.Close()
	p.alive = true
	return true
}

// Disconnect implements Endpoint.
func (p *NetProbe) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive = false
}
