// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package connectivity

import "context"

// Supervisor owns the wireless and message-bus links. Both are
// independent instances of the same state machine; the message-bus link
// is additionally gated on the wireless link being Connected.
type Supervisor struct {
	wireless  *Link
	messaging *Link
	bus       Client
}

// NewSupervisor wires the two links together. messaging and bus may be
// nil when MQTT is disabled in the configuration.
func NewSupervisor(wireless, messaging *Link, bus Client) *Supervisor {
	return &Supervisor{wireless: wireless, messaging: messaging, bus: bus}
}

// Poll runs one housekeeping cycle: the wireless link first, then the
// cascade to the message-bus link. A wireless drop forces the messaging
// link to Disconnected on this same poll; its own retry pacing resets
// once wireless comes back (Link precondition handling).
func (s *Supervisor) Poll(ctx context.Context) {
	if s.wireless != nil {
		s.wireless.Poll(ctx)
	}
	if s.messaging == nil {
		return
	}

	if s.WirelessState() != Connected && s.messaging.State() == Connected {
		s.messaging.Drop()
	}
	s.messaging.Poll(ctx)
}

// WirelessState returns the wireless link state, Disconnected when the
// wireless link is not configured.
func (s *Supervisor) WirelessState() State {
	if s.wireless == nil {
		return Disconnected
	}
	return s.wireless.State()
}

// MessagingState returns the message-bus link state, Disconnected when
// messaging is not configured.
func (s *Supervisor) MessagingState() State {
	if s.messaging == nil {
		return Disconnected
	}
	return s.messaging.State()
}

// MessagingReady reports whether message-bus operations should be
// attempted. False in Degraded even though the link keeps polling.
func (s *Supervisor) MessagingReady() bool {
	return s.MessagingState() == Connected
}

// Publish forwards to the message bus when it is ready. Returns false
// otherwise; callers treat a refused publish the same as a failed one.
func (s *Supervisor) Publish(topic, payload string, retain bool) bool {
	if !s.MessagingReady() || s.bus == nil {
		return false
	}
	return s.bus.Publish(topic, payload, retain)
}

// Subscribe forwards to the message bus when it is ready.
func (s *Supervisor) Subscribe(topic string) bool {
	if !s.MessagingReady() || s.bus == nil {
		return false
	}
	return s.bus.Subscribe(topic)
}

// SetMessageHandler registers the inbound-message callback on the bus.
func (s *Supervisor) SetMessageHandler(fn func(topic, payload string)) {
	if s.bus != nil {
		s.bus.SetMessageHandler(fn)
	}
}

// Shutdown tears both links down, messaging first.
func (s *Supervisor) Shutdown() {
	if s.messaging != nil {
		s.messaging.Shutdown()
	}
	if s.wireless != nil {
		s.wireless.Shutdown()
	}
}
