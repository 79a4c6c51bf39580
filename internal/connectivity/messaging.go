// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package connectivity

import "context"

// Client is the message-bus collaborator contract. It extends Endpoint
// with the publish/subscribe surface the script bridge consumes; returns
// are booleans because scripts have no error channel.
type Client interface {
	Connect(ctx context.Context) error
	Connected() bool
	Disconnect()

	// Publish sends payload to a topic. retain asks the broker to keep
	// the message for late subscribers.
	Publish(topic, payload string, retain bool) bool
	// Subscribe registers interest in a topic. Inbound messages arrive
	// on the handler set with SetMessageHandler.
	Subscribe(topic string) bool
	// SetMessageHandler registers the single inbound callback. Must be
	// called before Subscribe.
	SetMessageHandler(fn func(topic, payload string))
}
