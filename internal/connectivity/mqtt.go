// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/glowstack/glowd/internal/config"
	"github.com/glowstack/glowd/internal/logging"
)

// opTimeout bounds publish/subscribe token waits. Scripts get a boolean
// back; they must never hang on a slow broker.
const opTimeout = 3 * time.Second

// MQTTClient implements Client over Eclipse Paho. Reconnection is owned
// by the Link state machine, so Paho's auto-reconnect stays off.
type MQTTClient struct {
	mu      sync.Mutex
	client  mqtt.Client
	handler func(topic, payload string)

	broker    string
	clientID  string
	username  string
	password  string
	keepalive time.Duration
}

// NewMQTTClient builds a client from the mqtt config block. An empty
// client id derives one from the device name plus a random suffix so two
// appliances with the same config do not evict each other's sessions.
func NewMQTTClient(cfg config.MQTTConfig, deviceName string) *MQTTClient {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("%s-%s", deviceName, uuid.NewString()[:8])
	}
	return &MQTTClient{
		broker:    fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port),
		clientID:  clientID,
		username:  cfg.Username,
		password:  cfg.Password,
		keepalive: cfg.Keepalive,
	}
}

// Connect dials the broker, bounded by ctx.
func (c *MQTTClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := mqtt.NewClientOptions().
		AddBroker(c.broker).
		SetClientID(c.clientID).
		SetKeepAlive(c.keepalive).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetCleanSession(true)
	if c.username != "" {
		opts.SetUsername(c.username)
		opts.SetPassword(c.password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Warn().Err(err).Str("broker", c.broker).Msg("MQTT connection lost")
	})
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		c.dispatch(msg.Topic(), string(msg.Payload()))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return fmt.Errorf("mqtt connect %s: %w", c.broker, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", c.broker, err)
	}

	c.client = client
	return nil
}

// Connected reports broker session health without blocking.
func (c *MQTTClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil && c.client.IsConnectionOpen()
}

// Disconnect tears the session down.
func (c *MQTTClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Disconnect(250)
		c.client = nil
	}
}

// Publish sends payload at QoS 0. Returns false on any failure; the
// fault accounting happens in the caller.
func (c *MQTTClient) Publish(topic, payload string, retain bool) bool {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return false
	}

	token := client.Publish(topic, 0, retain, payload)
	if !token.WaitTimeout(opTimeout) {
		return false
	}
	return token.Error() == nil
}

// Subscribe registers a topic at QoS 0, routing messages to the handler.
func (c *MQTTClient) Subscribe(topic string) bool {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return false
	}

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		c.dispatch(msg.Topic(), string(msg.Payload()))
	})
	if !token.WaitTimeout(opTimeout) {
		return false
	}
	return token.Error() == nil
}

// SetMessageHandler registers the inbound callback.
func (c *MQTTClient) SetMessageHandler(fn func(topic, payload string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

func (c *MQTTClient) dispatch(topic, payload string) {
	c.mu.Lock()
	fn := c.handler
	c.mu.Unlock()
	if fn != nil {
		fn(topic, payload)
	}
}
