// Package mqtt wraps the Eclipse Paho client behind the ingest Source and
// simulate Publisher contracts. QoS levels and session persistence follow
// the broker's own store-and-forward semantics; nothing is reimplemented
// here.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tosques/haus-telemetry/internal/config"
	"github.com/tosques/haus-telemetry/internal/ingest"
)

// messageBuffer decouples the paho callback goroutine from the ingress
// loop. The loop is the only consumer, so a small buffer suffices; if the
// store is slow the callback blocks, which is the intended no-backpressure
// behavior.
const messageBuffer = 64

// Consumer is the ingress-side broker session. It connects with a
// persistent client identity and a non-clean session so undelivered
// messages survive reconnects.
type Consumer struct {
	client   pahomqtt.Client
	messages chan ingest.Message
	topic    string
	qos      byte
	logger   *slog.Logger
}

// NewConsumer builds the consumer from config. The client is not connected
// yet; call Connect.
func NewConsumer(cfg *config.Ingress, logger *slog.Logger) *Consumer {
	c := &Consumer{
		messages: make(chan ingest.Message, messageBuffer),
		topic:    cfg.Topic,
		qos:      byte(cfg.QoS),
		logger:   logger,
	}
	c.client = pahomqtt.NewClient(newConsumerOptions(cfg, c))
	return c
}

// newConsumerOptions is split out so tests can inspect the session settings.
func newConsumerOptions(cfg *config.Ingress, c *Consumer) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetCleanSession(false).
		SetResumeSubs(true).
		SetAutoReconnect(true).
		SetOrderMatters(true)

	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.messages <- ingest.Message{Topic: msg.Topic(), Payload: msg.Payload()}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn("broker connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.logger.Info("broker connection established")
	})

	return opts
}

// Connect establishes the broker session. The returned flag reports whether
// the broker resumed a previous session; when true, the subscription from
// that session is still active and Subscribe can be skipped.
func (c *Consumer) Connect() (sessionPresent bool, err error) {
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return false, fmt.Errorf("connect to broker: %w", err)
	}

	if ct, ok := token.(*pahomqtt.ConnectToken); ok {
		return ct.SessionPresent(), nil
	}
	return false, nil
}

// EnsureSubscribed subscribes to the configured topic unless the broker
// resumed a session, in which case the subscription from that session is
// still active and subscribing again would be redundant.
func (c *Consumer) EnsureSubscribed(sessionPresent bool) error {
	if sessionPresent {
		c.logger.Info("broker session resumed, subscription already active", "topic", c.topic)
		return nil
	}
	if err := c.Subscribe(); err != nil {
		return err
	}
	c.logger.Info("subscribed", "topic", c.topic, "qos", c.qos)
	return nil
}

// Subscribe registers for the configured topic at the configured QoS.
// Incoming messages flow through the default publish handler.
func (c *Consumer) Subscribe() error {
	token := c.client.Subscribe(c.topic, c.qos, nil)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}
	return nil
}

// Receive blocks until the next message arrives or the context is
// cancelled. It implements ingest.Source.
func (c *Consumer) Receive(ctx context.Context) (ingest.Message, error) {
	select {
	case <-ctx.Done():
		return ingest.Message{}, ctx.Err()
	case msg := <-c.messages:
		return msg, nil
	}
}

// Close disconnects from the broker, allowing 250ms for in-flight work.
func (c *Consumer) Close() {
	c.client.Disconnect(250)
}
