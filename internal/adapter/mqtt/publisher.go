package mqtt

import (
	"fmt"
	"log/slog"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tosques/haus-telemetry/internal/config"
)

// Publisher is the simulator-side broker session. Unlike the consumer it
// uses a clean session: the simulator has no subscription state worth
// resuming.
type Publisher struct {
	client pahomqtt.Client
	topic  string
	qos    byte
	logger *slog.Logger
}

// NewPublisher builds the publisher from config. The client is not
// connected yet; call Connect.
func NewPublisher(cfg *config.Simulator, logger *slog.Logger) *Publisher {
	p := &Publisher{
		topic:  cfg.Topic,
		qos:    byte(cfg.QoS),
		logger: logger,
	}
	p.client = pahomqtt.NewClient(newPublisherOptions(cfg, p))
	return p
}

func newPublisherOptions(cfg *config.Simulator, p *Publisher) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true)

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		p.logger.Warn("broker connection lost", "error", err)
	})

	return opts
}

// Connect establishes the broker session.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// Publish sends one payload to the configured topic, blocking until the
// broker acknowledges it per the configured QoS. It implements
// simulate.Publisher.
func (p *Publisher) Publish(payload []byte) error {
	token := p.client.Publish(p.topic, p.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close disconnects from the broker, allowing 250ms for in-flight work.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
