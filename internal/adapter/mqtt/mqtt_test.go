package mqtt

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosques/haus-telemetry/internal/config"
	"github.com/tosques/haus-telemetry/internal/ingest"
)

func ingressConfig() *config.Ingress {
	return &config.Ingress{
		BrokerURL: "tcp://localhost:1883",
		ClientID:  "ingress",
		Topic:     "haus/dht",
		QoS:       1,
	}
}

func TestNewConsumerOptions_SessionSettings(t *testing.T) {
	cfg := ingressConfig()
	consumer := NewConsumer(cfg, slog.Default())
	opts := newConsumerOptions(cfg, consumer)

	// Persistent identity with a non-clean session so undelivered messages
	// survive reconnects.
	assert.Equal(t, "ingress", opts.ClientID)
	assert.False(t, opts.CleanSession)
	assert.True(t, opts.ResumeSubs)
	assert.True(t, opts.AutoReconnect)
	assert.True(t, opts.Order)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://localhost:1883", opts.Servers[0].String())
}

func TestNewPublisherOptions_CleanSession(t *testing.T) {
	cfg := &config.Simulator{
		BrokerURL: "tcp://localhost:1883",
		ClientID:  "fake-dht",
		Topic:     "haus/dht",
		QoS:       1,
	}

	p := NewPublisher(cfg, slog.Default())
	opts := newPublisherOptions(cfg, p)

	assert.Equal(t, "fake-dht", opts.ClientID)
	assert.True(t, opts.CleanSession)
}

func TestConsumer_Receive_DeliversBufferedMessage(t *testing.T) {
	consumer := NewConsumer(ingressConfig(), slog.Default())
	consumer.messages <- ingest.Message{Topic: "haus/dht", Payload: []byte(`{}`)}

	msg, err := consumer.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "haus/dht", msg.Topic)
	assert.Equal(t, []byte(`{}`), msg.Payload)
}

func TestConsumer_EnsureSubscribed_SkipsOnResumedSession(t *testing.T) {
	consumer := NewConsumer(ingressConfig(), slog.Default())

	// With a resumed session no subscribe call is made, so this succeeds
	// even though the client is not connected.
	assert.NoError(t, consumer.EnsureSubscribed(true))

	// Without a session the subscribe call goes to the (disconnected)
	// client and fails.
	assert.Error(t, consumer.EnsureSubscribed(false))
}

func TestConsumer_Receive_ContextCancelled(t *testing.T) {
	consumer := NewConsumer(ingressConfig(), slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := consumer.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
