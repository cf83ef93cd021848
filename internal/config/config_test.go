package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIngress_Defaults(t *testing.T) {
	cfg, err := LoadIngress([]string{"--influx", "localhost:8086", "--mqtt", "localhost:1883"})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8086", cfg.InfluxURL)
	assert.Equal(t, "tcp://localhost:1883", cfg.BrokerURL)
	assert.Equal(t, "haus", cfg.InfluxBucket)
	assert.Equal(t, "ingress", cfg.ClientID)
	assert.Equal(t, "haus/dht", cfg.Topic)
	assert.Equal(t, 1, cfg.QoS)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadIngress_MissingFlags(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"no flags", nil},
		{"missing mqtt", []string{"--influx", "localhost:8086"}},
		{"missing influx", []string{"--mqtt", "localhost:1883"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadIngress(tc.args)
			assert.Error(t, err)
		})
	}
}

func TestLoadIngress_CustomEnv(t *testing.T) {
	t.Setenv("MQTT_TOPIC", "keller/dht")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("MQTT_CLIENT_ID", "ingress-2")
	t.Setenv("INFLUX_BUCKET", "keller")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := LoadIngress([]string{"--influx", "http://influx:8086", "--mqtt", "ws://broker:8083"})
	require.NoError(t, err)

	assert.Equal(t, "http://influx:8086", cfg.InfluxURL)
	assert.Equal(t, "ws://broker:8083", cfg.BrokerURL)
	assert.Equal(t, "keller/dht", cfg.Topic)
	assert.Equal(t, 2, cfg.QoS)
	assert.Equal(t, "ingress-2", cfg.ClientID)
	assert.Equal(t, "keller", cfg.InfluxBucket)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadIngress_InvalidQoS(t *testing.T) {
	for _, qos := range []string{"3", "-1", "two"} {
		t.Setenv("MQTT_QOS", qos)
		_, err := LoadIngress([]string{"--influx", "localhost:8086", "--mqtt", "localhost:1883"})
		assert.Error(t, err, "qos %s", qos)
	}
}

func TestLoadSimulator(t *testing.T) {
	cfg, err := LoadSimulator([]string{"--mqtt", "localhost:1883"})
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.BrokerURL)
	assert.Equal(t, "fake-dht", cfg.ClientID)
	assert.Equal(t, "haus/dht", cfg.Topic)
	assert.Equal(t, time.Second, cfg.PublishInterval)

	_, err = LoadSimulator(nil)
	assert.Error(t, err)
}

func TestLoadDashboard(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "250ms")

	cfg, err := LoadDashboard([]string{"--influx", "localhost:8086"})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8086", cfg.InfluxURL)
	assert.Equal(t, ":8090", cfg.HTTPAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)

	_, err = LoadDashboard(nil)
	assert.Error(t, err)
}

func TestLoadDashboard_InvalidPollInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "soon")
	_, err := LoadDashboard([]string{"--influx", "localhost:8086"})
	assert.Error(t, err)
}
