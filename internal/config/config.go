// Package config loads per-binary settings. The two connection endpoints
// are CLI flags (--influx, --mqtt) and are required; everything ambient
// (topic, QoS, client ids, logging, HTTP address, poll cadence) comes from
// environment variables with defaults. A .env file is honored when present.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MQTT defaults shared by the ingress service and the simulator.
const (
	DefaultTopic = "haus/dht"
	DefaultQoS   = 1
)

// Ingress holds the settings of the ingress service.
type Ingress struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	BrokerURL string
	ClientID  string
	Topic     string
	QoS       int

	HTTPAddr  string
	LogLevel  string
	LogFormat string
}

// Simulator holds the settings of the fake-dht publisher.
type Simulator struct {
	BrokerURL string
	ClientID  string
	Topic     string
	QoS       int

	PublishInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Dashboard holds the settings of the visualization service.
type Dashboard struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	HTTPAddr     string
	PollInterval time.Duration

	LogLevel  string
	LogFormat string
}

// LoadIngress parses ingress flags and environment. A missing required flag
// prints usage to stderr and returns an error; the caller exits non-zero.
func LoadIngress(args []string) (*Ingress, error) {
	loadDotenv()

	fs := flag.NewFlagSet("ingress", flag.ContinueOnError)
	influx := fs.String("influx", "", "InfluxDB endpoint, e.g. localhost:8086 (required)")
	broker := fs.String("mqtt", "", "MQTT broker URL, e.g. tcp://localhost:1883 (required)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	qos, err := parseQoS()
	if err != nil {
		return nil, err
	}

	cfg := &Ingress{
		InfluxURL:    normalizeInfluxURL(*influx),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    envOrDefault("INFLUX_ORG", ""),
		InfluxBucket: envOrDefault("INFLUX_BUCKET", "haus"),
		BrokerURL:    normalizeBrokerURL(*broker),
		ClientID:     envOrDefault("MQTT_CLIENT_ID", "ingress"),
		Topic:        envOrDefault("MQTT_TOPIC", DefaultTopic),
		QoS:          qos,
		HTTPAddr:     envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		LogFormat:    envOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.InfluxURL == "" || cfg.BrokerURL == "" {
		fs.SetOutput(os.Stderr)
		fs.Usage()
		return nil, errors.New("both --influx and --mqtt are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("MQTT_TOPIC must not be empty")
	}

	return cfg, nil
}

// LoadSimulator parses fake-dht flags and environment.
func LoadSimulator(args []string) (*Simulator, error) {
	loadDotenv()

	fs := flag.NewFlagSet("fakedht", flag.ContinueOnError)
	broker := fs.String("mqtt", "", "MQTT broker URL, e.g. tcp://localhost:1883 (required)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	qos, err := parseQoS()
	if err != nil {
		return nil, err
	}

	interval, err := envDuration("PUBLISH_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Simulator{
		BrokerURL:       normalizeBrokerURL(*broker),
		ClientID:        envOrDefault("MQTT_CLIENT_ID", "fake-dht"),
		Topic:           envOrDefault("MQTT_TOPIC", DefaultTopic),
		QoS:             qos,
		PublishInterval: interval,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.BrokerURL == "" {
		fs.SetOutput(os.Stderr)
		fs.Usage()
		return nil, errors.New("--mqtt is required")
	}

	return cfg, nil
}

// LoadDashboard parses dashboard flags and environment.
func LoadDashboard(args []string) (*Dashboard, error) {
	loadDotenv()

	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	influx := fs.String("influx", "", "InfluxDB endpoint, e.g. localhost:8086 (required)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	interval, err := envDuration("POLL_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Dashboard{
		InfluxURL:    normalizeInfluxURL(*influx),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    envOrDefault("INFLUX_ORG", ""),
		InfluxBucket: envOrDefault("INFLUX_BUCKET", "haus"),
		HTTPAddr:     envOrDefault("HTTP_ADDR", ":8090"),
		PollInterval: interval,
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		LogFormat:    envOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.InfluxURL == "" {
		fs.SetOutput(os.Stderr)
		fs.Usage()
		return nil, errors.New("--influx is required")
	}

	return cfg, nil
}

// normalizeInfluxURL accepts either a bare host:port or a full URL.
func normalizeInfluxURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		return s
	}
	return "http://" + s
}

// normalizeBrokerURL defaults bare host:port endpoints to plain TCP.
func normalizeBrokerURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		return s
	}
	return "tcp://" + s
}

func parseQoS() (int, error) {
	s := envOrDefault("MQTT_QOS", strconv.Itoa(DefaultQoS))
	qos, err := strconv.Atoi(s)
	if err != nil || qos < 0 || qos > 2 {
		return 0, fmt.Errorf("invalid MQTT_QOS %q: must be 0, 1, or 2", s)
	}
	return qos, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadDotenv() {
	// Best effort; a missing .env file is the normal case.
	_ = godotenv.Load()
}
