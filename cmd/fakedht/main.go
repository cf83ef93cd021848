// Command fakedht publishes randomized DHT22-style readings to the sensor
// MQTT topic, for demo setups without real hardware.
//
// Usage:
//
//	fakedht --mqtt localhost:1883
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tosques/haus-telemetry/internal/adapter/mqtt"
	"github.com/tosques/haus-telemetry/internal/config"
	"github.com/tosques/haus-telemetry/internal/observability"
	"github.com/tosques/haus-telemetry/internal/simulate"
)

func main() {
	cfg, err := config.LoadSimulator(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("fakedht terminated", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Simulator, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub := mqtt.NewPublisher(cfg, logger)
	if err := pub.Connect(); err != nil {
		return fmt.Errorf("mqtt unreachable: %w", err)
	}
	defer pub.Close()
	logger.Info("broker connected", "url", cfg.BrokerURL, "topic", cfg.Topic)

	params := simulate.DefaultParams()
	params.Interval = cfg.PublishInterval

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sim := simulate.New(pub, params, rng, clockwork.NewRealClock(), logger)

	if err := sim.Run(ctx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
