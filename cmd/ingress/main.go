// Command ingress subscribes to the sensor MQTT topic, parses each JSON
// payload into a temperature/humidity pair, and writes both points to
// InfluxDB.
//
// Usage:
//
//	ingress --influx localhost:8086 --mqtt localhost:1883
//
// Startup failures (bad flags, unreachable broker or store) and storage
// write failures terminate the process with status 1; restarting is the
// supervisor's job. Malformed payloads are logged and skipped.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/tosques/haus-telemetry/internal/adapter/http"
	"github.com/tosques/haus-telemetry/internal/adapter/influx"
	"github.com/tosques/haus-telemetry/internal/adapter/mqtt"
	"github.com/tosques/haus-telemetry/internal/config"
	"github.com/tosques/haus-telemetry/internal/ingest"
	"github.com/tosques/haus-telemetry/internal/observability"
)

func main() {
	cfg, err := config.LoadIngress(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("ingress terminated", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Ingress, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := influx.NewClient(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, logger)
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("influxdb unreachable: %w", err)
	}
	logger.Info("influxdb connected", "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)

	consumer := mqtt.NewConsumer(cfg, logger)
	sessionPresent, err := consumer.Connect()
	if err != nil {
		return fmt.Errorf("mqtt unreachable: %w", err)
	}
	defer consumer.Close()

	if err := consumer.EnsureSubscribed(sessionPresent); err != nil {
		return err
	}

	svc := ingest.New(consumer, store, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()

	runErr := svc.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("shutdown complete")
	return nil
}
