// Command dashboard polls the time-series store and serves a live chart of
// the temperature and humidity series.
//
// Usage:
//
//	dashboard --influx localhost:8086
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

	"github.com/jonboulle/clockwork"

	"github.com/tosques/haus-telemetry/internal/adapter/influx"
	"github.com/tosques/haus-telemetry/internal/config"
	"github.com/tosques/haus-telemetry/internal/dashboard"
	"github.com/tosques/haus-telemetry/internal/domain"
	"github.com/tosques/haus-telemetry/internal/observability"
	"github.com/tosques/haus-telemetry/internal/poll"
)

func main() {
	cfg, err := config.LoadDashboard(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("dashboard terminated", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Dashboard, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := influx.NewClient(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, logger)
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("influxdb unreachable: %w", err)
	}
	logger.Info("influxdb connected", "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)

	poller := poll.New(store,
		[]string{domain.SeriesTemperature, domain.SeriesHumidity},
		cfg.PollInterval, clockwork.NewRealClock(), logger, metrics)
	go poller.Run(ctx)

	srv := dashboard.NewServer(cfg.HTTPAddr, poller, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("dashboard server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("dashboard server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
