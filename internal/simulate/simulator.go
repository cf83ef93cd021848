// Package simulate produces fake DHT22 readings for demo setups without
// real sensor hardware.
package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tosques/haus-telemetry/internal/domain"
)

// Publisher sends one encoded payload to the broker, blocking until the
// broker acknowledges it.
type Publisher interface {
	Publish(payload []byte) error
}

// Params bound the generated values: each reading is base ± delta, drawn
// uniformly.
type Params struct {
	BaseTemperature  float64
	TemperatureDelta float64
	BaseHumidity     float64
	HumidityDelta    float64
	Interval         time.Duration
}

// DefaultParams mimics an indoor DHT22: 18±3 °C, 50±5 %RH, one reading per
// second.
func DefaultParams() Params {
	return Params{
		BaseTemperature:  18.0,
		TemperatureDelta: 3.0,
		BaseHumidity:     50.0,
		HumidityDelta:    5.0,
		Interval:         time.Second,
	}
}

// Simulator publishes randomized readings on a fixed cadence. The random
// source and clock are injected so tests are deterministic.
type Simulator struct {
	pub    Publisher
	params Params
	rng    *rand.Rand
	clock  clockwork.Clock
	logger *slog.Logger
}

// New creates a Simulator.
func New(pub Publisher, params Params, rng *rand.Rand, clock clockwork.Clock, logger *slog.Logger) *Simulator {
	return &Simulator{
		pub:    pub,
		params: params,
		rng:    rng,
		clock:  clock,
		logger: logger,
	}
}

// Run publishes one reading per interval until the context is cancelled.
// A publish failure is fatal; the process supervisor restarts us.
func (s *Simulator) Run(ctx context.Context) error {
	s.logger.Info("simulator started", "interval", s.params.Interval)

	ticker := s.clock.NewTicker(s.params.Interval)
	defer ticker.Stop()

	for {
		reading := s.NextReading()
		payload, err := domain.EncodePayload(reading)
		if err != nil {
			return err
		}
		if err := s.pub.Publish(payload); err != nil {
			return fmt.Errorf("publish reading: %w", err)
		}
		s.logger.Debug("reading published", "payload", string(payload))

		select {
		case <-ctx.Done():
			s.logger.Info("simulator stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// NextReading draws one randomized reading stamped with the current time.
func (s *Simulator) NextReading() domain.Reading {
	now := s.clock.Now()
	return domain.Reading{
		Temperature: domain.Measurement{
			Timestamp: now,
			Value:     s.jitter(s.params.BaseTemperature, s.params.TemperatureDelta),
		},
		Humidity: domain.Measurement{
			Timestamp: now,
			Value:     s.jitter(s.params.BaseHumidity, s.params.HumidityDelta),
		},
	}
}

// jitter returns base + u*delta with u uniform in [-1, 1).
func (s *Simulator) jitter(base, delta float64) float64 {
	return base + (s.rng.Float64()*2-1)*delta
}
