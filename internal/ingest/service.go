package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tosques/haus-telemetry/internal/domain"
	"github.com/tosques/haus-telemetry/internal/observability"
)

// Message is one raw payload delivered by the broker.
type Message struct {
	Topic   string
	Payload []byte
}

// Source delivers messages one at a time, blocking until the next message
// arrives or the context is cancelled.
type Source interface {
	Receive(ctx context.Context) (Message, error)
}

// Sink persists a single measurement under the named series. Implementations
// must be safe for use from the loop goroutine; errors are not retried here.
type Sink interface {
	WriteMeasurement(ctx context.Context, series string, m domain.Measurement) error
}

// Service is the ingress loop: receive, parse, write, forever. Parse
// failures skip the offending message; anything else terminates the loop.
type Service struct {
	source  Source
	sink    Sink
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates the ingress Service with the given source and sink.
func New(source Source, sink Sink, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		source:  source,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once at least one reading has been written,
// or an error describing why the service is not yet ready.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no reading ingested yet")
	}
	return nil
}

// Run executes the receive-parse-write loop until the context is cancelled
// or a fatal error occurs. Messages are processed strictly in delivery
// order on a single goroutine. A nil return means graceful shutdown; a
// non-nil return is process-fatal (store or broker failure).
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("ingress loop started")
	s.metrics.IngestRunning.Set(1)
	defer s.metrics.IngestRunning.Set(0)

	for {
		msg, err := s.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("ingress loop stopping", "reason", ctx.Err())
				return nil
			}
			return fmt.Errorf("receive message: %w", err)
		}
		s.metrics.MessagesConsumed.Inc()

		reading, err := domain.ParsePayload(msg.Payload)
		if err != nil {
			// The broker has already delivered this message per its QoS
			// rules; there is nothing to retry. Log it and move on.
			s.logger.Warn("payload rejected",
				"error", err,
				"topic", msg.Topic,
				"payload", string(msg.Payload),
			)
			s.metrics.ParseErrors.Inc()
			continue
		}

		if err := s.writeReading(ctx, reading); err != nil {
			return err
		}
		s.ready.Store(true)
	}
}

// writeReading writes the temperature point then the humidity point as two
// independent calls. There is no transaction spanning the two writes, so a
// failure of either is not compensated; it propagates and ends the loop.
func (s *Service) writeReading(ctx context.Context, r domain.Reading) error {
	start := time.Now()

	if err := s.sink.WriteMeasurement(ctx, domain.SeriesTemperature, r.Temperature); err != nil {
		return fmt.Errorf("write temperature point: %w", err)
	}
	if err := s.sink.WriteMeasurement(ctx, domain.SeriesHumidity, r.Humidity); err != nil {
		return fmt.Errorf("write humidity point: %w", err)
	}

	s.metrics.PointsWritten.Add(2)
	s.metrics.WriteDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug("reading ingested",
		"timestamp", r.Temperature.Timestamp,
		"temperature", r.Temperature.Value,
		"humidity", r.Humidity.Value,
	)
	return nil
}
