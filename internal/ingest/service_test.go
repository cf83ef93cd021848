package ingest_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosques/haus-telemetry/internal/domain"
	"github.com/tosques/haus-telemetry/internal/ingest"
	"github.com/tosques/haus-telemetry/internal/observability"
)

// --- mocks ---

type mockSource struct {
	messages []ingest.Message
	index    atomic.Int64
}

func (m *mockSource) Receive(ctx context.Context) (ingest.Message, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.messages) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return ingest.Message{}, ctx.Err()
	}
	return m.messages[i], nil
}

type writeCall struct {
	series      string
	measurement domain.Measurement
}

type mockSink struct {
	mu     sync.Mutex
	writes []writeCall
	err    error
}

func (m *mockSink) WriteMeasurement(_ context.Context, series string, meas domain.Measurement) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, writeCall{series: series, measurement: meas})
	return nil
}

func (m *mockSink) calls() []writeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]writeCall(nil), m.writes...)
}

func newService(src ingest.Source, sink ingest.Sink) *ingest.Service {
	return ingest.New(src, sink, slog.Default(), observability.NewMetricsForTesting())
}

// --- tests ---

func TestService_Run_WritesBothSeries(t *testing.T) {
	src := &mockSource{messages: []ingest.Message{{
		Topic:   "haus/dht",
		Payload: []byte(`{"timestamp":"2024-01-01 12:00:00 UTC","temperature":20.0,"humidity":45.0}`),
	}}}
	sink := &mockSink{}

	svc := newService(src, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	require.NoError(t, err)

	calls := sink.calls()
	require.Len(t, calls, 2)

	// Temperature first, humidity second, per write call.
	assert.Equal(t, domain.SeriesTemperature, calls[0].series)
	assert.Equal(t, domain.SeriesHumidity, calls[1].series)

	want := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, calls[0].measurement.Timestamp.Equal(want))
	assert.True(t, calls[1].measurement.Timestamp.Equal(want))
	assert.InDelta(t, 20.0, calls[0].measurement.Value, 1e-9)
	assert.InDelta(t, 45.0, calls[1].measurement.Value, 1e-9)

	assert.NoError(t, svc.CheckReadiness(context.Background()))
}

func TestService_Run_SkipsPayloadWithoutTimestamp(t *testing.T) {
	src := &mockSource{messages: []ingest.Message{
		{Payload: []byte(`{"temperature":20.0,"humidity":45.0}`)},
		{Payload: []byte(`{"timestamp":"2024-01-01 12:00:01 UTC","temperature":21.0,"humidity":46.0}`)},
	}}
	sink := &mockSink{}

	svc := newService(src, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	require.NoError(t, err)

	// The bad payload produced zero writes; the loop went on to the next message.
	calls := sink.calls()
	require.Len(t, calls, 2)
	assert.InDelta(t, 21.0, calls[0].measurement.Value, 1e-9)
}

func TestService_Run_SkipsMalformedJSON(t *testing.T) {
	src := &mockSource{messages: []ingest.Message{
		{Payload: []byte(`"not json"`)},
	}}
	sink := &mockSink{}

	svc := newService(src, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, sink.calls())
	assert.Error(t, svc.CheckReadiness(context.Background()))
}

func TestService_Run_SinkErrorIsFatal(t *testing.T) {
	sinkErr := errors.New("store unreachable")
	src := &mockSource{messages: []ingest.Message{{
		Payload: []byte(`{"timestamp":"2024-01-01 12:00:00 UTC","temperature":20.0,"humidity":45.0}`),
	}}}
	sink := &mockSink{err: sinkErr}

	svc := newService(src, sink)

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sinkErr)
	assert.Error(t, svc.CheckReadiness(context.Background()))
}

func TestService_Run_ContextCancellation(t *testing.T) {
	src := &mockSource{} // no messages — will block
	sink := &mockSink{}

	svc := newService(src, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, sink.calls())
}

func TestService_Run_SourceErrorIsFatal(t *testing.T) {
	srcErr := errors.New("connection lost")
	svc := newService(failingSource{err: srcErr}, &mockSink{})

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, srcErr)
}

type failingSource struct {
	err error
}

func (f failingSource) Receive(context.Context) (ingest.Message, error) {
	return ingest.Message{}, f.err
}
