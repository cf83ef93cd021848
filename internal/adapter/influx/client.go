// Package influx wraps the InfluxDB v2 client behind the ingest Sink and
// poll Store contracts. Storage, indexing, and retention are entirely the
// database's business; this package only builds points and queries.
package influx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/tosques/haus-telemetry/internal/domain"
)

// Client is a thin handle over one InfluxDB connection. Writes go through
// the blocking write API; queries are serialized by a mutex so that at most
// one query per connection is in flight, even when the dashboard polls two
// series concurrently.
type Client struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	query  api.QueryAPI
	bucket string
	logger *slog.Logger

	queryMu sync.Mutex
}

// NewClient creates a client for the given endpoint. Token and org may be
// empty for an unauthenticated single-user setup.
func NewClient(url, token, org, bucket string, logger *slog.Logger) *Client {
	c := influxdb2.NewClient(url, token)
	return &Client{
		client: c,
		writer: c.WriteAPIBlocking(org, bucket),
		query:  c.QueryAPI(org),
		bucket: bucket,
		logger: logger,
	}
}

// Ping verifies the server is reachable. Called once at startup; an
// unreachable store is a fatal configuration problem, not something to
// retry here.
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping influxdb: %w", err)
	}
	if !ok {
		return errors.New("ping influxdb: server not ready")
	}
	return nil
}

// WriteMeasurement persists one measurement as a point on the named series,
// carrying a single field "value" and the measurement's own timestamp.
// It implements ingest.Sink.
func (c *Client) WriteMeasurement(ctx context.Context, series string, m domain.Measurement) error {
	if err := c.writer.WritePoint(ctx, newPoint(series, m)); err != nil {
		return fmt.Errorf("write %s point: %w", series, err)
	}
	return nil
}

func newPoint(series string, m domain.Measurement) *write.Point {
	return influxdb2.NewPoint(
		series,
		nil,
		map[string]interface{}{"value": m.Value},
		m.Timestamp,
	)
}

// GetNewMeasurements returns all points on the series strictly newer than
// since, in ascending time order. It implements poll.Store.
func (c *Client) GetNewMeasurements(ctx context.Context, series string, since time.Time) ([]domain.Measurement, error) {
	c.queryMu.Lock()
	defer c.queryMu.Unlock()

	result, err := c.query.Query(ctx, newMeasurementsFlux(c.bucket, series, since))
	if err != nil {
		return nil, fmt.Errorf("query %s series: %w", series, err)
	}

	var points []domain.Measurement
	for result.Next() {
		record := result.Record()
		value, ok := record.Value().(float64)
		if !ok {
			c.logger.Warn("skipping non-numeric value", "series", series, "value", record.Value())
			continue
		}
		points = append(points, domain.Measurement{
			Timestamp: record.Time(),
			Value:     value,
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read %s query result: %w", series, err)
	}

	return points, nil
}

// newMeasurementsFlux builds the poll query. Flux range starts are
// inclusive, so the cursor is advanced by one nanosecond to get strictly
// newer points.
func newMeasurementsFlux(bucket, series string, since time.Time) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: time(v: %d))
  |> filter(fn: (r) => r._measurement == %q and r._field == "value")
  |> sort(columns: ["_time"])`,
		bucket, since.UnixNano()+1, series)
}

// Close flushes and releases the underlying connection.
func (c *Client) Close() {
	c.client.Close()
}
