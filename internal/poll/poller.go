// Package poll implements the dashboard's read loop: on a fixed cadence it
// fetches new points per series from the store and appends them to an
// in-memory growable buffer. A fetch for a series starts only when the
// previous one has finished, and the store serializes queries per
// connection, so at most one query per connection is ever in flight.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tosques/haus-telemetry/internal/domain"
	"github.com/tosques/haus-telemetry/internal/observability"
)

// Store is the read path of the time-series sink: all points on the series
// strictly newer than since, ascending.
type Store interface {
	GetNewMeasurements(ctx context.Context, series string, since time.Time) ([]domain.Measurement, error)
}

type fetchResult struct {
	series string
	points []domain.Measurement
	err    error
}

// Poller owns the per-series cursors and buffers. Cursors and in-flight
// flags are touched only by the Run goroutine; buffers are shared with
// HTTP handlers and guarded by mu.
type Poller struct {
	store    Store
	series   []string
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu        sync.RWMutex
	buffers   map[string][]domain.Measurement
	fetchErrs map[string]error

	cursors  map[string]time.Time
	inflight map[string]bool
	results  chan fetchResult
}

// New creates a Poller for the given series. Cursors start at the current
// time: the dashboard shows points that arrive from now on, not history.
func New(store Store, series []string, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	p := &Poller{
		store:     store,
		series:    series,
		interval:  interval,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		buffers:   make(map[string][]domain.Measurement, len(series)),
		fetchErrs: make(map[string]error, len(series)),
		cursors:   make(map[string]time.Time, len(series)),
		inflight:  make(map[string]bool, len(series)),
		results:   make(chan fetchResult),
	}
	now := clock.Now()
	for _, s := range series {
		p.cursors[s] = now
	}
	return p
}

// Run polls until the context is cancelled. Restartable on every tick: a
// failed fetch is logged, surfaced via LastError, and simply retried on
// the next tick.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started", "series", p.series, "interval", p.interval)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.startFetches(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return
		case res := <-p.results:
			p.finishFetch(res)
		case <-ticker.Chan():
			p.startFetches(ctx)
		}
	}
}

// startFetches launches one fetch per series, skipping any series whose
// previous fetch has not finished yet.
func (p *Poller) startFetches(ctx context.Context) {
	for _, series := range p.series {
		if p.inflight[series] {
			continue
		}
		p.inflight[series] = true

		go func(series string, since time.Time) {
			points, err := p.store.GetNewMeasurements(ctx, series, since)
			select {
			case p.results <- fetchResult{series: series, points: points, err: err}:
			case <-ctx.Done():
			}
		}(series, p.cursors[series])
	}
}

func (p *Poller) finishFetch(res fetchResult) {
	p.inflight[res.series] = false

	if res.err != nil {
		p.logger.Warn("fetch failed", "series", res.series, "error", res.err)
		p.metrics.PollFetches.WithLabelValues(res.series, "error").Inc()
		p.setFetchErr(res.series, res.err)
		return
	}
	p.setFetchErr(res.series, nil)

	if len(res.points) == 0 {
		p.metrics.PollFetches.WithLabelValues(res.series, "empty").Inc()
		return
	}
	p.metrics.PollFetches.WithLabelValues(res.series, "success").Inc()

	// Points arrive in ascending time order; the last one becomes the new
	// cursor so delivered points are never fetched again.
	p.cursors[res.series] = res.points[len(res.points)-1].Timestamp

	p.mu.Lock()
	p.buffers[res.series] = append(p.buffers[res.series], res.points...)
	p.mu.Unlock()
}

func (p *Poller) setFetchErr(series string, err error) {
	p.mu.Lock()
	p.fetchErrs[series] = err
	p.mu.Unlock()
}

// Snapshot returns a copy of the buffered points for the series that are
// strictly newer than after. A zero after returns everything.
func (p *Poller) Snapshot(series string, after time.Time) []domain.Measurement {
	p.mu.RLock()
	defer p.mu.RUnlock()

	buf := p.buffers[series]
	if after.IsZero() {
		return append([]domain.Measurement(nil), buf...)
	}

	var out []domain.Measurement
	for _, m := range buf {
		if m.Timestamp.After(after) {
			out = append(out, m)
		}
	}
	return out
}

// LastError reports the most recent fetch error for the series, or nil if
// the last fetch succeeded.
func (p *Poller) LastError(series string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fetchErrs[series]
}

// Series returns the polled series names.
func (p *Poller) Series() []string {
	return p.series
}
