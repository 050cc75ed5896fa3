package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-anomaly-etl/internal/domain"
	"github.com/couchcryptid/weather-anomaly-etl/internal/observability"
)

// ObservationFetcher retrieves the current live reading. A (nil, nil) return
// means the source responded but had nothing usable to append.
type ObservationFetcher interface {
	FetchCurrent(ctx context.Context) (*domain.Observation, error)
}

// HistoricalSource loads every raw historical row from object storage.
type HistoricalSource interface {
	LoadRaw(ctx context.Context) ([]domain.RawRow, error)
}

// ArtifactPublisher uploads the combined wide table.
type ArtifactPublisher interface {
	Publish(ctx context.Context, rows []domain.WideRow) error
}

// RowSink streams published rows to an optional downstream transport.
type RowSink interface {
	PublishRows(ctx context.Context, rows []domain.WideRow) error
}

// Result summarizes one completed run for logging and the status endpoint.
type Result struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	RawRows       int `json:"raw_rows"`
	CanonicalRows int `json:"canonical_rows"`
	FlaggedRows   int `json:"flagged_rows"`
	PublishedRows int `json:"published_rows"`
	DroppedRows   int `json:"dropped_rows"`
	FlagConflicts int `json:"flag_conflicts"`

	LiveFetched bool   `json:"live_fetched"`
	LiveError   string `json:"live_error,omitempty"`
}

// Pipeline orchestrates the extract-transform-publish cycle.
type Pipeline struct {
	fetcher   ObservationFetcher
	source    HistoricalSource
	publisher ArtifactPublisher
	sink      RowSink // nil when no downstream sink is configured
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	interval  time.Duration

	ready atomic.Bool

	mu      sync.Mutex
	last    Result
	hasLast bool
}

// New creates a Pipeline with the given stages and observability. sink may be
// nil.
func New(fetcher ObservationFetcher, source HistoricalSource, publisher ArtifactPublisher, sink RowSink,
	logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, interval time.Duration) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		source:    source,
		publisher: publisher,
		sink:      sink,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		interval:  interval,
	}
}

// CheckReadiness returns nil once the pipeline has published at least one
// artifact, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published an artifact yet")
	}
	return nil
}

// LastResult returns the most recent run summary, if any run has completed.
func (p *Pipeline) LastResult() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

// RunOnce executes one extract-transform-publish cycle.
//
// A failed live fetch degrades the run to historical data only; a failed
// historical load or artifact upload fails the run. Sink errors are logged
// but do not fail the run, since the artifact is the system of record.
func (p *Pipeline) RunOnce(ctx context.Context) (Result, error) {
	res := Result{StartedAt: p.clock.Now()}
	defer func() {
		res.Duration = p.clock.Since(res.StartedAt)
		p.metrics.RunDuration.Observe(res.Duration.Seconds())
	}()

	obs := p.fetchLive(ctx, &res)

	raw, err := p.source.LoadRaw(ctx)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("load historical rows: %w", err)
	}
	res.RawRows = len(raw)
	p.metrics.RawRowsLoaded.Add(float64(len(raw)))

	norm := domain.Normalize(raw)
	res.CanonicalRows = len(norm.Rows)
	p.metrics.RowsNormalized.Add(float64(len(norm.Rows)))
	p.logger.Debug("normalized rows",
		"legacy", norm.LegacyRows,
		"native", norm.NativeRows,
		"melted", norm.MeltedRows,
		"dropped", norm.DroppedRows)

	flagged := domain.FlagHistorical(norm.Rows)
	res.FlaggedRows = len(flagged.Rows)
	res.DroppedRows = norm.DroppedRows + flagged.DroppedRows
	res.FlagConflicts = flagged.FlagConflicts
	p.metrics.RowsDropped.Add(float64(res.DroppedRows))
	p.metrics.FlagConflicts.Add(float64(flagged.FlagConflicts))

	var live *domain.WideRow
	if obs != nil {
		pair := domain.FlagObservation(flagged.Baseline, obs.CanonicalRow())
		row := domain.LiveWideRow(*obs, pair)
		live = &row
	}

	pivoted := domain.Pivot(flagged.Rows, live)
	if pivoted.DroppedElements > 0 {
		p.logger.Debug("dropped unknown elements", "count", pivoted.DroppedElements)
	}

	if err := p.publisher.Publish(ctx, pivoted.Rows); err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("publish artifact: %w", err)
	}
	res.PublishedRows = len(pivoted.Rows)
	p.metrics.PublishedRows.Set(float64(len(pivoted.Rows)))

	if p.sink != nil {
		if err := p.sink.PublishRows(ctx, pivoted.Rows); err != nil {
			p.logger.Warn("row sink publish failed", "error", err)
		}
	}

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.ready.Store(true)

	p.mu.Lock()
	p.last = res
	p.hasLast = true
	p.mu.Unlock()

	p.logger.Info("run complete",
		"raw_rows", res.RawRows,
		"canonical_rows", res.CanonicalRows,
		"published_rows", res.PublishedRows,
		"dropped_rows", res.DroppedRows,
		"flag_conflicts", res.FlagConflicts,
		"live_fetched", res.LiveFetched)
	return res, nil
}

// fetchLive attempts the live reading, degrading to nil on failure.
func (p *Pipeline) fetchLive(ctx context.Context, res *Result) *domain.Observation {
	obs, err := p.fetcher.FetchCurrent(ctx)
	if err != nil {
		res.LiveError = err.Error()
		p.logger.Warn("live fetch failed, continuing with historical data only", "error", err)
		return nil
	}
	res.LiveFetched = obs != nil
	return obs
}

// Run executes an immediate cycle, then repeats on the configured interval
// until the context is cancelled. Run errors are logged; the loop keeps going
// so a transient upstream outage does not take the service down.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if _, err := p.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.logger.Error("run failed", "error", err)
	}

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			if _, err := p.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Error("run failed", "error", err)
			}
		}
	}
}
