package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
	"github.com/couchcryptid/prevailing-winds/internal/observability"
	"github.com/couchcryptid/prevailing-winds/internal/selection"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxAttempts    = 3
)

var (
	// ErrNotReady is returned until the dataset metadata has been loaded.
	ErrNotReady = errors.New("dataset metadata not loaded yet")

	// ErrTooManyCells is returned when a rectangle covers more grid cells than allowed.
	ErrTooManyCells = errors.New("selection covers too many grid cells")
)

// WeatherSource is the upstream data API.
type WeatherSource interface {
	Metadata(ctx context.Context) (domain.Metadata, error)
	Weather(ctx context.Context, q domain.WeatherQuery) (domain.WeatherResult, error)
}

// SummaryPublisher forwards summaries applied to the current selection.
type SummaryPublisher interface {
	Publish(ctx context.Context, sel selection.Selection, summary domain.Summary) error
}

// Pipeline dispatches selections to the weather source and applies only the newest
// result to the selection state.
type Pipeline struct {
	source    WeatherSource
	state     *selection.State
	publisher SummaryPublisher
	catalogs  domain.Catalogs
	maxCells  int
	logger    *slog.Logger
	metrics   *observability.Metrics

	meta      atomic.Pointer[domain.Metadata]
	ready     atomic.Bool
	requests  chan selection.Selection
	enqueueMu sync.Mutex
}

// New creates a Pipeline. publisher may be nil.
func New(source WeatherSource, state *selection.State, publisher SummaryPublisher, catalogs domain.Catalogs, maxCells int, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:    source,
		state:     state,
		publisher: publisher,
		catalogs:  catalogs,
		maxCells:  maxCells,
		logger:    logger,
		metrics:   metrics,
		requests:  make(chan selection.Selection, 1),
	}
}

// CheckReadiness returns nil once the dataset metadata is loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return ErrNotReady
	}
	return nil
}

// Metadata returns the loaded dataset metadata.
func (p *Pipeline) Metadata() (domain.Metadata, bool) {
	m := p.meta.Load()
	if m == nil {
		return domain.Metadata{}, false
	}
	return *m, true
}

// Catalogs returns the bin catalogs used for summaries.
func (p *Pipeline) Catalogs() domain.Catalogs {
	return p.catalogs
}

// State returns the selection state the pipeline applies results to.
func (p *Pipeline) State() *selection.State {
	return p.state
}

// RefreshMetadata reloads the dataset metadata from the source.
func (p *Pipeline) RefreshMetadata(ctx context.Context) error {
	meta, err := p.source.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	if !meta.Loaded() {
		return errors.New("load metadata: response has no time ranges, months or wind velocities")
	}
	if err := p.catalogs.CheckMetadata(meta); err != nil {
		p.logger.Warn("bin catalogs disagree with metadata ranges", "error", err)
	}
	p.meta.Store(&meta)
	if !p.ready.Swap(true) {
		p.logger.Info("dataset metadata loaded",
			"pipeline_id", meta.PipelineID,
			"build_date", meta.BuildDate,
			"time_ranges", len(meta.TimeRanges),
		)
	}
	return nil
}

// Select validates a click, stores it as the current selection and queues it for
// querying. A queued selection that has not started yet is replaced.
func (p *Pipeline) Select(req selection.Request) (selection.Selection, error) {
	if _, err := p.prepare(req); err != nil {
		return selection.Selection{}, err
	}
	// The generation bump and the enqueue happen under one lock so the queued
	// selection is always the newest one.
	p.enqueueMu.Lock()
	defer p.enqueueMu.Unlock()
	sel, err := p.state.Select(req)
	if err != nil {
		p.reject("invalid")
		return selection.Selection{}, err
	}
	p.metrics.SelectionsReceived.Inc()

	select {
	case p.requests <- sel:
	default:
		select {
		case <-p.requests:
		default:
		}
		p.requests <- sel
	}
	return sel, nil
}

// Summarize answers a click synchronously without touching the selection state.
func (p *Pipeline) Summarize(ctx context.Context, req selection.Request) (domain.Summary, error) {
	sel, err := p.prepare(req)
	if err != nil {
		return domain.Summary{}, err
	}
	meta, _ := p.Metadata()
	res, err := p.fetch(ctx, sel.Query())
	if err != nil {
		return domain.Summary{}, err
	}
	summary := domain.Summarize(sel.Query(), res, meta, p.catalogs)
	p.recordUnmapped(summary)
	return summary, nil
}

// prepare checks metadata, time range, month and grid cell count for a request.
func (p *Pipeline) prepare(req selection.Request) (selection.Selection, error) {
	meta, ok := p.Metadata()
	if !ok {
		return selection.Selection{}, ErrNotReady
	}
	if err := meta.ValidateQuery(req.TimeRange, req.Month); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownTimeRange):
			p.reject("unknown_time_range")
		case errors.Is(err, domain.ErrUnknownMonth):
			p.reject("unknown_month")
		}
		return selection.Selection{}, err
	}
	sel, err := p.state.Preview(req)
	if err != nil {
		p.reject("invalid")
		return selection.Selection{}, err
	}
	cells := len(p.state.Selector().GridCells(sel.Rect))
	p.metrics.QueryCells.Observe(float64(cells))
	if cells > p.maxCells {
		p.reject("too_many_cells")
		return selection.Selection{}, fmt.Errorf("%w: %d > %d", ErrTooManyCells, cells, p.maxCells)
	}
	return sel, nil
}

func (p *Pipeline) reject(reason string) {
	p.metrics.SelectionsRejected.WithLabelValues(reason).Inc()
}

// Run loads the metadata, then dispatches selections until the context is cancelled.
// A new selection cancels the query of the previous one.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "max_query_cells", p.maxCells)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if !p.loadMetadata(ctx) {
		p.logger.Info("pipeline stopping", "reason", ctx.Err())
		return nil
	}

	var (
		wg       sync.WaitGroup
		cancel   context.CancelFunc = func() {}
		inflight chan struct{}
	)
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case sel := <-p.requests:
			if inflight != nil {
				select {
				case <-inflight:
				default:
					p.metrics.QueriesSuperseded.Inc()
					p.logger.Debug("superseding in-flight query", "generation", sel.Generation)
				}
			}
			cancel()

			var qctx context.Context
			qctx, cancel = context.WithCancel(ctx)
			done := make(chan struct{})
			inflight = done

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer close(done)
				p.process(qctx, sel)
			}()
		}
	}
}

// loadMetadata retries RefreshMetadata with backoff. Returns false if the context ends first.
func (p *Pipeline) loadMetadata(ctx context.Context) bool {
	if p.ready.Load() {
		return true
	}
	backoff := initialBackoff
	for {
		err := p.RefreshMetadata(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("metadata load failed", "error", err, "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// process queries, summarizes and applies one selection.
func (p *Pipeline) process(ctx context.Context, sel selection.Selection) {
	start := time.Now()
	logger := p.logger.With("selection_id", sel.ID.String(), "generation", sel.Generation)

	res, err := p.fetch(ctx, sel.Query())
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Error("weather query failed", "error", err)
		if !p.state.Fail(sel.Generation, err) {
			p.metrics.StaleResponses.Inc()
		}
		return
	}

	meta, _ := p.Metadata()
	summary := domain.Summarize(sel.Query(), res, meta, p.catalogs)
	p.recordUnmapped(summary)

	if !p.state.Complete(sel.Generation, summary) {
		p.metrics.StaleResponses.Inc()
		logger.Debug("discarding stale summary")
		return
	}
	p.metrics.SummariesApplied.Inc()
	p.metrics.QueryDuration.Observe(time.Since(start).Seconds())
	logger.Info("selection summarized",
		"cells", len(p.state.Selector().GridCells(sel.Rect)),
		"wind_records", len(res.Winds),
		"duration", time.Since(start),
	)

	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, sel, summary); err != nil {
		p.metrics.PublishErrors.Inc()
		logger.Warn("publish summary failed", "error", err)
		return
	}
	p.metrics.SummariesPublished.Inc()
}

// fetch queries the source, retrying transient failures with exponential backoff.
func (p *Pipeline) fetch(ctx context.Context, q domain.WeatherQuery) (domain.WeatherResult, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := p.source.Weather(ctx, q)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, domain.ErrSourceUnavailable) || errors.Is(err, domain.ErrQueryRejected) {
			break
		}
		if attempt == maxAttempts {
			break
		}
		p.logger.Warn("weather query failed, retrying", "error", err, "attempt", attempt, "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return domain.WeatherResult{}, fmt.Errorf("query weather: %w", lastErr)
}

func (p *Pipeline) recordUnmapped(s domain.Summary) {
	for phenomenon, n := range s.Unmapped {
		p.metrics.UnmappedRecords.WithLabelValues(phenomenon).Add(float64(n))
		p.logger.Warn("records with unmapped category index excluded",
			"phenomenon", phenomenon,
			"records", n,
			"time_range", s.Query.TimeRange,
			"month", s.Query.Month,
		)
	}
}
