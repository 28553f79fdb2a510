// Package scheduler refreshes upstream metadata on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/prevailing-winds/internal/observability"
)

// Refresher reloads metadata. It is satisfied by *pipeline.Pipeline.
type Refresher interface {
	RefreshMetadata(ctx context.Context) error
}

// Scheduler periodically calls a Refresher.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Scheduler. Each refresh is bounded by timeout.
func New(refresher Refresher, interval, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the refresh job and starts the underlying scheduler. The first run
// happens one interval after Start; the pipeline loads metadata itself on startup.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(s.refresh)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("metadata refresh scheduled", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.refresher.RefreshMetadata(ctx); err != nil {
		s.metrics.MetadataRefresh.WithLabelValues("error").Inc()
		s.logger.Warn("metadata refresh failed", "error", err)
		return
	}
	s.metrics.MetadataRefresh.WithLabelValues("success").Inc()
	s.logger.Debug("metadata refreshed")
}
