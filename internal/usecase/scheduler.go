package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/ports"
)

// Scheduler wires the interval driver with the ingest and retention use cases.
type Scheduler struct {
	driver    ports.Scheduler
	ingest    *Ingest
	retention *Retention
	loc       *time.Location
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, ingest *Ingest, retention *Retention, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, ingest: ingest, retention: retention, loc: loc, logger: logger}
}

// Start registers the jobs with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) { s.Tick(ctx, trigger) })
}

// Tick runs one ingest of the trigger's local day followed by retention.
func (s *Scheduler) Tick(ctx context.Context, trigger time.Time) {
	now := trigger.In(s.loc)

	if s.ingest != nil {
		if _, err := s.ingest.Run(ctx, now); err != nil {
			s.logger.Error("scheduled ingest failed", "error", err)
		}
	}
	if s.retention != nil {
		if _, err := s.retention.Run(ctx, now); err != nil {
			s.logger.Error("scheduled retention failed", "error", err)
		}
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
