package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"FinanceRadar/internal/logging"
	"FinanceRadar/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, log *slog.Logger) *Scheduler {
	if log == nil {
		log = logging.Discard()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: log}
}

// Start registers the pipeline with the driver. A failed run is logged and
// the schedule keeps going.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		summary, err := s.pipeline.Run(ctx)
		switch {
		case errors.Is(err, ErrNoArticles):
			s.logger.Warn("scheduled run produced nothing", "run_id", summary.RunID, "trigger", trigger)
		case err != nil:
			s.logger.Error("scheduled run failed", "run_id", summary.RunID, "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
