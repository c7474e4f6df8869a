package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"FinanceRadar/internal/ports"
)

// CronScheduler triggers jobs on a standard five-field cron expression.
// A run that is still going when the next tick fires causes that tick to be
// skipped.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	initial sync.WaitGroup
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating spec in loc.
func NewCronScheduler(spec string, loc *time.Location, log *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{spec: spec, location: loc, logger: log}
}

// Start registers job, triggers one run right away and then follows the
// schedule. Calling Start on a running scheduler is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	logger := cronLogger{logger: c.logger}
	runner := cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	id, err := runner.AddFunc(c.spec, func() {
		if ctx.Err() != nil {
			return
		}
		job(time.Now().In(c.location))
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}

	c.cron = runner
	c.entryID = id
	runner.Start()

	next := runner.Entry(id).Next
	if c.logger != nil {
		c.logger.Info("scheduler started", "cron", c.spec, "timezone", c.location.String(), "next_run", next)
	}

	wrapped := runner.Entry(id).WrappedJob
	c.initial.Add(1)
	go func() {
		defer c.initial.Done()
		wrapped.Run()
	}()
	return nil
}

// Stop halts the schedule and waits for a running job to finish or ctx to
// expire.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	stopped := runner.Stop()
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		c.initial.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running job: %w", ctx.Err())
	}
}

// cronLogger routes cron's internal events to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	if l.logger != nil {
		l.logger.Debug("cron "+msg, keysAndValues...)
	}
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	if l.logger != nil {
		l.logger.Error("cron "+msg, append([]any{"error", err}, keysAndValues...)...)
	}
}
