package usecase

import (
	"context"
	"testing"
	"time"

	"FinanceRadar/internal/domain"
)

type fakeDriver struct {
	started bool
	stopped bool
}

func (d *fakeDriver) Start(_ context.Context, job func(time.Time)) error {
	d.started = true
	job(runNow)
	return nil
}

func (d *fakeDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

type countingSource struct {
	calls *int
}

func (s countingSource) Fetch(context.Context) ([]domain.Article, error) {
	*s.calls++
	return nil, nil
}

func TestSchedulerRunsPipelineOnTrigger(t *testing.T) {
	t.Parallel()

	var calls int
	driver := &fakeDriver{}
	pipeline := newTestPipeline(t, PipelineDeps{Source: countingSource{calls: &calls}})
	s := NewScheduler(driver, pipeline, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !driver.started || calls != 1 {
		t.Fatalf("expected one triggered run, got %d", calls)
	}
	if err := s.Stop(context.Background()); err != nil || !driver.stopped {
		t.Fatalf("Stop: %v", err)
	}
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start without driver: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop without driver: %v", err)
	}
}
