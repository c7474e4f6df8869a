package parser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"FinanceRadar/internal/config"
	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/logging"
	"FinanceRadar/internal/scanner"
)

type fakeScanner struct {
	name string
	scan func(ctx context.Context, req scanner.Request) ([]domain.Article, error)
}

func (f fakeScanner) Name() string { return f.name }

func (f fakeScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	return f.scan(ctx, req)
}

func newTestRegistry(inFlight, peak *atomic.Int32) *scanner.Registry {
	reg := scanner.NewRegistry()
	reg.Register(fakeScanner{name: "ok", scan: func(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return []domain.Article{{Title: req.SourceName + " story", Link: "https://example.com/" + req.SourceName}}, nil
	}})
	reg.Register(fakeScanner{name: "fail", scan: func(context.Context, scanner.Request) ([]domain.Article, error) {
		return nil, errors.New("boom")
	}})
	reg.Register(fakeScanner{name: "panic", scan: func(context.Context, scanner.Request) ([]domain.Article, error) {
		panic("scanner bug")
	}})
	reg.Register(fakeScanner{name: "slow", scan: func(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}})
	return reg
}

func TestStrategySourceIsolatesFailures(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	sources := []config.SourceConfig{
		{Name: "A", Scanner: "ok", SiteURL: "https://a.example", Category: domain.CategoryVideos},
		{Name: "B", Scanner: "fail"},
		{Name: "C", Scanner: "panic"},
		{Name: "D", Scanner: "slow"},
		{Name: "E", Scanner: "missing"},
		{Name: "F", Scanner: "ok"},
	}

	src := NewStrategySource(newTestRegistry(&inFlight, &peak), sources, config.FetchConfig{
		Workers: 2,
		Timeout: 50 * time.Millisecond,
	}, logging.Discard())

	articles, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("expected 2 articles from healthy sources, got %d: %+v", len(articles), articles)
	}
	if articles[0].SourceName != "A" || articles[1].SourceName != "F" {
		t.Fatalf("results not in configuration order: %+v", articles)
	}
	if articles[0].SourceSiteURL != "https://a.example" || articles[0].Category != domain.CategoryVideos {
		t.Fatalf("source metadata not stamped: %+v", articles[0])
	}
	if articles[1].Category != domain.CategoryNews {
		t.Fatalf("default category not applied: %q", articles[1].Category)
	}
}

func TestStrategySourceBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	var sources []config.SourceConfig
	for _, name := range []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8"} {
		sources = append(sources, config.SourceConfig{Name: name, Scanner: "ok"})
	}

	src := NewStrategySource(newTestRegistry(&inFlight, &peak), sources, config.FetchConfig{Workers: 3}, nil)
	articles, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(articles) != len(sources) {
		t.Fatalf("expected %d articles, got %d", len(sources), len(articles))
	}
	if p := peak.Load(); p > 3 {
		t.Fatalf("expected at most 3 concurrent scans, saw %d", p)
	}
}

func TestStrategySourceWithoutRegistry(t *testing.T) {
	t.Parallel()

	src := NewStrategySource(nil, nil, config.FetchConfig{}, nil)
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatalf("expected error without registry")
	}
}
