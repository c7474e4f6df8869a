package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"FinanceRadar/internal/config"
	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/ports"
	"FinanceRadar/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	workers  int
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sources.
// Requests are paced by fetch.requestsPerSecond when it is positive.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, fetch config.FetchConfig, log *slog.Logger) *StrategySource {
	workers := fetch.Workers
	if workers <= 0 {
		workers = 10
	}
	timeout := fetch.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if fetch.RequestsPerSec > 0 {
		burst := fetch.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(fetch.RequestsPerSec), burst)
	}

	return &StrategySource{
		registry: reg,
		sources:  sources,
		workers:  workers,
		timeout:  timeout,
		limiter:  limiter,
		logger:   log,
	}
}

// Fetch runs every source on a bounded task group. A source that fails,
// times out or panics is logged and contributes nothing; the result keeps
// configuration order.
func (s *StrategySource) Fetch(ctx context.Context) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch sources", "sources", len(s.sources), "workers", s.workers)

	results := make([][]domain.Article, len(s.sources))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, src := range s.sources {
		g.Go(func() error {
			results[i] = s.fetchOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var aggregated []domain.Article
	for _, batch := range results {
		aggregated = append(aggregated, batch...)
	}

	s.debug("strategy source done", "total_articles", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) fetchOne(ctx context.Context, src config.SourceConfig) (articles []domain.Article) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.warn("source panicked", "source", src.Name, "panic", r)
			articles = nil
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, err := s.scan(fetchCtx, src)
	if err != nil {
		s.warn("source failed", "source", src.Name, "scanner", src.Scanner, "error", err, "elapsed", time.Since(start))
		return nil
	}

	for i := range results {
		if results[i].SourceName == "" {
			results[i].SourceName = src.Name
		}
		if results[i].SourceSiteURL == "" {
			results[i].SourceSiteURL = src.SiteURL
		}
		if results[i].Category == "" {
			results[i].Category = src.Category
		}
		if results[i].Category == "" {
			results[i].Category = domain.CategoryNews
		}
	}

	s.debug("source produced articles", "source", src.Name, "count", len(results), "elapsed", time.Since(start))
	return results
}

func (s *StrategySource) scan(ctx context.Context, src config.SourceConfig) ([]domain.Article, error) {
	strategy, err := s.registry.Resolve(src.Scanner)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Name, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	results, err := strategy.Scan(ctx, scanner.Request{
		SourceName: src.Name,
		URL:        src.URL,
		SiteURL:    src.SiteURL,
		Category:   src.Category,
		Location:   src.Location(),
		Options:    src.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("scan source %s: %w", src.Name, err)
	}
	return results, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
