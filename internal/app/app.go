package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"FinanceRadar/internal/cluster"
	"FinanceRadar/internal/config"
	"FinanceRadar/internal/filter"
	"FinanceRadar/internal/infrastructure/export"
	"FinanceRadar/internal/infrastructure/llm"
	"FinanceRadar/internal/infrastructure/parser"
	"FinanceRadar/internal/infrastructure/publish"
	"FinanceRadar/internal/infrastructure/render"
	"FinanceRadar/internal/infrastructure/scheduler"
	"FinanceRadar/internal/infrastructure/storage"
	"FinanceRadar/internal/infrastructure/telegram"
	"FinanceRadar/internal/logging"
	"FinanceRadar/internal/ports"
	"FinanceRadar/internal/scanner"
	"FinanceRadar/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	db        *sql.DB
}

// New builds the runnable application. Optional outputs are enabled by
// their configuration: a storage DSN, a publish bucket, a ranker API key.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	app := &Application{cfg: cfg, logger: baseLogger}

	contentFilter, err := filter.New(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("build content filter: %w", err)
	}

	deps := usecase.PipelineDeps{
		Source:  app.newSource(),
		Filter:  contentFilter,
		Engine:  newEngine(cfg),
		Gate:    cluster.Gate{Retention: cfg.Pipeline.Retention(), PerSourceCap: cfg.Pipeline.PerSourceCap},
		Renderer: render.NewHTMLRenderer(render.Options{
			Path:     filepath.Join(cfg.Output.Dir, cfg.Output.HTMLFile),
			Title:    cfg.Output.Title,
			PageSize: cfg.Pipeline.PageSize,
			Location: cfg.Pipeline.Location(),
		}),
		Writer:           export.NewJSONWriter(filepath.Join(cfg.Output.Dir, cfg.Output.SnapshotFile)),
		BypassCategories: cfg.Pipeline.BypassCategories,
		PerSourceCap:     cfg.Pipeline.PerSourceCap,
		Logger:           baseLogger.With("component", "pipeline"),
	}

	if cfg.Storage.DSN != "" {
		repo, err := app.openRepository(ctx)
		if err != nil {
			return nil, err
		}
		deps.Repository = repo
	}

	if cfg.Publish.Bucket != "" {
		publisher, err := publish.NewS3Publisher(ctx, cfg.Publish, baseLogger.With("component", "publish.s3"))
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("build publisher: %w", err)
		}
		deps.Publisher = publisher
	}

	if cfg.Ranker.APIKey != "" {
		deps.Ranker = llm.NewRanker(
			cfg.Ranker,
			filepath.Join(cfg.Output.Dir, cfg.Output.RankingsFile),
			baseLogger.With("component", "ranker"),
		)
	}

	app.pipeline = usecase.NewPipeline(deps)

	if cfg.Scheduler.Enabled {
		driver := scheduler.NewCronScheduler(
			cfg.Scheduler.CronExpression,
			cfg.Scheduler.Location(),
			baseLogger.With("component", "scheduler"),
		)
		app.scheduler = usecase.NewScheduler(driver, app.pipeline, baseLogger.With("component", "scheduler"))
	}

	return app, nil
}

func (a *Application) newSource() ports.ArticleSource {
	client := &http.Client{Timeout: a.cfg.Fetch.Timeout}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewRSSScanner(client, a.cfg.Fetch.UserAgent))
	registry.Register(parser.NewJSONAPIScanner(a.cfg.Fetch.Timeout))
	registry.Register(telegram.NewChannelScanner(client))

	return parser.NewStrategySource(registry, a.cfg.Sources, a.cfg.Fetch, a.logger.With("component", "source"))
}

func newEngine(cfg config.Config) *cluster.Engine {
	return cluster.NewEngine(cluster.Options{
		Location:            cfg.Pipeline.Location(),
		Prefixes:            cfg.Clustering.Prefixes,
		MinWordLength:       cfg.Clustering.MinWordLength,
		OverlapThreshold:    cfg.Clustering.OverlapThreshold,
		SimilarityThreshold: cfg.Clustering.SimilarityThreshold,
	})
}

func (a *Application) openRepository(ctx context.Context) (*storage.SnapshotRepository, error) {
	db, err := storage.Open(ctx, a.cfg.Storage.Driver, a.cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open snapshot storage: %w", err)
	}
	a.db = db

	repo := storage.NewSnapshotRepository(db, a.cfg.Storage.Driver, a.cfg.Storage.Table)
	if err := repo.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("prepare snapshot table: %w", err)
	}
	return repo, nil
}

// Run performs a single pipeline execution, or follows the schedule until
// ctx is cancelled when scheduling is enabled.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler == nil {
		_, err := a.pipeline.Run(ctx)
		return err
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	a.logger.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases the storage connection, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("close snapshot storage: %w", err)
	}
	return nil
}
