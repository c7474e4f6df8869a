package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"FinanceRadar/internal/cluster"
	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/filter"
	"FinanceRadar/internal/logging"
	"FinanceRadar/internal/ports"
	"FinanceRadar/internal/present"
)

// ErrNoArticles is returned when every source came back empty.
var ErrNoArticles = errors.New("no articles fetched")

// PipelineDeps wires the domain stages and driven adapters into one run.
// Repository, Ranker and Publisher are optional.
type PipelineDeps struct {
	Source           ports.ArticleSource
	Filter           *filter.Filter
	Engine           *cluster.Engine
	Gate             cluster.Gate
	BypassCategories []string
	PerSourceCap     int
	Renderer         ports.PageRenderer
	Writer           ports.SnapshotWriter
	Repository       ports.SnapshotRepository
	Ranker           ports.Ranker
	Publisher        ports.Publisher
	Logger           *slog.Logger
	Now              func() time.Time
	NewRunID         func() string
}

// Pipeline implements one batch run: fetch, filter, dedup, gate, cluster,
// assemble and write every output.
type Pipeline struct {
	source       ports.ArticleSource
	filter       *filter.Filter
	engine       *cluster.Engine
	gate         cluster.Gate
	bypass       map[string]struct{}
	perSourceCap int
	renderer     ports.PageRenderer
	writer       ports.SnapshotWriter
	repository   ports.SnapshotRepository
	ranker       ports.Ranker
	publisher    ports.Publisher
	logger       *slog.Logger
	now          func() time.Time
	newRunID     func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		source:       deps.Source,
		filter:       deps.Filter,
		engine:       deps.Engine,
		gate:         deps.Gate,
		bypass:       make(map[string]struct{}, len(deps.BypassCategories)),
		perSourceCap: deps.PerSourceCap,
		renderer:     deps.Renderer,
		writer:       deps.Writer,
		repository:   deps.Repository,
		ranker:       deps.Ranker,
		publisher:    deps.Publisher,
		logger:       deps.Logger,
		now:          deps.Now,
		newRunID:     deps.NewRunID,
	}
	for _, c := range deps.BypassCategories {
		p.bypass[c] = struct{}{}
	}
	if p.engine == nil {
		p.engine = cluster.NewEngine(cluster.Options{})
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}
	if p.gate.Now == nil {
		p.gate.Now = p.now
	}
	return p
}

// Run executes one batch. Failures of the page or snapshot outputs fail the
// run; the SQL mirror, ranker and publisher only log theirs.
func (p *Pipeline) Run(ctx context.Context) (domain.RunSummary, error) {
	summary := domain.RunSummary{RunID: p.newRunID(), StartedAt: p.now()}
	log := p.logger.With("run_id", summary.RunID)

	if p.source == nil {
		return summary, fmt.Errorf("article source is not configured")
	}

	articles, err := p.source.Fetch(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch articles: %w", err)
	}
	summary.Fetched = len(articles)
	if len(articles) == 0 {
		return summary, ErrNoArticles
	}
	log.Info("articles fetched", "count", len(articles))

	groups := p.group(articles, &summary)
	assembled := present.Assemble(groups, p.perSourceCap)
	summary.Published = len(assembled)

	generatedAt := p.now()
	artifacts, err := p.write(ctx, log, summary.RunID, assembled, generatedAt)
	if err != nil {
		return summary, err
	}

	if p.publisher != nil && len(artifacts) > 0 {
		if err := p.publisher.Publish(ctx, artifacts); err != nil {
			log.Warn("publish failed", "error", err)
		} else {
			log.Info("artifacts published", "count", len(artifacts))
		}
	}

	summary.FinishedAt = p.now()
	log.Info("run finished",
		"fetched", summary.Fetched,
		"filtered", summary.Filtered,
		"dropped_no_link", summary.DroppedNoLink,
		"duplicates", summary.Duplicates,
		"gated", summary.Gated,
		"clustered", summary.Clustered,
		"groups", summary.Groups,
		"published", summary.Published,
		"elapsed", summary.FinishedAt.Sub(summary.StartedAt),
	)
	return summary, nil
}

// group runs the single-threaded domain stages and records their counts.
func (p *Pipeline) group(articles []domain.Article, summary *domain.RunSummary) []domain.StoryGroup {
	if p.filter != nil {
		var rejected int
		articles, rejected = p.filter.Apply(articles)
		summary.Filtered = rejected
	}

	deduped, stats := cluster.DedupByLink(articles)
	summary.DroppedNoLink = stats.NoLink
	summary.Duplicates = stats.Duplicates

	gated := p.gate.Apply(deduped)
	summary.Gated = len(deduped) - len(gated)

	var clusterable, bypassed []domain.Article
	for _, a := range gated {
		if _, ok := p.bypass[a.Category]; ok {
			bypassed = append(bypassed, a)
			continue
		}
		clusterable = append(clusterable, a)
	}

	groups := p.engine.Cluster(clusterable)
	summary.Clustered = len(clusterable) - len(groups)
	groups = append(groups, cluster.Singletons(bypassed)...)
	summary.Groups = len(groups)
	return groups
}

// write produces the page, the snapshot and the optional outputs, returning
// the files worth publishing.
func (p *Pipeline) write(ctx context.Context, log *slog.Logger, runID string, groups []domain.StoryGroup, generatedAt time.Time) ([]domain.Artifact, error) {
	var artifacts []domain.Artifact

	if p.renderer != nil {
		page, err := p.renderer.Render(ctx, groups, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("render page: %w", err)
		}
		artifacts = append(artifacts, page)
	}

	snapshot := present.NewSnapshot(groups, generatedAt)
	if p.writer != nil {
		file, err := p.writer.WriteSnapshot(ctx, snapshot)
		if err != nil {
			return nil, fmt.Errorf("write snapshot: %w", err)
		}
		artifacts = append(artifacts, file)
	}

	if p.repository != nil {
		if err := p.repository.ReplaceSnapshot(ctx, runID, snapshot); err != nil {
			log.Warn("snapshot table not updated", "error", err)
		}
	}

	if p.ranker != nil {
		rankings, err := p.ranker.Rank(ctx, snapshot)
		if err != nil {
			log.Warn("ranking failed", "error", err)
		}
		if rankings.Path != "" {
			artifacts = append(artifacts, rankings)
		}
	}

	return artifacts, nil
}
