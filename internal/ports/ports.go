package ports

import (
	"context"
	"time"

	"FinanceRadar/internal/domain"
)

// ArticleSource pulls fresh articles from every configured feed.
type ArticleSource interface {
	Fetch(ctx context.Context) ([]domain.Article, error)
}

// PageRenderer writes the browsable page for the ordered story groups.
type PageRenderer interface {
	Render(ctx context.Context, groups []domain.StoryGroup, generatedAt time.Time) (domain.Artifact, error)
}

// SnapshotWriter persists the JSON projection consumed by the ranker.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, snapshot domain.Snapshot) (domain.Artifact, error)
}

// SnapshotRepository mirrors the latest snapshot into a SQL table.
type SnapshotRepository interface {
	ReplaceSnapshot(ctx context.Context, runID string, snapshot domain.Snapshot) error
}

// Ranker asks a language model to pick the top stories of a snapshot.
type Ranker interface {
	Rank(ctx context.Context, snapshot domain.Snapshot) (domain.Artifact, error)
}

// Publisher uploads run artifacts to their public location.
type Publisher interface {
	Publish(ctx context.Context, artifacts []domain.Artifact) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
