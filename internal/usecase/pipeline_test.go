package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FinanceRadar/internal/cluster"
	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/filter"
)

var runNow = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

func at(day, hour int) *time.Time {
	t := time.Date(2024, time.January, day, hour, 0, 0, 0, time.UTC)
	return &t
}

type fakeSource struct {
	articles []domain.Article
	err      error
}

func (f fakeSource) Fetch(context.Context) ([]domain.Article, error) {
	return f.articles, f.err
}

type fakeRenderer struct {
	groups []domain.StoryGroup
	err    error
}

func (f *fakeRenderer) Render(_ context.Context, groups []domain.StoryGroup, _ time.Time) (domain.Artifact, error) {
	f.groups = groups
	return domain.Artifact{Name: "index.html", Path: "/out/index.html"}, f.err
}

type fakeWriter struct {
	snapshot domain.Snapshot
}

func (f *fakeWriter) WriteSnapshot(_ context.Context, s domain.Snapshot) (domain.Artifact, error) {
	f.snapshot = s
	return domain.Artifact{Name: "articles.json", Path: "/out/articles.json"}, nil
}

type fakeRepository struct {
	runID string
}

func (f *fakeRepository) ReplaceSnapshot(_ context.Context, runID string, _ domain.Snapshot) error {
	f.runID = runID
	return errors.New("database is down")
}

type fakeRanker struct{}

func (fakeRanker) Rank(context.Context, domain.Snapshot) (domain.Artifact, error) {
	return domain.Artifact{Name: "ai_rankings.json", Path: "/out/ai_rankings.json"}, errors.New("provider timeout")
}

type fakePublisher struct {
	artifacts []domain.Artifact
	calls     int
}

func (f *fakePublisher) Publish(_ context.Context, artifacts []domain.Artifact) error {
	f.calls++
	f.artifacts = artifacts
	return nil
}

func runArticles() []domain.Article {
	return []domain.Article{
		{Title: "Sensex jumps 500 points as banks rally", Link: "https://a.example/sensex", SourceName: "A", PublishedAt: at(10, 10), Category: domain.CategoryNews},
		{Title: "Sensex jumps 500 points as banks rally", Link: "https://b.example/sensex", SourceName: "B", PublishedAt: at(10, 9), Category: domain.CategoryNews},
		{Title: "Markets close higher", Link: "HTTP://A.example/sensex/", SourceName: "A", PublishedAt: at(10, 8), Category: domain.CategoryNews},
		{Title: "Sponsored: best credit cards", Link: "https://c.example/ad", SourceName: "C", PublishedAt: at(10, 7), Category: domain.CategoryNews},
		{Title: "Ancient story", Link: "https://d.example/old", SourceName: "D", PublishedAt: at(1, 7), Category: domain.CategoryNews},
		{Title: "Sensex jumps 500 points as banks rally", Link: "https://e.example/video", SourceName: "E", PublishedAt: at(10, 11), Category: domain.CategoryVideos},
		{Title: "No link here", SourceName: "F", PublishedAt: at(10, 6), Category: domain.CategoryNews},
		{Title: "Undated explainer", Link: "https://g.example/undated", SourceName: "G", Category: domain.CategoryNews},
	}
}

func newTestPipeline(t *testing.T, deps PipelineDeps) *Pipeline {
	t.Helper()
	f, err := filter.New(filter.Rules{TitlePatterns: []string{`^sponsored`}})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	deps.Filter = f
	deps.Engine = cluster.NewEngine(cluster.Options{})
	deps.Gate = cluster.Gate{Retention: 7 * 24 * time.Hour, PerSourceCap: 50}
	deps.BypassCategories = []string{domain.CategoryVideos, domain.CategoryTwitter}
	deps.PerSourceCap = 50
	deps.Now = func() time.Time { return runNow }
	deps.NewRunID = func() string { return "run-1" }
	return NewPipeline(deps)
}

func TestPipelineRunsEveryStage(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{}
	writer := &fakeWriter{}
	repo := &fakeRepository{}
	publisher := &fakePublisher{}
	p := newTestPipeline(t, PipelineDeps{
		Source:     fakeSource{articles: runArticles()},
		Renderer:   renderer,
		Writer:     writer,
		Repository: repo,
		Ranker:     fakeRanker{},
		Publisher:  publisher,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := domain.RunSummary{
		RunID:         "run-1",
		Fetched:       8,
		Filtered:      1,
		DroppedNoLink: 1,
		Duplicates:    1,
		Gated:         1,
		Clustered:     1,
		Groups:        3,
		Published:     3,
		StartedAt:     runNow,
		FinishedAt:    runNow,
	}
	if summary != want {
		t.Fatalf("unexpected summary:\n got %+v\nwant %+v", summary, want)
	}

	if len(renderer.groups) != 3 {
		t.Fatalf("expected 3 rendered groups, got %d", len(renderer.groups))
	}
	order := []string{"E", "A", "G"}
	for i, source := range order {
		if renderer.groups[i].Primary.SourceName != source {
			t.Fatalf("group %d: expected primary from %s, got %s", i, source, renderer.groups[i].Primary.SourceName)
		}
	}
	if !renderer.groups[1].HasRelated() || renderer.groups[1].Related[0].SourceName != "B" {
		t.Fatalf("cross-source story not merged: %+v", renderer.groups[1])
	}
	if renderer.groups[0].HasRelated() {
		t.Fatalf("bypassed video must stay a singleton")
	}

	if writer.snapshot.ArticleCount != 3 || !writer.snapshot.Articles[1].HasRelated || writer.snapshot.Articles[2].Date != nil {
		t.Fatalf("unexpected snapshot: %+v", writer.snapshot)
	}
	if repo.runID != "run-1" {
		t.Fatalf("repository did not receive the run id")
	}

	if publisher.calls != 1 || len(publisher.artifacts) != 3 {
		t.Fatalf("expected one publish of 3 artifacts, got %d calls %+v", publisher.calls, publisher.artifacts)
	}
	for i, name := range []string{"index.html", "articles.json", "ai_rankings.json"} {
		if publisher.artifacts[i].Name != name {
			t.Fatalf("artifact %d: expected %s, got %s", i, name, publisher.artifacts[i].Name)
		}
	}
}

func TestPipelineNoArticles(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{}
	p := newTestPipeline(t, PipelineDeps{Source: fakeSource{}, Renderer: renderer})

	summary, err := p.Run(context.Background())
	if !errors.Is(err, ErrNoArticles) {
		t.Fatalf("expected ErrNoArticles, got %v", err)
	}
	if summary.RunID != "run-1" || summary.Fetched != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if renderer.groups != nil {
		t.Fatalf("renderer must not run without articles")
	}
}

func TestPipelineFailures(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, PipelineDeps{Source: fakeSource{err: errors.New("network down")}})
	if _, err := p.Run(context.Background()); err == nil || errors.Is(err, ErrNoArticles) {
		t.Fatalf("expected fetch error, got %v", err)
	}

	publisher := &fakePublisher{}
	p = newTestPipeline(t, PipelineDeps{
		Source:    fakeSource{articles: runArticles()},
		Renderer:  &fakeRenderer{err: errors.New("disk full")},
		Writer:    &fakeWriter{},
		Publisher: publisher,
	})
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected render error")
	}
	if publisher.calls != 0 {
		t.Fatalf("nothing should be published after a failed render")
	}

	if _, err := NewPipeline(PipelineDeps{}).Run(context.Background()); err == nil {
		t.Fatalf("expected error without a source")
	}
}
