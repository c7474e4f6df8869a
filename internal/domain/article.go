package domain

import (
	"strings"
	"time"
)

// Category names that adapters assign and the pipeline routes on.
const (
	CategoryNews     = "News"
	CategoryVideos   = "Videos"
	CategoryTwitter  = "Twitter"
	CategoryTelegram = "Telegram"
)

// Article is one normalized item produced by a source adapter.
// It is treated as immutable once an adapter has returned it.
type Article struct {
	Title         string
	Link          string
	PublishedAt   *time.Time
	Summary       string
	SourceName    string
	SourceSiteURL string
	Category      string
}

// Dated reports whether the article carries a parsed publication instant.
func (a Article) Dated() bool {
	return a.PublishedAt != nil
}

// NormalizedLink returns the identity key used for exact deduplication.
// Scheme and trailing slashes are collapsed; query strings are kept.
func (a Article) NormalizedLink() string {
	return NormalizeLink(a.Link)
}

// NormalizeLink lowercases and trims link, strips trailing slashes and maps
// a leading http:// onto https://.
func NormalizeLink(link string) string {
	u := strings.ToLower(strings.TrimSpace(link))
	u = strings.TrimRight(u, "/")
	if strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// RelatedSource attributes a story to an outlet other than the primary's.
type RelatedSource struct {
	SourceName    string
	SourceSiteURL string
	Link          string
}

// StoryGroup is one real-world story: a primary article plus every article
// folded into it. Members always starts with Primary.
type StoryGroup struct {
	Primary Article
	Related []RelatedSource
	Members []Article
}

// HasRelated reports whether other outlets covered the story.
func (g StoryGroup) HasRelated() bool {
	return len(g.Related) > 0
}

// RunSummary counts what each stage of a run kept or dropped.
type RunSummary struct {
	RunID string
	// Fetched is every article returned by the sources.
	Fetched int
	// Filtered is how many articles the content filter rejected.
	Filtered      int
	DroppedNoLink int
	Duplicates    int
	// Gated is how many articles fell outside the age window or source cap.
	Gated int
	// Clustered is how many articles were folded into another story.
	Clustered int
	// Groups is the story count before the presentation cap.
	Groups int
	// Published is the story count written to the outputs.
	Published  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// SnapshotItem is the flattened view of one story exported for the ranker.
type SnapshotItem struct {
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Source     string     `json:"source"`
	Date       *time.Time `json:"date"`
	Category   string     `json:"category"`
	HasRelated bool       `json:"has_related"`
}

// Snapshot is the one-way projection written once per run.
type Snapshot struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	ArticleCount int            `json:"article_count"`
	Articles     []SnapshotItem `json:"articles"`
}

// Artifact is a file produced by a run, candidate for publishing.
type Artifact struct {
	Name        string
	Path        string
	ContentType string
}
