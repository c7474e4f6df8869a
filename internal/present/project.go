package present

import (
	"time"

	"FinanceRadar/internal/domain"
)

// Project flattens each group into its primary article's snapshot item.
func Project(groups []domain.StoryGroup) []domain.SnapshotItem {
	items := make([]domain.SnapshotItem, 0, len(groups))
	for _, g := range groups {
		p := g.Primary
		items = append(items, domain.SnapshotItem{
			Title:      p.Title,
			URL:        p.Link,
			Source:     p.SourceName,
			Date:       p.PublishedAt,
			Category:   p.Category,
			HasRelated: g.HasRelated(),
		})
	}
	return items
}

// NewSnapshot wraps projected items with the generation time.
func NewSnapshot(groups []domain.StoryGroup, generatedAt time.Time) domain.Snapshot {
	items := Project(groups)
	return domain.Snapshot{
		GeneratedAt:  generatedAt.UTC(),
		ArticleCount: len(items),
		Articles:     items,
	}
}
