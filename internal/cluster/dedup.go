package cluster

import (
	"strings"

	"FinanceRadar/internal/domain"
)

// DedupStats counts what DedupByLink dropped.
type DedupStats struct {
	NoLink     int
	Duplicates int
}

// DedupByLink keeps the first article seen for each normalized link, in order
// of first occurrence. Articles with an empty link are dropped and counted.
// Links that differ only by query string stay distinct.
func DedupByLink(articles []domain.Article) ([]domain.Article, DedupStats) {
	var stats DedupStats
	if len(articles) == 0 {
		return []domain.Article{}, stats
	}

	seen := make(map[string]struct{}, len(articles))
	result := make([]domain.Article, 0, len(articles))

	for _, article := range articles {
		if strings.TrimSpace(article.Link) == "" {
			stats.NoLink++
			continue
		}

		key := article.NormalizedLink()
		if _, ok := seen[key]; ok {
			stats.Duplicates++
			continue
		}

		seen[key] = struct{}{}
		result = append(result, article)
	}

	return result, stats
}
