package cluster

import (
	"sort"
	"time"

	"FinanceRadar/internal/domain"
)

// Gate drops articles outside the retention window and caps how many
// articles each source contributes.
type Gate struct {
	// Retention is the maximum article age. Zero disables the age cutoff.
	Retention time.Duration
	// PerSourceCap keeps each source's newest N articles. Zero disables it.
	PerSourceCap int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Apply returns the surviving articles in their input order. Undated
// articles never expire; when capping they rank after every dated article of
// the same source.
func (g Gate) Apply(articles []domain.Article) []domain.Article {
	if len(articles) == 0 {
		return []domain.Article{}
	}

	fresh := make([]int, 0, len(articles))
	if g.Retention > 0 {
		now := time.Now
		if g.Now != nil {
			now = g.Now
		}
		cutoff := now().Add(-g.Retention)
		for i, a := range articles {
			if !a.Dated() || !a.PublishedAt.Before(cutoff) {
				fresh = append(fresh, i)
			}
		}
	} else {
		for i := range articles {
			fresh = append(fresh, i)
		}
	}

	keep := fresh
	if g.PerSourceCap > 0 {
		keep = capPerSource(articles, fresh, g.PerSourceCap)
	}

	result := make([]domain.Article, 0, len(keep))
	for _, idx := range keep {
		result = append(result, articles[idx])
	}
	return result
}

// capPerSource returns the subset of idx holding each source's newest limit
// articles, in ascending index order.
func capPerSource(articles []domain.Article, idx []int, limit int) []int {
	bySource := make(map[string][]int)
	order := make([]string, 0)
	for _, i := range idx {
		name := articles[i].SourceName
		if _, ok := bySource[name]; !ok {
			order = append(order, name)
		}
		bySource[name] = append(bySource[name], i)
	}

	kept := make([]int, 0, len(idx))
	for _, name := range order {
		group := bySource[name]
		sort.SliceStable(group, func(a, b int) bool {
			return NewerFirst(articles[group[a]], articles[group[b]])
		})
		if len(group) > limit {
			group = group[:limit]
		}
		kept = append(kept, group...)
	}

	sort.Ints(kept)
	return kept
}

// NewerFirst orders dated articles newest first and puts undated ones last.
// Equal keys compare false so stable sorts keep input order.
func NewerFirst(a, b domain.Article) bool {
	switch {
	case a.Dated() && b.Dated():
		return a.PublishedAt.After(*b.PublishedAt)
	case a.Dated():
		return true
	default:
		return false
	}
}
