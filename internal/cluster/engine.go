// Package cluster collapses the article stream of one run into story groups.
//
// Exact duplicates are removed by normalized link, the stream is gated by age
// and per-source volume, and the remaining headlines are grouped when they are
// lexically near-identical. Grouping is a greedy single pass per calendar day:
// an article only joins a group when it matches that group's primary directly,
// so chains A~B~C where A and C differ can stay split.
package cluster

import (
	"time"

	"FinanceRadar/internal/domain"
)

const (
	DefaultMinWordLength       = 4
	DefaultOverlapThreshold    = 0.5
	DefaultSimilarityThreshold = 0.75
)

const undatedBucket = ""

// Options tunes the clustering engine. Zero values take the defaults.
type Options struct {
	// Location decides which calendar day an article falls on.
	Location            *time.Location
	Prefixes            []string
	MinWordLength       int
	OverlapThreshold    float64
	SimilarityThreshold float64
}

// Engine groups near-identical headlines. It holds no per-run state and may
// be reused.
type Engine struct {
	opts Options
}

// NewEngine fills unset options with defaults.
func NewEngine(opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Prefixes == nil {
		opts.Prefixes = DefaultPrefixes
	}
	if opts.MinWordLength <= 0 {
		opts.MinWordLength = DefaultMinWordLength
	}
	if opts.OverlapThreshold <= 0 {
		opts.OverlapThreshold = DefaultOverlapThreshold
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &Engine{opts: opts}
}

// Cluster partitions articles into story groups. Every input article ends up
// in exactly one group's Members. The output is deterministic for a given
// input order: day buckets appear in order of first occurrence and groups
// within a bucket in order of their primary.
func (e *Engine) Cluster(articles []domain.Article) []domain.StoryGroup {
	if len(articles) == 0 {
		return []domain.StoryGroup{}
	}

	keys := make([]titleKey, len(articles))
	for i, a := range articles {
		norm := NormalizeTitle(a.Title, e.opts.Prefixes)
		keys[i] = titleKey{normalized: norm, signature: SignatureOf(norm, e.opts.MinWordLength)}
	}

	buckets, order := e.bucketize(articles)

	groups := make([]domain.StoryGroup, 0, len(articles))
	for _, day := range order {
		groups = append(groups, e.clusterBucket(articles, keys, buckets[day])...)
	}
	return groups
}

// bucketize maps each calendar day to the indexes of its articles.
func (e *Engine) bucketize(articles []domain.Article) (map[string][]int, []string) {
	buckets := make(map[string][]int)
	order := make([]string, 0)
	for i, a := range articles {
		day := e.dayOf(a)
		if _, ok := buckets[day]; !ok {
			order = append(order, day)
		}
		buckets[day] = append(buckets[day], i)
	}
	return buckets, order
}

func (e *Engine) dayOf(a domain.Article) string {
	if !a.Dated() {
		return undatedBucket
	}
	return a.PublishedAt.In(e.opts.Location).Format(time.DateOnly)
}

func (e *Engine) clusterBucket(articles []domain.Article, keys []titleKey, idx []int) []domain.StoryGroup {
	claimed := make([]bool, len(idx))
	groups := make([]domain.StoryGroup, 0)

	for i, pi := range idx {
		if claimed[i] {
			continue
		}
		claimed[i] = true

		primary := articles[pi]
		group := domain.StoryGroup{
			Primary: primary,
			Related: []domain.RelatedSource{},
			Members: []domain.Article{primary},
		}
		listed := map[string]struct{}{primary.SourceName: {}}

		for j := i + 1; j < len(idx); j++ {
			if claimed[j] {
				continue
			}
			ci := idx[j]
			if !e.similar(keys[pi], keys[ci]) {
				continue
			}

			claimed[j] = true
			candidate := articles[ci]
			group.Members = append(group.Members, candidate)

			if _, seen := listed[candidate.SourceName]; seen {
				continue
			}
			listed[candidate.SourceName] = struct{}{}
			group.Related = append(group.Related, domain.RelatedSource{
				SourceName:    candidate.SourceName,
				SourceSiteURL: candidate.SourceSiteURL,
				Link:          candidate.Link,
			})
		}

		groups = append(groups, group)
	}

	return groups
}

// similar applies the word-overlap pre-filter and then the exact and fuzzy
// title comparisons.
func (e *Engine) similar(a, b titleKey) bool {
	if len(a.signature) > 0 && len(b.signature) > 0 {
		if a.signature.Overlap(b.signature) < e.opts.OverlapThreshold {
			return false
		}
	}

	if a.normalized == "" || b.normalized == "" {
		return false
	}
	if a.normalized == b.normalized {
		return true
	}
	return Ratio(a.normalized, b.normalized) >= e.opts.SimilarityThreshold
}

// Singletons wraps each article in its own group. Used for categories that
// are displayed without clustering.
func Singletons(articles []domain.Article) []domain.StoryGroup {
	groups := make([]domain.StoryGroup, 0, len(articles))
	for _, a := range articles {
		groups = append(groups, domain.StoryGroup{
			Primary: a,
			Related: []domain.RelatedSource{},
			Members: []domain.Article{a},
		})
	}
	return groups
}
