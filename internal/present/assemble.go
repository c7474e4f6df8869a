// Package present turns story groups into the ordered, paged and projected
// shapes consumed by the renderers and the JSON snapshot.
package present

import (
	"sort"
	"time"

	"FinanceRadar/internal/cluster"
	"FinanceRadar/internal/domain"
)

// Assemble orders groups newest-first by their primary article, keeps at most
// perSourceCap primaries per source and sorts the survivors again. Undated
// groups go last and keep their relative order. A cap of zero disables it.
func Assemble(groups []domain.StoryGroup, perSourceCap int) []domain.StoryGroup {
	sorted := make([]domain.StoryGroup, len(groups))
	copy(sorted, groups)
	sortGroups(sorted)

	if perSourceCap <= 0 {
		return sorted
	}

	counts := make(map[string]int)
	capped := make([]domain.StoryGroup, 0, len(sorted))
	for _, g := range sorted {
		name := g.Primary.SourceName
		if counts[name] >= perSourceCap {
			continue
		}
		counts[name]++
		capped = append(capped, g)
	}

	sortGroups(capped)
	return capped
}

func sortGroups(groups []domain.StoryGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		return cluster.NewerFirst(groups[i].Primary, groups[j].Primary)
	})
}

// Section is a run of consecutive groups that share a display day.
type Section struct {
	// Day is the date in the display location, empty for undated groups.
	Day    string
	Groups []domain.StoryGroup
}

// Sections splits already ordered groups at every change of display day.
func Sections(groups []domain.StoryGroup, loc *time.Location) []Section {
	if loc == nil {
		loc = time.UTC
	}

	sections := make([]Section, 0)
	for _, g := range groups {
		day := ""
		if g.Primary.Dated() {
			day = g.Primary.PublishedAt.In(loc).Format(time.DateOnly)
		}
		if n := len(sections); n > 0 && sections[n-1].Day == day {
			sections[n-1].Groups = append(sections[n-1].Groups, g)
			continue
		}
		sections = append(sections, Section{Day: day, Groups: []domain.StoryGroup{g}})
	}
	return sections
}
