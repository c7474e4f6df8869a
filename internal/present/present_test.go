package present

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"FinanceRadar/internal/domain"
)

func at(day, hour int) *time.Time {
	t := time.Date(2024, time.January, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func group(title, source string, published *time.Time, related ...string) domain.StoryGroup {
	primary := domain.Article{
		Title:       title,
		Link:        "https://" + source + ".example/" + strings.ReplaceAll(title, " ", "-"),
		SourceName:  source,
		PublishedAt: published,
		Category:    domain.CategoryNews,
	}
	g := domain.StoryGroup{Primary: primary, Members: []domain.Article{primary}, Related: []domain.RelatedSource{}}
	for _, r := range related {
		g.Related = append(g.Related, domain.RelatedSource{SourceName: r, Link: "https://" + r + ".example/x"})
	}
	return g
}

func titles(groups []domain.StoryGroup) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Primary.Title)
	}
	return out
}

func TestAssembleUndatedSortsLastAndStable(t *testing.T) {
	t.Parallel()

	in := []domain.StoryGroup{
		group("undated one", "A", nil),
		group("old", "A", at(1, 9)),
		group("undated two", "B", nil),
		group("new", "B", at(3, 9)),
		group("mid", "C", at(2, 9)),
	}

	got := titles(Assemble(in, 0))
	want := []string{"new", "mid", "old", "undated one", "undated two"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestAssembleCapsPrimariesPerSource(t *testing.T) {
	t.Parallel()

	in := []domain.StoryGroup{
		group("a1", "A", at(1, 9)),
		group("a2", "A", at(2, 9)),
		group("a3", "A", at(3, 9)),
		group("a-undated", "A", nil),
		group("b1", "B", at(1, 10)),
	}

	got := titles(Assemble(in, 2))
	want := []string{"a3", "a2", "b1"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("unexpected capped order: %v", got)
	}
}

func TestAssembleDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []domain.StoryGroup{group("old", "A", at(1, 9)), group("new", "A", at(2, 9))}
	_ = Assemble(in, 1)
	if in[0].Primary.Title != "old" {
		t.Fatalf("input slice was reordered")
	}
}

func TestSectionsSplitByDisplayDay(t *testing.T) {
	t.Parallel()

	ist := time.FixedZone("IST", 5*3600+30*60)
	groups := Assemble([]domain.StoryGroup{
		group("late utc", "A", at(10, 20)),
		group("early utc", "B", at(11, 2)),
		group("previous", "C", at(10, 1)),
		group("undated", "D", nil),
	}, 0)

	sections := Sections(groups, ist)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d: %+v", len(sections), sections)
	}
	if sections[0].Day != "2024-01-11" || len(sections[0].Groups) != 2 {
		t.Fatalf("unexpected first section: %+v", sections[0])
	}
	if sections[2].Day != "" {
		t.Fatalf("undated section must come last with an empty day")
	}
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	var in []domain.StoryGroup
	for i := 0; i < 7; i++ {
		in = append(in, group(fmt.Sprintf("g%d", i), "A", at(1, i)))
	}

	tests := []struct {
		name     string
		size     int
		wantLens []int
	}{
		{name: "exact pages", size: 7, wantLens: []int{7}},
		{name: "remainder", size: 3, wantLens: []int{3, 3, 1}},
		{name: "unbounded", size: 0, wantLens: []int{7}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			pages := Paginate(in, tc.size)
			if len(pages) != len(tc.wantLens) {
				t.Fatalf("expected %d pages, got %d", len(tc.wantLens), len(pages))
			}
			for i, p := range pages {
				if len(p.Groups) != tc.wantLens[i] || p.Number != i+1 || p.Total != len(tc.wantLens) {
					t.Fatalf("page %d unexpected: number=%d total=%d len=%d", i, p.Number, p.Total, len(p.Groups))
				}
			}
		})
	}

	if got := Paginate(nil, 10); len(got) != 0 {
		t.Fatalf("expected no pages for no groups")
	}
}

func TestSnapshotShape(t *testing.T) {
	t.Parallel()

	groups := []domain.StoryGroup{
		group("covered", "A", at(2, 9), "B"),
		group("alone", "C", nil),
	}
	snap := NewSnapshot(groups, time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC))

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["article_count"].(float64) != 2 {
		t.Fatalf("unexpected count: %v", decoded["article_count"])
	}

	items := decoded["articles"].([]any)
	first := items[0].(map[string]any)
	if first["has_related"] != true || first["source"] != "A" || first["date"] != "2024-01-02T09:00:00Z" {
		t.Fatalf("unexpected first item: %v", first)
	}
	second := items[1].(map[string]any)
	if second["date"] != nil || second["has_related"] != false {
		t.Fatalf("undated item should carry a null date: %v", second)
	}
}
