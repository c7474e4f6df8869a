package filter

import (
	"testing"

	"FinanceRadar/internal/domain"
)

func TestDefaultRulesCompile(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	if len(rules.TitlePatterns) == 0 || len(rules.URLPatterns) == 0 {
		t.Fatalf("expected non-empty default rules, got %d title / %d url", len(rules.TitlePatterns), len(rules.URLPatterns))
	}

	if _, err := New(rules); err != nil {
		t.Fatalf("default rules do not compile: %v", err)
	}
}

func TestAdmitDefaultRules(t *testing.T) {
	t.Parallel()

	f, err := New(DefaultRules())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		name  string
		title string
		link  string
		admit bool
	}{
		{name: "policy news", title: "RBI cuts repo rate by 25bps", link: "https://a.com/economy/rbi-cut", admit: true},
		{name: "routine market close", title: "Sensex closes 300 points higher", link: "https://a.com/markets/1", admit: false},
		{name: "title match ignores case", title: "STOCKS TO WATCH today: Infosys, TCS", link: "https://a.com/2", admit: false},
		{name: "press release url", title: "Company announces partnership", link: "https://www.PRNewswire.com/news/1", admit: false},
		{name: "video section", title: "Budget explained", link: "https://a.com/videos/budget", admit: false},
		{name: "rupee symbol pattern", title: "HDFC Bank target price ₹1900", link: "https://a.com/3", admit: false},
		{name: "sports", title: "IPL auction: franchises spend big", link: "https://a.com/4", admit: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := f.Admit(domain.Article{Title: tc.title, Link: tc.link})
			if got != tc.admit {
				t.Fatalf("Admit(%q, %q) = %v, want %v", tc.title, tc.link, got, tc.admit)
			}
		})
	}
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	t.Parallel()

	if _, err := New(Rules{TitlePatterns: []string{"(unclosed"}}); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestApplyPreservesOrder(t *testing.T) {
	t.Parallel()

	f, err := New(Rules{
		TitlePatterns: []string{`^ad:`},
		URLPatterns:   []string{"/Sponsored/", "  "},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := []domain.Article{
		{Title: "First", Link: "https://x.com/1"},
		{Title: "Ad: buy now", Link: "https://x.com/2"},
		{Title: "Third", Link: "https://x.com/sponsored/3"},
		{Title: "Fourth", Link: "https://x.com/4"},
	}

	kept, rejected := f.Apply(in)
	if rejected != 2 {
		t.Fatalf("expected 2 rejected, got %d", rejected)
	}
	if len(kept) != 2 || kept[0].Title != "First" || kept[1].Title != "Fourth" {
		t.Fatalf("unexpected kept articles: %+v", kept)
	}
}
