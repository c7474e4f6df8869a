// Package filter decides which articles are routine noise.
// A Filter is built once from rule data and is safe for concurrent use.
package filter

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"FinanceRadar/internal/domain"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Rules is the data a Filter is built from.
type Rules struct {
	TitlePatterns []string `yaml:"titlePatterns"`
	URLPatterns   []string `yaml:"urlPatterns"`
}

// DefaultRules returns the shipped rule tables.
func DefaultRules() Rules {
	var rules Rules
	if err := yaml.Unmarshal(defaultRulesYAML, &rules); err != nil {
		panic(fmt.Sprintf("filter: embedded default rules are invalid: %v", err))
	}
	return rules
}

// Filter rejects articles whose link contains a blocked substring or whose
// title matches a blocked pattern.
type Filter struct {
	titles []*regexp.Regexp
	urls   []string
}

// New compiles rules. Every title pattern is matched case-insensitively.
func New(rules Rules) (*Filter, error) {
	f := &Filter{
		titles: make([]*regexp.Regexp, 0, len(rules.TitlePatterns)),
		urls:   make([]string, 0, len(rules.URLPatterns)),
	}

	for _, p := range rules.TitlePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile title pattern %q: %w", p, err)
		}
		f.titles = append(f.titles, re)
	}

	for _, p := range rules.URLPatterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		f.urls = append(f.urls, p)
	}

	return f, nil
}

// Admit reports whether article should be kept.
func (f *Filter) Admit(article domain.Article) bool {
	link := strings.ToLower(article.Link)
	for _, p := range f.urls {
		if strings.Contains(link, p) {
			return false
		}
	}

	title := strings.ToLower(article.Title)
	for _, re := range f.titles {
		if re.MatchString(title) {
			return false
		}
	}

	return true
}

// Apply returns the admitted articles in input order and how many were
// rejected.
func (f *Filter) Apply(articles []domain.Article) ([]domain.Article, int) {
	kept := make([]domain.Article, 0, len(articles))
	rejected := 0
	for _, a := range articles {
		if f.Admit(a) {
			kept = append(kept, a)
			continue
		}
		rejected++
	}
	return kept, rejected
}
