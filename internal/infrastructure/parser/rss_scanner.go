package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"FinanceRadar/internal/datetime"
	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/scanner"
)

// RSSScanner reads RSS 2.0 and Atom feeds.
type RSSScanner struct {
	client    *http.Client
	userAgent string
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client; nil gets a 20s-timeout default.
func NewRSSScanner(client *http.Client, userAgent string) *RSSScanner {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &RSSScanner{client: defaultClient(client), userAgent: userAgent}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan downloads the feed and converts every item with a title or link.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("source %s has no feed url", req.SourceName)
	}

	body, err := fetch(ctx, s.client, req.URL, map[string]string{
		"User-Agent": s.userAgent,
		"Accept":     "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8",
	})
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		article, ok := convertItem(item, req)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func convertItem(item *gofeed.Item, req scanner.Request) (domain.Article, bool) {
	title := strings.TrimSpace(item.Title)
	link := itemLink(item)
	if title == "" && link == "" {
		return domain.Article{}, false
	}

	summary := item.Description
	if strings.TrimSpace(summary) == "" {
		summary = item.Content
	}

	return domain.Article{
		Title:         title,
		Link:          link,
		PublishedAt:   itemDate(item, req.Location),
		Summary:       scanner.CleanText(summary, scanner.SummaryLimit),
		SourceName:    req.SourceName,
		SourceSiteURL: req.SiteURL,
		Category:      req.Category,
	}, true
}

func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, l := range item.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	if strings.HasPrefix(item.GUID, "http") {
		return strings.TrimSpace(item.GUID)
	}
	return ""
}

// itemDate prefers the raw strings so a source timezone can apply to
// zone-less values; gofeed's own parse is the fallback.
func itemDate(item *gofeed.Item, hint *time.Location) *time.Time {
	for _, raw := range []string{item.Published, item.Updated} {
		if t := datetime.ParsePtr(raw, hint); t != nil {
			return t
		}
	}
	for _, t := range []*time.Time{item.PublishedParsed, item.UpdatedParsed} {
		if t != nil && !t.IsZero() {
			return datetime.Normalize(t, time.UTC)
		}
	}
	return nil
}
