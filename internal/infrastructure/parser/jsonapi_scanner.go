package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strconv"
	"strings"
	"time"

	"FinanceRadar/internal/datetime"
	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/scanner"
)

// Browser identities tried in turn against endpoints that reject bots.
var browserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

var placeholderExpr = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// JSONAPIScanner reads a JSON endpoint whose items are objects.
//
// Options:
//
//	warmupUrl      page fetched first so the endpoint sees session cookies
//	itemsKey       dotted path to the item array; autodetected when empty
//	titleKey       item field holding the title (default "title")
//	titleTemplate  "{field} text {other}" alternative to titleKey
//	linkKey        item field holding the link (default "url", then "link")
//	linkTemplate   template alternative to linkKey
//	dateKey        item field holding the timestamp (default "date")
//	dateLayout     Go layout for dateKey when the known formats do not match
//	summaryKey     item field holding the summary (default "summary")
type JSONAPIScanner struct {
	timeout time.Duration
	agents  []string
	// newClient builds a fresh client per scan so cookies never leak across
	// sources.
	newClient func() *http.Client
}

var _ scanner.Scanner = (*JSONAPIScanner)(nil)

// NewJSONAPIScanner builds a scanner whose per-scan clients use timeout.
func NewJSONAPIScanner(timeout time.Duration) *JSONAPIScanner {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	s := &JSONAPIScanner{timeout: timeout, agents: browserAgents}
	s.newClient = func() *http.Client {
		jar, _ := cookiejar.New(nil)
		return &http.Client{Timeout: s.timeout, Jar: jar}
	}
	return s
}

// Name identifies the strategy inside the registry.
func (s *JSONAPIScanner) Name() string {
	return "jsonapi"
}

// Scan performs the optional warm-up and then reads the item array.
func (s *JSONAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("source %s has no api url", req.SourceName)
	}

	client := s.newClient()
	headers := func(agent string) map[string]string {
		h := map[string]string{
			"User-Agent":      agent,
			"Accept":          "application/json, text/html;q=0.9, */*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		}
		if referer := req.Option("referer", req.SiteURL); referer != "" {
			h["Referer"] = referer
		}
		return h
	}

	if warmup := req.Option("warmupUrl", ""); warmup != "" {
		if _, err := s.withAgents(ctx, func(agent string) ([]byte, error) {
			return fetch(ctx, client, warmup, headers(agent))
		}); err != nil {
			return nil, fmt.Errorf("warm up: %w", err)
		}
	}

	body, err := s.withAgents(ctx, func(agent string) ([]byte, error) {
		return fetch(ctx, client, req.URL, headers(agent))
	})
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	items, err := locateItems(payload, req.Option("itemsKey", ""))
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		if article, ok := convertObject(item, req); ok {
			articles = append(articles, article)
		}
	}
	return articles, nil
}

// withAgents retries call once per browser identity and returns the first
// success.
func (s *JSONAPIScanner) withAgents(ctx context.Context, call func(agent string) ([]byte, error)) ([]byte, error) {
	var errs []error
	for _, agent := range s.agents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := call(agent)
		if err == nil {
			return body, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("all user agents failed: %w", errors.Join(errs...))
}

// locateItems finds the array of objects under path, or the first such array
// in the document when path is empty.
func locateItems(payload any, path string) ([]map[string]any, error) {
	if path != "" {
		node := payload
		for _, key := range strings.Split(path, ".") {
			obj, ok := node.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("items path %s: %s is not an object", path, key)
			}
			node = obj[key]
		}
		items, ok := objects(node)
		if !ok {
			return nil, fmt.Errorf("items path %s is not an array", path)
		}
		return items, nil
	}

	if items, ok := objects(payload); ok {
		return items, nil
	}
	if obj, ok := payload.(map[string]any); ok {
		for _, key := range []string{"data", "items", "articles", "results"} {
			if items, ok := objects(obj[key]); ok {
				return items, nil
			}
		}
	}
	return nil, errors.New("no item array found in response")
}

func objects(node any) ([]map[string]any, bool) {
	list, ok := node.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out, true
}

func convertObject(item map[string]any, req scanner.Request) (domain.Article, bool) {
	title := fieldOrTemplate(item, req.Option("titleKey", "title"), req.Option("titleTemplate", ""))
	link := fieldOrTemplate(item, req.Option("linkKey", "url"), req.Option("linkTemplate", ""))
	if link == "" && req.Option("linkKey", "") == "" {
		link = stringField(item, "link")
	}
	if title == "" && link == "" {
		return domain.Article{}, false
	}

	var published *time.Time
	if raw := stringField(item, req.Option("dateKey", "date")); raw != "" {
		published = datetime.ParsePtr(raw, req.Location)
		if published == nil {
			if layout := req.Option("dateLayout", ""); layout != "" {
				loc := req.Location
				if loc == nil {
					loc = time.UTC
				}
				if t, err := time.ParseInLocation(layout, strings.TrimSpace(raw), loc); err == nil {
					published = &t
				}
			}
		}
	}

	return domain.Article{
		Title:         title,
		Link:          link,
		PublishedAt:   published,
		Summary:       scanner.CleanText(stringField(item, req.Option("summaryKey", "summary")), scanner.SummaryLimit),
		SourceName:    req.SourceName,
		SourceSiteURL: req.SiteURL,
		Category:      req.Category,
	}, true
}

func fieldOrTemplate(item map[string]any, key, template string) string {
	if template == "" {
		return stringField(item, key)
	}
	out := placeholderExpr.ReplaceAllStringFunc(template, func(m string) string {
		return stringField(item, m[1:len(m)-1])
	})
	return strings.Join(strings.Fields(out), " ")
}

func stringField(item map[string]any, key string) string {
	v, ok := item[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
