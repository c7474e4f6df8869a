// Package telegram reads public channel previews served at t.me/s/<channel>.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"FinanceRadar/internal/datetime"
	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/scanner"
)

const (
	previewBaseURL = "https://t.me/s/"
	titleLimit     = 120
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ChannelScanner turns channel preview messages into articles.
type ChannelScanner struct {
	client *http.Client
}

var _ scanner.Scanner = (*ChannelScanner)(nil)

// NewChannelScanner wires an HTTP client; nil gets a 15s-timeout default.
func NewChannelScanner(client *http.Client) *ChannelScanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ChannelScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (c *ChannelScanner) Name() string {
	return "telegram"
}

// Scan fetches the preview page named by req.URL, or built from the
// "channel" option, and extracts every message with text or a document.
func (c *ChannelScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	pageURL := req.URL
	if pageURL == "" {
		channel := strings.TrimPrefix(strings.TrimSpace(req.Option("channel", "")), "@")
		if channel == "" {
			return nil, fmt.Errorf("source %s has neither url nor channel", req.SourceName)
		}
		pageURL = previewBaseURL + channel
	}

	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	category := req.Category
	if category == "" {
		category = domain.CategoryTelegram
	}

	var articles []domain.Article
	doc.Find("div.tgme_widget_message[data-post]").Each(func(_ int, msg *goquery.Selection) {
		article, ok := parseMessage(msg, req.Location)
		if !ok {
			return
		}
		article.SourceName = req.SourceName
		article.SourceSiteURL = req.SiteURL
		article.Category = category
		articles = append(articles, article)
	})

	return articles, nil
}

func (c *ChannelScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func parseMessage(msg *goquery.Selection, hint *time.Location) (domain.Article, bool) {
	msg.Find(".tgme_widget_message_reply").Remove()

	textNode := msg.Find(".tgme_widget_message_text").First()
	textNode.Find("br").ReplaceWithHtml("\n")
	text := strings.TrimSpace(textNode.Text())

	title := firstLine(text)
	if title == "" {
		title = strings.TrimSpace(msg.Find(".tgme_widget_message_document_title").First().Text())
	}
	if title == "" {
		return domain.Article{}, false
	}

	link, _ := msg.Find("a.tgme_widget_message_date").First().Attr("href")
	if link == "" {
		if post, ok := msg.Attr("data-post"); ok && post != "" {
			link = "https://t.me/" + post
		}
	}

	stamp, _ := msg.Find("time[datetime]").First().Attr("datetime")

	return domain.Article{
		Title:       scanner.Truncate(title, titleLimit),
		Link:        strings.TrimSpace(link),
		PublishedAt: datetime.ParsePtr(stamp, hint),
		Summary:     scanner.Truncate(strings.Join(strings.Fields(text), " "), scanner.SummaryLimit),
	}, true
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			return line
		}
	}
	return ""
}
