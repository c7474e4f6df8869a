package llm

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"FinanceRadar/internal/config"
	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/infrastructure/export"
	"FinanceRadar/internal/ports"
)

const providerKey = "openrouter"

const rankingPrompt = `From these headlines (last %d hours), select the TOP %d most important stories. Rank by:
1. Market impact (stocks, forex, commodities)
2. Policy significance (central bank, government, regulations)
3. Corporate news (major deals, earnings, scandals)
4. Economic indicators and data
5. Global events affecting local markets

Headlines:
%s

Return ONLY a valid JSON array with exactly %d items (no markdown, no explanation, no code blocks):
[
  {"rank": 1, "title": "exact headline text from above", "reason": "10 words max why important"}
]

IMPORTANT: Use the EXACT headline text from the list above. Do not paraphrase or modify titles.`

// Ranking is one entry of the rankings file.
type Ranking struct {
	Rank   int    `json:"rank"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}

type providerResult struct {
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Count    int       `json:"count"`
	Rankings []Ranking `json:"rankings,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type rankingsFile struct {
	GeneratedAt  time.Time                 `json:"generated_at"`
	ArticleCount int                       `json:"article_count"`
	Providers    map[string]providerResult `json:"providers"`
}

// Ranker implements ports.Ranker against an OpenAI-compatible chat API.
type Ranker struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	window       time.Duration
	maxArticles  int
	topN         int
	outputPath   string
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time
}

var _ ports.Ranker = (*Ranker)(nil)

// NewRanker builds a ranker that writes its result to outputPath.
func NewRanker(cfg config.RankerConfig, outputPath string, log *slog.Logger) *Ranker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Ranker{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		window:       cmp.Or(cfg.Window, 48*time.Hour),
		maxArticles:  cmp.Or(cfg.MaxArticles, 150),
		topN:         cmp.Or(cfg.TopN, 20),
		outputPath:   outputPath,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       log,
		now:          time.Now,
	}
}

// Rank sends the recent part of snapshot to the model and writes the
// rankings file. A provider failure is still recorded in the file; the
// returned error reports it. An empty window writes nothing.
func (r *Ranker) Rank(ctx context.Context, snapshot domain.Snapshot) (domain.Artifact, error) {
	if r.apiKey == "" || r.endpoint == "" || r.model == "" {
		return domain.Artifact{}, fmt.Errorf("ranker misconfigured")
	}

	items := r.recent(snapshot.Articles)
	if len(items) == 0 {
		r.debug("no recent articles to rank")
		return domain.Artifact{}, nil
	}

	byTitle := make(map[string]domain.SnapshotItem, len(items))
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := byTitle[item.Title]; !ok {
			byTitle[item.Title] = item
		}
		lines = append(lines, "- "+item.Title)
	}

	result := providerResult{Name: "OpenRouter (" + r.model + ")", Status: "ok"}
	rankings, rankErr := r.ask(ctx, strings.Join(lines, "\n"))
	if rankErr != nil {
		result.Status = "error"
		result.Error = truncate(rankErr.Error(), 200)
	} else {
		result.Rankings = enrich(rankings, byTitle, r.topN)
		result.Count = len(result.Rankings)
	}

	out := rankingsFile{
		GeneratedAt:  r.now(),
		ArticleCount: len(items),
		Providers:    map[string]providerResult{providerKey: result},
	}
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("marshal rankings: %w", err)
	}
	if err := export.WriteFileAtomic(r.outputPath, raw); err != nil {
		return domain.Artifact{}, fmt.Errorf("write rankings: %w", err)
	}

	artifact := domain.Artifact{
		Name:        filepath.Base(r.outputPath),
		Path:        r.outputPath,
		ContentType: "application/json",
	}
	if rankErr != nil {
		return artifact, fmt.Errorf("rank with %s: %w", providerKey, rankErr)
	}
	r.debug("rankings written", "count", result.Count, "path", r.outputPath)
	return artifact, nil
}

// recent keeps dated items inside the window plus every undated item,
// newest first with undated last, capped at maxArticles.
func (r *Ranker) recent(items []domain.SnapshotItem) []domain.SnapshotItem {
	cutoff := r.now().Add(-r.window)
	kept := make([]domain.SnapshotItem, 0, len(items))
	for _, item := range items {
		if item.Date == nil || !item.Date.Before(cutoff) {
			kept = append(kept, item)
		}
	}
	slices.SortStableFunc(kept, func(a, b domain.SnapshotItem) int {
		switch {
		case a.Date == nil && b.Date == nil:
			return 0
		case a.Date == nil:
			return 1
		case b.Date == nil:
			return -1
		default:
			return b.Date.Compare(*a.Date)
		}
	})
	if len(kept) > r.maxArticles {
		kept = kept[:r.maxArticles]
	}
	return kept
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (r *Ranker) ask(ctx context.Context, headlines string) ([]rawRanking, error) {
	prompt := fmt.Sprintf(rankingPrompt, int(r.window.Hours()), r.topN, headlines, r.topN)
	body, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(r.systemPrompt)},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "FinanceRadar")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send ranking request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ranker error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("chat response has no choices")
	}
	return parseRankings(decoded.Choices[0].Message.Content)
}

// enrich attaches link and source to each ranked title and renumbers
// entries without a rank by position.
func enrich(rankings []rawRanking, byTitle map[string]domain.SnapshotItem, limit int) []Ranking {
	if len(rankings) > limit {
		rankings = rankings[:limit]
	}
	out := make([]Ranking, 0, len(rankings))
	for _, raw := range rankings {
		entry := Ranking{Rank: len(out) + 1, Title: raw.Title, Reason: raw.Reason}
		if raw.Rank != nil {
			entry.Rank = *raw.Rank
		}
		if item, ok := byTitle[raw.Title]; ok {
			entry.URL = item.URL
			entry.Source = item.Source
		}
		out = append(out, entry)
	}
	return out
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a senior financial news editor tracking markets, economy and business."
	}
	return prompt
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func (r *Ranker) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
