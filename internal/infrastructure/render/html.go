// Package render produces the static browsable page.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"FinanceRadar/internal/domain"
	"FinanceRadar/internal/infrastructure/export"
	"FinanceRadar/internal/ports"
	"FinanceRadar/internal/present"
	"FinanceRadar/internal/scanner"
)

//go:embed page.html.tmpl
var pageTemplate string

var tmpl = template.Must(template.New("page").Parse(pageTemplate))

// Options configures the HTML renderer.
type Options struct {
	Path     string
	Title    string
	PageSize int
	Location *time.Location
}

// HTMLRenderer writes one self-contained HTML file with a track per
// category, paged and split by display day.
type HTMLRenderer struct {
	opts Options
}

var _ ports.PageRenderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer fills defaults for empty options.
func NewHTMLRenderer(opts Options) *HTMLRenderer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Title == "" {
		opts.Title = "FinanceRadar"
	}
	return &HTMLRenderer{opts: opts}
}

type pageView struct {
	Title       string
	GeneratedAt string
	StoryCount  int
	SourceCount int
	Tracks      []trackView
}

type trackView struct {
	Category   string
	Anchor     string
	StoryCount int
	Pages      []pageSection
}

type pageSection struct {
	Number   int
	Total    int
	Sections []daySection
}

type daySection struct {
	Label   string
	Stories []storyView
}

type storyView struct {
	Title   string
	Link    string
	Source  string
	SiteURL string
	Time    string
	Summary string
	Related []domain.RelatedSource
}

// Render writes the page for groups, which must already be in display order.
func (r *HTMLRenderer) Render(_ context.Context, groups []domain.StoryGroup, generatedAt time.Time) (domain.Artifact, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r.view(groups, generatedAt)); err != nil {
		return domain.Artifact{}, fmt.Errorf("execute page template: %w", err)
	}
	if err := export.WriteFileAtomic(r.opts.Path, buf.Bytes()); err != nil {
		return domain.Artifact{}, err
	}
	return domain.Artifact{
		Name:        filepath.Base(r.opts.Path),
		Path:        r.opts.Path,
		ContentType: "text/html; charset=utf-8",
	}, nil
}

func (r *HTMLRenderer) view(groups []domain.StoryGroup, generatedAt time.Time) pageView {
	loc := r.opts.Location
	sources := map[string]struct{}{}

	order := make([]string, 0)
	byCategory := map[string][]domain.StoryGroup{}
	for _, g := range groups {
		for _, m := range g.Members {
			sources[m.SourceName] = struct{}{}
		}
		for _, rel := range g.Related {
			sources[rel.SourceName] = struct{}{}
		}
		cat := g.Primary.Category
		if _, ok := byCategory[cat]; !ok {
			order = append(order, cat)
		}
		byCategory[cat] = append(byCategory[cat], g)
	}

	tracks := make([]trackView, 0, len(order))
	for _, cat := range order {
		track := trackView{
			Category:   cat,
			Anchor:     anchor(cat),
			StoryCount: len(byCategory[cat]),
		}
		for _, page := range present.Paginate(byCategory[cat], r.opts.PageSize) {
			ps := pageSection{Number: page.Number, Total: page.Total}
			for _, sec := range present.Sections(page.Groups, loc) {
				ps.Sections = append(ps.Sections, daySection{
					Label:   dayLabel(sec.Day, loc),
					Stories: stories(sec.Groups, loc),
				})
			}
			track.Pages = append(track.Pages, ps)
		}
		tracks = append(tracks, track)
	}

	return pageView{
		Title:       r.opts.Title,
		GeneratedAt: generatedAt.In(loc).Format("02 Jan 2006 15:04 MST"),
		StoryCount:  len(groups),
		SourceCount: len(sources),
		Tracks:      tracks,
	}
}

func stories(groups []domain.StoryGroup, loc *time.Location) []storyView {
	out := make([]storyView, 0, len(groups))
	for _, g := range groups {
		p := g.Primary
		title := scanner.CleanText(p.Title, 0)
		if title == "" {
			title = p.Link
		}
		sv := storyView{
			Title:   title,
			Link:    p.Link,
			Source:  p.SourceName,
			SiteURL: p.SourceSiteURL,
			Summary: p.Summary,
			Related: g.Related,
		}
		if p.Dated() {
			sv.Time = p.PublishedAt.In(loc).Format("15:04")
		}
		out = append(out, sv)
	}
	return out
}

func dayLabel(day string, loc *time.Location) string {
	if day == "" {
		return "Undated"
	}
	t, err := time.ParseInLocation(time.DateOnly, day, loc)
	if err != nil {
		return day
	}
	return t.Format("Monday, 02 January 2006")
}

func anchor(category string) string {
	a := strings.ToLower(strings.Join(strings.Fields(category), "-"))
	if a == "" {
		return "uncategorized"
	}
	return a
}
