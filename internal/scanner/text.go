package scanner

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// SummaryLimit bounds article summaries, in runes.
const SummaryLimit = 300

// CleanText drops markup and entities from an HTML fragment, collapses
// whitespace and cuts the result to limit runes with a trailing ellipsis.
// A non-positive limit keeps the full text.
func CleanText(raw string, limit int) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := raw
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	return Truncate(text, limit)
}

// Truncate cuts s to limit runes, replacing the tail with "...".
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := limit - 3
	if cut < 0 {
		cut = 0
	}
	return strings.TrimSpace(string(runes[:cut])) + "..."
}
