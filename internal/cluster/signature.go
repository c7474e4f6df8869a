package cluster

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultPrefixes are headline labels ignored when comparing titles.
var DefaultPrefixes = []string{
	"breaking:",
	"breaking news:",
	"exclusive:",
	"update:",
	"updated:",
	"just in:",
	"developing:",
	"live:",
	"watch:",
	"explained:",
	"opinion:",
	"analysis:",
}

var (
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Signature is the set of significant words of a normalized title.
type Signature map[string]struct{}

// Overlap returns |s ∩ other| / min(|s|, |other|). It is 0 when either set is
// empty.
func (s Signature) Overlap(other Signature) float64 {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	if len(small) == 0 {
		return 0
	}

	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

// titleKey is the per-article data computed once per Cluster call.
type titleKey struct {
	normalized string
	signature  Signature
}

// NormalizeTitle strips markup, lowercases, removes one or more leading
// labels such as "breaking:", drops punctuation and collapses whitespace.
func NormalizeTitle(title string, prefixes []string) string {
	s := tagRe.ReplaceAllString(title, " ")
	s = html.UnescapeString(s)
	s = strings.ToLower(strings.TrimSpace(spaceRe.ReplaceAllString(s, " ")))

	for stripped := true; stripped; {
		stripped = false
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(s, p) {
				s = strings.TrimSpace(strings.TrimPrefix(s, p))
				stripped = true
			}
		}
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)

	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// SignatureOf splits a normalized title and keeps words of at least minLen
// characters.
func SignatureOf(normalized string, minLen int) Signature {
	sig := Signature{}
	for _, w := range strings.Fields(normalized) {
		if utf8.RuneCountInString(w) >= minLen {
			sig[w] = struct{}{}
		}
	}
	return sig
}
