package cluster

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the longest-matching-block similarity of a and b, compared
// character by character: 2*M / (len(a)+len(b)).
func Ratio(a, b string) float64 {
	m := difflib.NewMatcher(chars(a), chars(b))
	return m.Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
