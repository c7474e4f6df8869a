// Package datetime turns the timestamp strings found in feeds into instants.
//
// Publishers disagree wildly on formats, so parsing is a fixed ordered list of
// exact layouts tried one after another rather than a general-purpose parser.
// A string that matches none of them is reported as undated, never as an error.
package datetime

import (
	"regexp"
	"strings"
	"time"
)

// layout is one accepted format. Layouts without zone information are
// interpreted in the caller's hint location.
type layout struct {
	format string
	zoned  bool
}

var layouts = []layout{
	{format: "Mon, 2 Jan 2006 15:04:05 -0700", zoned: true},
	{format: "Mon, 2 Jan 2006 15:04:05 -07:00", zoned: true},
	{format: "Mon, 2 Jan 2006 15:04:05", zoned: false},
	{format: "2006-01-02T15:04:05-0700", zoned: true},
	{format: "2006-01-02T15:04:05Z07:00", zoned: true},
	{format: "2006-01-02T15:04:05.999999999-0700", zoned: true},
	{format: "2006-01-02T15:04:05.999999999Z07:00", zoned: true},
	{format: "2006-01-02 15:04:05", zoned: false},
	{format: "2 Jan 2006 15:04:05 -0700", zoned: true},
	{format: "2 Jan 2006 15:04:05 -07:00", zoned: true},
}

// zoneReplacer maps the abbreviations feeds actually use onto fixed offsets.
// Any other zone name leaves the string unmatched, so it reads as undated.
var zoneReplacer = strings.NewReplacer(
	"GMT", "+0000",
	"UTC", "+0000",
	"IST", "+0530",
	"EDT", "-0400",
	"EST", "-0500",
)

var spaceRe = regexp.MustCompile(`\s+`)

// Parse reads raw using the known layouts. When the matched layout carries no
// zone, the wall clock is placed in hint, or UTC when hint is nil.
// The boolean is false when raw is empty or matches no layout.
func Parse(raw string, hint *time.Location) (time.Time, bool) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return time.Time{}, false
	}

	loc := hint
	if loc == nil {
		loc = time.UTC
	}

	for _, l := range layouts {
		var (
			t   time.Time
			err error
		)
		if l.zoned {
			t, err = time.Parse(l.format, cleaned)
		} else {
			t, err = time.ParseInLocation(l.format, cleaned, loc)
		}
		if err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// ParsePtr is Parse shaped for optional struct fields.
func ParsePtr(raw string, hint *time.Location) *time.Time {
	t, ok := Parse(raw, hint)
	if !ok {
		return nil
	}
	return &t
}

// Clean trims raw, collapses internal whitespace and substitutes known zone
// abbreviations with numeric offsets.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = spaceRe.ReplaceAllString(s, " ")
	return zoneReplacer.Replace(s)
}

// Normalize returns a copy of t in loc when t is set. Used by adapters whose
// library already parsed the timestamp.
func Normalize(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	v := t.In(loc)
	return &v
}
