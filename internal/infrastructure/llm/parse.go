package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedBlock    = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	trailingArray  = regexp.MustCompile(`,\s*]`)
	trailingObject = regexp.MustCompile(`,\s*}`)
)

type rawRanking struct {
	Rank   *int   `json:"rank"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// parseRankings extracts the ranking array from a model reply. Code fences,
// surrounding prose, trailing commas and unclosed brackets are tolerated. A
// top-level object is accepted when it carries a "rankings" or "items" array.
func parseRankings(text string) ([]rawRanking, error) {
	text = strings.TrimSpace(text)
	if strings.Contains(text, "```") {
		if m := fencedBlock.FindStringSubmatch(text); m != nil {
			text = strings.TrimSpace(m[1])
		} else {
			text = strings.TrimSpace(strings.NewReplacer("```json", "", "```", "").Replace(text))
		}
	}
	if !strings.HasPrefix(text, "[") {
		if start := strings.Index(text, "["); start != -1 {
			if end := strings.LastIndex(text, "]"); end > start {
				text = text[start : end+1]
			}
		}
	}
	text = strings.ReplaceAll(text, "\n", " ")
	text = stripTrailingCommas(text)

	rankings, err := decodeRankings(text)
	if err == nil {
		return rankings, nil
	}
	rankings, retryErr := decodeRankings(stripTrailingCommas(closeBrackets(text)))
	if retryErr != nil {
		return nil, fmt.Errorf("parse rankings: %w", err)
	}
	return rankings, nil
}

func stripTrailingCommas(text string) string {
	text = trailingArray.ReplaceAllString(text, "]")
	return trailingObject.ReplaceAllString(text, "}")
}

func decodeRankings(text string) ([]rawRanking, error) {
	var list []rawRanking
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Rankings []rawRanking `json:"rankings"`
		Items    []rawRanking `json:"items"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil, err
	}
	switch {
	case wrapped.Rankings != nil:
		return wrapped.Rankings, nil
	case wrapped.Items != nil:
		return wrapped.Items, nil
	default:
		return nil, errors.New("no ranking array in reply")
	}
}

// closeBrackets appends the closers for every bracket left open outside
// string literals, innermost first.
func closeBrackets(text string) string {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if inString {
		text += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		text += string(stack[i])
	}
	return text
}
