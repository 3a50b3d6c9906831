package questiongen

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/transparency"
)

var listMarker = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)

// ParseQuestions extracts cleaned questions from free-form model output.
// It tries a JSON array of strings first and falls back to taking every
// line that contains a question mark.
func ParseQuestions(text string) []string {
	cleaned := stripCodeFence(text)

	candidates, ok := parseJSONArray(cleaned)
	if !ok {
		candidates = questionLines(cleaned)
	}
	return transparency.NormalizeQuestions(candidates)
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop a language tag such as ```json.
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "[\"") {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseJSONArray(s string) ([]string, bool) {
	var items []any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok {
			out = append(out, strings.TrimSpace(str))
		}
	}
	return out, true
}

func questionLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if !strings.Contains(line, "?") {
			continue
		}
		line = strings.Trim(line, " \t\r,\"")
		line = listMarker.ReplaceAllString(line, "")
		out = append(out, strings.Trim(line, " ,\""))
	}
	return out
}
