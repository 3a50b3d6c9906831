// Package transparency holds the product transparency heuristics: answer
// quality scoring, score aggregation over a QA history, the stopping rule of
// the question loop and cleanup of model-generated question text.
//
// Everything here is pure and safe for concurrent use.
package transparency

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinQuestionLength is the exclusive lower bound on a cleaned question's
// length in characters.
const MinQuestionLength = 10

const (
	quoteChars   = "\"'`“”‘’«»"
	bracketChars = "[](){}<>"
)

func isQuoteOrBracket(r rune) bool {
	return strings.ContainsRune(quoteChars, r) || strings.ContainsRune(bracketChars, r)
}

func isEdgeJunk(r rune) bool {
	return unicode.IsSpace(r) || r == '?' || isQuoteOrBracket(r)
}

// NormalizeQuestion cleans a raw candidate question. The second return value
// is false when the cleaned text is too short to keep.
func NormalizeQuestion(raw string) (string, bool) {
	s := strings.TrimFunc(raw, isEdgeJunk)

	s = strings.Map(func(r rune) rune {
		if isQuoteOrBracket(r) {
			return -1
		}
		return r
	}, s)

	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", false
	}
	if !strings.HasSuffix(s, "?") {
		s += "?"
	}

	if utf8.RuneCountInString(s) <= MinQuestionLength {
		return "", false
	}
	return s, true
}

// NormalizeQuestions cleans every candidate and drops the rejected ones.
func NormalizeQuestions(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if q, ok := NormalizeQuestion(r); ok {
			out = append(out, q)
		}
	}
	return out
}
