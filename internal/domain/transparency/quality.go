package transparency

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Answer quality constants.
const (
	answerBase         = 25.0
	maxLengthBonus     = 40.0
	lengthBonusDivisor = 3.0
	maxQualityBonus    = 35.0
	maxAnswerScore     = 100.0
	longAnswerRunes    = 150
	mediumAnswerRunes  = 80
	shortAnswerRunes   = 40
	longAnswerBonus    = 15.0
	mediumAnswerBonus  = 10.0
	shortAnswerBonus   = 5.0
	gramUnitWeight     = 5.0
)

type keyword struct {
	term   string
	weight float64
}

// transparencyKeywords are matched as case-insensitive substrings.
var transparencyKeywords = []keyword{
	// units and percentages
	{"mg", 8},
	{"%", 10},
	{"calories", 8},
	// sustainability and certification
	{"certified", 10},
	{"sustainable", 8},
	{"organic", 8},
	{"recyclable", 7},
	{"compostable", 7},
	{"audit", 8},
	{"verified", 8},
	{"traceability", 10},
	{"carbon", 7},
	{"emissions", 7},
	{"renewable", 7},
	{"local", 5},
}

// A bare "g" is a substring of most English words, so grams only count when
// written as a unit after a number ("12g", "12 g").
var gramUnit = regexp.MustCompile(`\d\s?g\b`)

// ScoreAnswer rates how much transparency information an answer carries, on a
// 0-100 scale. The question is accepted for symmetry with callers but does not
// influence the score.
func ScoreAnswer(_, answer string) float64 {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return 0
	}

	length := utf8.RuneCountInString(answer)
	lengthBonus := math.Min(float64(length)/lengthBonusDivisor, maxLengthBonus)

	quality := keywordBonus(strings.ToLower(answer)) + lengthTierBonus(length)
	quality = math.Min(quality, maxQualityBonus)

	return math.Min(answerBase+lengthBonus+quality, maxAnswerScore)
}

func keywordBonus(lower string) float64 {
	var bonus float64
	for _, kw := range transparencyKeywords {
		if strings.Contains(lower, kw.term) {
			bonus += kw.weight
		}
	}
	if gramUnit.MatchString(lower) {
		bonus += gramUnitWeight
	}
	return bonus
}

func lengthTierBonus(length int) float64 {
	switch {
	case length > longAnswerRunes:
		return longAnswerBonus
	case length > mediumAnswerRunes:
		return mediumAnswerBonus
	case length > shortAnswerRunes:
		return shortAnswerBonus
	default:
		return 0
	}
}
