package transparency

import (
	"math"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// Aggregation constants.
const (
	pointsPerQuestion    = 12
	maxParticipation     = 50
	qualityWeight        = 0.5
	maxTransparencyScore = 100
)

// Score folds a QA history into a 0-100 transparency score. It is a pure
// function of the history and is recomputed on every call.
func Score(history []entities.QAEntry) int {
	if len(history) == 0 {
		return 0
	}

	participation := math.Min(float64(len(history)*pointsPerQuestion), maxParticipation)

	var sum float64
	var scored int
	for _, qa := range history {
		if !qa.Present() {
			continue
		}
		sum += ScoreAnswer(qa.Question, qa.Answer)
		scored++
	}
	var quality float64
	if scored > 0 {
		quality = sum / float64(scored) * qualityWeight
	}

	total := int(math.Floor(participation + quality + comprehensiveBonus(len(history))))
	if total > maxTransparencyScore {
		return maxTransparencyScore
	}
	return total
}

func comprehensiveBonus(answered int) float64 {
	switch {
	case answered >= 8:
		return 15
	case answered >= 5:
		return 10
	case answered >= 3:
		return 5
	default:
		return 0
	}
}
