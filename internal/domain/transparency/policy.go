package transparency

import "github.com/0xcro3dile/docqa-go/internal/domain/entities"

// Stopping thresholds for the question loop.
const (
	CompleteScore        = 85
	MaxQuestions         = 15
	WellCoveredScore     = 75
	WellCoveredQuestions = 10
)

// ShouldContinue reports whether more questions should be generated for a
// history with the given score.
func ShouldContinue(history []entities.QAEntry, score int) bool {
	switch {
	case score >= CompleteScore:
		return false
	case len(history) >= MaxQuestions:
		return false
	case score >= WellCoveredScore && len(history) >= WellCoveredQuestions:
		return false
	default:
		return true
	}
}

// FocusArea picks the topic the next questions should dig into.
func FocusArea(score int) string {
	switch {
	case score > 60:
		return "sustainability and ethics"
	case score > 30:
		return "manufacturing and supply chain"
	default:
		return "basic ingredients and safety"
	}
}

// QuestionBudget is how many generated questions to hand back at a score.
func QuestionBudget(score int) int {
	switch {
	case score > 70:
		return 2
	case score > 50:
		return 3
	default:
		return 4
	}
}

// ProgressMessage is the human-readable status shown next to a score.
func ProgressMessage(score int) string {
	switch {
	case score >= 80:
		return "Excellent transparency! Just a few more details to round out the picture."
	case score >= 60:
		return "Good progress! Let's dig into sustainability and ethics."
	case score >= 30:
		return "Building a clearer picture. Tell us more about how the product is made."
	default:
		return "Let's start with the basics: ingredients and safety."
	}
}

// CompletionMessage is returned once the loop has stopped.
func CompletionMessage(score int) string {
	if score >= CompleteScore {
		return "Assessment complete. This product's disclosure is comprehensive."
	}
	return "Assessment complete. Enough questions have been answered for a transparency score."
}
