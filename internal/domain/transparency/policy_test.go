package transparency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldContinue(t *testing.T) {
	tests := []struct {
		name    string
		entries int
		score   int
		want    bool
	}{
		{"fresh session", 0, 0, true},
		{"complete score", 1, 85, false},
		{"complete score regardless of length", 20, 99, false},
		{"question cap", 15, 10, false},
		{"well covered", 10, 75, false},
		{"high score few questions", 9, 80, true},
		{"many questions lower score", 12, 74, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldContinue(historyOf(tt.entries, "answer"), tt.score))
		})
	}
}

func TestFocusArea(t *testing.T) {
	assert.Equal(t, "basic ingredients and safety", FocusArea(30))
	assert.Equal(t, "manufacturing and supply chain", FocusArea(31))
	assert.Equal(t, "manufacturing and supply chain", FocusArea(60))
	assert.Equal(t, "sustainability and ethics", FocusArea(61))
}

func TestQuestionBudget(t *testing.T) {
	assert.Equal(t, 4, QuestionBudget(50))
	assert.Equal(t, 3, QuestionBudget(51))
	assert.Equal(t, 3, QuestionBudget(70))
	assert.Equal(t, 2, QuestionBudget(71))
}

func TestProgressMessage(t *testing.T) {
	assert.Contains(t, ProgressMessage(80), "Excellent")
	assert.Contains(t, ProgressMessage(60), "Good progress")
	assert.Contains(t, ProgressMessage(30), "Building")
	assert.Contains(t, ProgressMessage(0), "Let's start")
}
