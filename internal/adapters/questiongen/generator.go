// Package questiongen asks a chat model for product transparency questions.
// Implements ports.QuestionGenerator. Any upstream failure degrades to a
// fixed fallback list; Generate never returns an error.
package questiongen

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

const (
	// DefaultTimeout bounds a single generation call.
	DefaultTimeout = 30 * time.Second

	// MaxQuestions is the most questions one call returns.
	MaxQuestions = 4
)

const systemInstruction = "Generate SHORT, CLEAR product transparency questions. " +
	"Each question 5-10 words max. Focus on one specific aspect. " +
	"Prioritize questions that reveal product composition, safety, sustainability, manufacturing. " +
	"Output ONLY a valid JSON array of strings."

var fallbackQuestions = []string{
	"What ingredients are used in this product?",
	"Does this product contain any common allergens?",
	"Where are the main ingredients sourced from?",
	"What is the nutritional content per serving?",
}

// Fallback returns a copy of the static question list used when generation fails.
func Fallback() []string {
	out := make([]string, len(fallbackQuestions))
	copy(out, fallbackQuestions)
	return out
}

// Generator implements ports.QuestionGenerator on top of a chat model.
type Generator struct {
	llm     ports.ChatCompleter
	timeout time.Duration
	logger  *zap.Logger
}

// NewGenerator creates a Generator. A zero timeout uses DefaultTimeout.
func NewGenerator(llm ports.ChatCompleter, timeout time.Duration, logger *zap.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{llm: llm, timeout: timeout, logger: logger}
}

// Generate makes one attempt at the model and parses its reply.
func (g *Generator) Generate(ctx context.Context, prompt string) []string {
	if g.llm == nil {
		return Fallback()
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.llm.Complete(ctx, []entities.ChatMessage{
		{Role: "system", Content: systemInstruction},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		g.logger.Warn("question generation failed, using fallback", zap.Error(err))
		return Fallback()
	}
	if strings.TrimSpace(text) == "" {
		g.logger.Warn("question generation returned empty completion, using fallback")
		return Fallback()
	}

	questions := ParseQuestions(text)
	if len(questions) > MaxQuestions {
		questions = questions[:MaxQuestions]
	}
	g.logger.Debug("generated questions", zap.Int("count", len(questions)))
	return questions
}
