package usecases

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
	"github.com/0xcro3dile/docqa-go/internal/domain/transparency"
)

// recentTopics is how many trailing questions the prompt lists.
const recentTopics = 3

// AssessUseCase runs one round of the product transparency loop: score the
// history, decide whether to keep asking, and fetch the next questions.
// It holds no per-session state.
type AssessUseCase struct {
	generator ports.QuestionGenerator
	logger    *zap.Logger
}

// NewAssessUseCase creates an AssessUseCase with injected dependencies.
func NewAssessUseCase(generator ports.QuestionGenerator, logger *zap.Logger) *AssessUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessUseCase{generator: generator, logger: logger}
}

// Assess never fails; generation problems surface as the fallback questions.
func (uc *AssessUseCase) Assess(ctx context.Context, req *entities.AssessmentRequest) *entities.AssessmentResult {
	product := req.Product.WithDefaults()
	history := req.History
	score := transparency.Score(history)

	if req.CurrentScore != 0 && int(req.CurrentScore) != score {
		uc.logger.Debug("ignoring client supplied score",
			zap.Float64("client_score", req.CurrentScore),
			zap.Int("score", score))
	}

	if !transparency.ShouldContinue(history, score) {
		uc.logger.Info("assessment complete",
			zap.String("product", product.Name),
			zap.Int("score", score),
			zap.Int("answered", len(history)))
		return &entities.AssessmentResult{
			Questions:         []string{},
			TransparencyScore: score,
			IsComplete:        true,
			AnsweredQuestions: len(history),
			Message:           transparency.CompletionMessage(score),
		}
	}

	questions := uc.generator.Generate(ctx, buildQuestionPrompt(product, history, score))
	if budget := transparency.QuestionBudget(score); len(questions) > budget {
		questions = questions[:budget]
	}
	if questions == nil {
		questions = []string{}
	}

	return &entities.AssessmentResult{
		Questions:         questions,
		TransparencyScore: score,
		IsComplete:        false,
		AnsweredQuestions: len(history),
		Message:           transparency.ProgressMessage(score),
	}
}

func buildQuestionPrompt(product entities.ProductInfo, history []entities.QAEntry, score int) string {
	var recent []string
	start := len(history) - recentTopics
	if start < 0 {
		start = 0
	}
	for _, qa := range history[start:] {
		if q := strings.TrimSpace(qa.Question); q != "" {
			recent = append(recent, q)
		}
	}
	topics := "none yet"
	if len(recent) > 0 {
		topics = strings.Join(recent, "; ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Product: %s\n", product.Name)
	fmt.Fprintf(&sb, "Category: %s\n", product.Category)
	fmt.Fprintf(&sb, "Current transparency score: %d/100\n", score)
	fmt.Fprintf(&sb, "Questions answered so far: %d\n", len(history))
	fmt.Fprintf(&sb, "Recent topics: %s\n", topics)
	fmt.Fprintf(&sb, "Focus area: %s\n\n", transparency.FocusArea(score))
	sb.WriteString("Generate up to 4 new questions about the focus area that do not repeat the recent topics. ")
	sb.WriteString("Return them as a JSON array of strings.")
	return sb.String()
}
