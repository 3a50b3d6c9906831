package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// DefaultTopK is the number of chunks retrieved when a request leaves k unset.
const DefaultTopK = 5

// ErrEmptyQuestion is returned when a query carries no question text.
var ErrEmptyQuestion = errors.New("missing question")

// QueryUseCase handles retrieval and answer generation over the store.
type QueryUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	llm         ports.LLMService
	topK        int
	logger      *zap.Logger
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
func NewQueryUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	llm ports.LLMService,
	topK int,
	logger *zap.Logger,
) *QueryUseCase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
		llm:         llm,
		topK:        topK,
		logger:      logger,
	}
}

// Query retrieves the most relevant chunks and asks the model to answer from them.
func (uc *QueryUseCase) Query(ctx context.Context, req *entities.ChatRequest) (*entities.ChatResponse, error) {
	results, contextParts, err := uc.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, err := uc.llm.Generate(ctx, buildAnswerPrompt(req.Query, contextParts), contextParts)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	return &entities.ChatResponse{
		Answer:  strings.TrimSpace(answer),
		Sources: results,
	}, nil
}

// QueryStream is Query with the answer streamed token by token. The sources
// are known before generation starts and are returned up front.
func (uc *QueryUseCase) QueryStream(ctx context.Context, req *entities.ChatRequest) (<-chan ports.StreamToken, []entities.QueryResult, error) {
	results, contextParts, err := uc.retrieve(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := uc.llm.GenerateStream(ctx, buildAnswerPrompt(req.Query, contextParts), contextParts)
	if err != nil {
		return nil, nil, fmt.Errorf("generating response: %w", err)
	}
	return tokens, results, nil
}

// Search only retrieves relevant chunks without LLM generation.
func (uc *QueryUseCase) Search(ctx context.Context, query string, topK int) ([]entities.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = uc.topK
	}
	embedding, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := uc.vectorStore.Search(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	return results, nil
}

func (uc *QueryUseCase) retrieve(ctx context.Context, req *entities.ChatRequest) ([]entities.QueryResult, []string, error) {
	results, err := uc.Search(ctx, req.Query, req.TopK)
	if err != nil {
		return nil, nil, err
	}

	contextParts := make([]string, len(results))
	for i, r := range results {
		contextParts[i] = fmt.Sprintf("[Source: %s]\n%s", r.SourceDoc, r.Chunk.Content)
	}

	uc.logger.Debug("retrieved context",
		zap.Int("chunks", len(results)),
		zap.String("collection", uc.vectorStore.Collection()))
	return results, contextParts, nil
}

// buildAnswerPrompt creates the LLM prompt with context.
func buildAnswerPrompt(query string, context []string) string {
	var sb strings.Builder
	sb.WriteString("Use the following pieces of context to answer the question at the end. ")
	sb.WriteString("If the context does not contain the answer, say that you don't know instead of guessing.\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(strings.Join(context, "\n\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
