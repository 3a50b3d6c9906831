// Package llm provides the chat-completions LLM adapter.
// Works against any OpenAI-compatible endpoint; Perplexity is the default.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

const (
	DefaultEndpoint = "https://api.perplexity.ai/chat/completions"
	DefaultModel    = "sonar-pro"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("llm: api key not configured")

// Config configures the chat-completions adapter.
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// ChatAdapter implements ports.LLMService and ports.ChatCompleter.
type ChatAdapter struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
	logger      *zap.Logger
}

// NewChatAdapter creates a new chat-completions adapter.
func NewChatAdapter(cfg Config, logger *zap.Logger) *ChatAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second // Longer timeout for streaming
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatAdapter{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// Enabled reports whether an API key is configured.
func (a *ChatAdapter) Enabled() bool {
	return strings.TrimSpace(a.apiKey) != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta        chatMessage `json:"delta"`
		FinishReason *string     `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends messages and returns the first choice's content.
func (a *ChatAdapter) Complete(ctx context.Context, messages []entities.ChatMessage) (string, error) {
	resp, err := a.post(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Generate produces a response given a prompt and context.
// The context passages are expected to already be part of the prompt.
func (a *ChatAdapter) Generate(ctx context.Context, prompt string, context []string) (string, error) {
	return a.Complete(ctx, []entities.ChatMessage{{Role: "user", Content: prompt}})
}

// GenerateStream produces a streaming response over server-sent events.
func (a *ChatAdapter) GenerateStream(ctx context.Context, prompt string, context []string) (<-chan ports.StreamToken, error) {
	resp, err := a.post(ctx, []entities.ChatMessage{{Role: "user", Content: prompt}}, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan ports.StreamToken, 100)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				ch <- ports.StreamToken{Done: true, Error: ctx.Err()}
				return
			default:
			}

			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				ch <- ports.StreamToken{Done: true}
				return
			}

			var chunk chatStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue // Skip malformed events
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			done := choice.FinishReason != nil && *choice.FinishReason != ""
			ch <- ports.StreamToken{Content: choice.Delta.Content, Done: done}
			if done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			ch <- ports.StreamToken{Done: true, Error: err}
			return
		}
		ch <- ports.StreamToken{Done: true}
	}()

	return ch, nil
}

// post issues the request and returns the response when it is 2xx.
func (a *ChatAdapter) post(ctx context.Context, messages []entities.ChatMessage, stream bool) (*http.Response, error) {
	if !a.Enabled() {
		return nil, ErrNotConfigured
	}

	reqBody := chatRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Stream:      stream,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling llm: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, fmt.Errorf("llm returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	a.logger.Debug("llm request accepted",
		zap.String("model", a.model),
		zap.Bool("stream", stream),
		zap.Duration("latency", time.Since(start)))
	return resp, nil
}
