package embedding

import (
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
)

// Hugging Face defaults.
const (
	DefaultHFEndpoint = "https://api-inference.huggingface.co/pipeline/feature-extraction"
	DefaultHFModel    = "all-MiniLM-L6-v2"
)

// hfBatchSize bounds the inputs sent in one inference call.
const hfBatchSize = 32

// HuggingFaceAdapter implements ports.EmbeddingService with the Hugging Face
// feature-extraction inference API.
type HuggingFaceAdapter struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewHuggingFaceAdapter creates an adapter. Bare model names are resolved
// under the sentence-transformers organisation.
func NewHuggingFaceAdapter(endpoint, model, apiKey string, logger *zap.Logger) *HuggingFaceAdapter {
	if endpoint == "" {
		endpoint = DefaultHFEndpoint
	}
	if model == "" {
		model = DefaultHFModel
	}
	if !strings.Contains(model, "/") {
		model = "sentence-transformers/" + model
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HuggingFaceAdapter{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger.Named("huggingface"),
	}
}

type hfRequest struct {
	Inputs  []string  `json:"inputs"`
	Options hfOptions `json:"options"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// Embed generates an embedding for a single text.
func (a *HuggingFaceAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch sends texts in batches of hfBatchSize.
func (a *HuggingFaceAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += hfBatchSize {
		end := start + hfBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := a.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

func (a *HuggingFaceAdapter) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(hfRequest{Inputs: texts, Options: hfOptions{WaitForModel: true}})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/"+a.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling inference API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, errors.New("inference API returned a different number of vectors than inputs")
	}

	a.logger.Debug("embedded batch", zap.String("model", a.model), zap.Int("inputs", len(texts)))
	return vectors, nil
}
