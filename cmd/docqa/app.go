package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/adapters/embedding"
	"github.com/0xcro3dile/docqa-go/internal/adapters/llm"
	"github.com/0xcro3dile/docqa-go/internal/adapters/loader"
	"github.com/0xcro3dile/docqa-go/internal/adapters/parser"
	"github.com/0xcro3dile/docqa-go/internal/adapters/questiongen"
	"github.com/0xcro3dile/docqa-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/docqa-go/internal/config"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
	"github.com/0xcro3dile/docqa-go/internal/domain/usecases"
	"github.com/0xcro3dile/docqa-go/internal/logging"
)

// app holds the wired components shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  ports.VectorStore
	parser *parser.ServiceParser
	chat   *llm.ChatAdapter

	ingest *usecases.IngestUseCase
	query  *usecases.QueryUseCase
	assess *usecases.AssessUseCase

	closers []io.Closer
}

// newApp loads the configuration and wires adapters into use cases.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	embedder, err := buildEmbedder(cfg.Embedder, logger)
	if err != nil {
		return nil, err
	}

	a.store, err = a.buildStore(cfg.VectorStore)
	if err != nil {
		return nil, err
	}

	a.chat = llm.NewChatAdapter(llm.Config{
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout(),
	}, logger)
	if !a.chat.Enabled() {
		logger.Warn("no LLM API key configured; questions fall back to the static list and QA is unavailable")
	}

	a.parser = parser.NewServiceParser(cfg.Ingest.ParserURL, logger)
	docLoader := loader.NewMultiLoader(a.parser, logger)

	a.ingest = usecases.NewIngestUseCase(docLoader, embedder, a.store,
		cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, logger)
	a.query = usecases.NewQueryUseCase(embedder, a.store, a.chat, usecases.DefaultTopK, logger)
	a.assess = usecases.NewAssessUseCase(
		questiongen.NewGenerator(a.chat, cfg.Questions.Timeout(), logger), logger)

	return a, nil
}

func buildEmbedder(cfg config.EmbedderConfig, logger *zap.Logger) (ports.EmbeddingService, error) {
	switch cfg.Type {
	case config.EmbedderHuggingFace:
		return embedding.NewHuggingFaceAdapter(cfg.Endpoint, cfg.Model, cfg.APIKey, logger), nil
	case config.EmbedderOllama:
		return embedding.NewOllamaAdapter(cfg.OllamaURL, cfg.Model, logger), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

func (a *app) buildStore(cfg config.VectorStoreConfig) (ports.VectorStore, error) {
	switch cfg.Type {
	case config.VectorStoreSQLite:
		store, err := vectordb.NewSQLiteStore(cfg.Dir, cfg.Collection, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case config.VectorStoreMemory:
		return vectordb.NewInMemoryStore(cfg.Collection), nil
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.Type)
	}
}

// checkParser warns when the extraction service is unreachable; PDF and DOC
// ingestion fail until it comes up.
func (a *app) checkParser(ctx context.Context) {
	if !a.parser.Healthy(ctx) {
		a.logger.Warn("parser service unreachable; pdf and doc files cannot be ingested",
			zap.String("url", a.cfg.Ingest.ParserURL))
	}
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("closing resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
