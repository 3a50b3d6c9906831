// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// Default chunking parameters, in bytes of document text.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunk metadata keys.
const (
	MetaSource     = "source"
	MetaChunkIndex = "chunk_index"
	MetaDocumentID = "document_id"
)

// separators are tried in order when looking for a place to end a chunk.
var separators = []string{"\n\n", "\n", " "}

// IngestUseCase handles document ingestion into the vector store.
type IngestUseCase struct {
	loader       ports.DocumentLoader
	embedder     ports.EmbeddingService
	vectorStore  ports.VectorStore
	chunkSize    int
	chunkOverlap int
	logger       *zap.Logger
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	loader ports.DocumentLoader,
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	chunkSize, chunkOverlap int,
	logger *zap.Logger,
) *IngestUseCase {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		loader:       loader,
		embedder:     embedder,
		vectorStore:  vectorStore,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// IngestFile loads the file at path and ingests it.
func (uc *IngestUseCase) IngestFile(ctx context.Context, path string) (*entities.IngestResult, error) {
	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	n, err := uc.Ingest(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", path, err)
	}

	return &entities.IngestResult{
		DocumentID:     doc.ID,
		IngestedChunks: n,
		Collection:     uc.vectorStore.Collection(),
	}, nil
}

// Ingest chunks, embeds and stores a document, replacing any chunks stored
// earlier under the same document ID. It returns the number of chunks stored.
func (uc *IngestUseCase) Ingest(ctx context.Context, doc *entities.Document) (int, error) {
	chunks := uc.chunkDocument(doc)
	if len(chunks) == 0 {
		if err := uc.vectorStore.Delete(ctx, doc.ID); err != nil {
			return 0, fmt.Errorf("removing stale chunks: %w", err)
		}
		uc.logger.Info("document has no text", zap.String("name", doc.Name))
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding chunks: got %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	if err := uc.vectorStore.Delete(ctx, doc.ID); err != nil {
		return 0, fmt.Errorf("replacing chunks: %w", err)
	}
	if err := uc.vectorStore.Store(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}

	uc.logger.Info("ingested document",
		zap.String("name", doc.Name),
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.String("collection", uc.vectorStore.Collection()))
	return len(chunks), nil
}

// Delete removes a document from the store.
func (uc *IngestUseCase) Delete(ctx context.Context, documentID string) error {
	return uc.vectorStore.Delete(ctx, documentID)
}

// DeleteFile removes the chunks of the document loaded from path.
func (uc *IngestUseCase) DeleteFile(ctx context.Context, path string) error {
	return uc.Delete(ctx, entities.DocumentID(path))
}

// Count returns the number of chunks in the store's collection.
func (uc *IngestUseCase) Count(ctx context.Context) (int, error) {
	return uc.vectorStore.Count(ctx)
}

// chunkDocument splits document content into overlapping chunks, preferring
// to end a chunk on a paragraph break, then a line break, then a space.
func (uc *IngestUseCase) chunkDocument(doc *entities.Document) []entities.Chunk {
	content := strings.TrimSpace(doc.Content)
	if len(content) == 0 {
		return nil
	}

	var chunks []entities.Chunk
	start := 0
	index := 0

	for start < len(content) {
		end := start + uc.chunkSize
		if end >= len(content) {
			end = len(content)
		} else {
			// Never split a multi-byte rune.
			for end > start+1 && !utf8.RuneStart(content[end]) {
				end--
			}
			end = start + breakPoint(content[start:end])
		}

		if text := strings.TrimSpace(content[start:end]); text != "" {
			chunks = append(chunks, entities.Chunk{
				ID:         fmt.Sprintf("%s:%d", doc.ID, index),
				DocumentID: doc.ID,
				Content:    text,
				Index:      index,
				Metadata: map[string]string{
					MetaSource:     doc.Name,
					MetaChunkIndex: strconv.Itoa(index),
					MetaDocumentID: doc.ID,
				},
			})
			index++
		}

		if end >= len(content) {
			break
		}
		next := alignRune(content, end-uc.chunkOverlap)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// breakPoint returns the length of window to keep. Paragraph and line breaks
// only count in the second half of the window so chunks stay reasonably full.
func breakPoint(window string) int {
	for i, sep := range separators {
		pos := strings.LastIndex(window, sep)
		if pos <= 0 {
			continue
		}
		if i < len(separators)-1 && pos < len(window)/2 {
			continue
		}
		return pos + len(sep)
	}
	return len(window)
}

// alignRune moves pos forward to the start of a rune.
func alignRune(s string, pos int) int {
	if pos < 0 {
		return 0
	}
	for pos < len(s) && !utf8.RuneStart(s[pos]) {
		pos++
	}
	return pos
}

// Sync applies file events until events is closed or ctx is done: created
// and modified files are (re)ingested, deleted files are removed from the
// store. Failures are logged and do not stop the loop.
func (uc *IngestUseCase) Sync(ctx context.Context, events <-chan ports.FileEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			uc.apply(ctx, ev)
		}
	}
}

func (uc *IngestUseCase) apply(ctx context.Context, ev ports.FileEvent) {
	log := uc.logger.With(zap.String("path", ev.Path), zap.Stringer("op", ev.Operation))

	switch ev.Operation {
	case ports.FileCreated, ports.FileModified:
		res, err := uc.IngestFile(ctx, ev.Path)
		if err != nil {
			log.Warn("sync ingest failed", zap.Error(err))
			return
		}
		log.Debug("synced file", zap.Int("chunks", res.IngestedChunks))
	case ports.FileDeleted:
		if err := uc.DeleteFile(ctx, ev.Path); err != nil {
			log.Warn("sync delete failed", zap.Error(err))
		}
	}
}
