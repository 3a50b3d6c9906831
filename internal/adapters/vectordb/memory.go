package vectordb

import (
	"context"
	"sync"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// InMemoryStore is a non-persistent vector store for one collection.
type InMemoryStore struct {
	mu         sync.RWMutex
	collection string
	chunks     map[string]entities.Chunk      // chunkID -> chunk
	docs       map[string]map[string]struct{} // docID -> chunkIDs
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore(collection string) *InMemoryStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &InMemoryStore{
		collection: collection,
		chunks:     make(map[string]entities.Chunk),
		docs:       make(map[string]map[string]struct{}),
	}
}

// Collection returns the name of the collection this store writes to.
func (s *InMemoryStore) Collection() string {
	return s.collection
}

// Store saves chunks with their embeddings.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
		ids, ok := s.docs[chunk.DocumentID]
		if !ok {
			ids = make(map[string]struct{})
			s.docs[chunk.DocumentID] = ids
		}
		ids[chunk.ID] = struct{}{}
	}
	return nil
}

// Search finds the most similar chunks to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]entities.QueryResult, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		results = append(results, entities.QueryResult{
			Chunk:     chunk,
			Score:     cosineSimilarity(embedding, chunk.Embedding),
			SourceDoc: sourceName(chunk),
		})
	}

	return rankTopK(results, topK), nil
}

// Delete removes all chunks for a document.
func (s *InMemoryStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.docs[documentID] {
		delete(s.chunks, id)
	}
	delete(s.docs, documentID)
	return nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[string]entities.Chunk)
	s.docs = make(map[string]map[string]struct{})
	return nil
}

// Count returns the number of stored chunks.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}
