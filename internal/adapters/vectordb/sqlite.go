// Package vectordb provides vector store adapters implementing
// ports.VectorStore: a persistent SQLite store and an in-memory store.
package vectordb

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// SQLiteStore implements ports.VectorStore on a SQLite file. Every store
// writes to one named collection; several collections can share a file.
// Search is a brute-force cosine scan over the collection.
type SQLiteStore struct {
	mu         sync.RWMutex
	db         *sql.DB
	collection string
	logger     *zap.Logger
}

// NewSQLiteStore opens (or creates) dir/vectors.db.
func NewSQLiteStore(dir, collection string, logger *zap.Logger) (*SQLiteStore, error) {
	if dir == "" {
		dir = "./vector_db"
	}
	if collection == "" {
		collection = DefaultCollection
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating vector directory: %w", err)
	}

	dbPath := filepath.Join(dir, "vectors.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{
		db:         db,
		collection: collection,
		logger:     logger.Named("sqlite"),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	store.logger.Info("vector store opened", zap.String("path", dbPath), zap.String("collection", collection))
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(collection, document_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Collection returns the name of the collection this store writes to.
func (s *SQLiteStore) Collection() string {
	return s.collection
}

// Store saves chunks with their embeddings.
func (s *SQLiteStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (collection, id, document_id, content, chunk_index, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		blob, err := encodeEmbedding(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		meta, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			s.collection,
			chunk.ID,
			chunk.DocumentID,
			chunk.Content,
			chunk.Index,
			blob,
			string(meta),
		)
		if err != nil {
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}

	return tx.Commit()
}

// Search finds the most similar chunks to a query embedding.
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, chunk_index, embedding, metadata
		FROM chunks WHERE collection = ?
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []entities.QueryResult
	for rows.Next() {
		var chunk entities.Chunk
		var blob []byte
		var meta string

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &chunk.Index, &blob, &meta); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		chunk.Embedding, err = decodeEmbedding(blob)
		if err != nil {
			s.logger.Warn("skipping corrupted embedding", zap.String("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		if err := json.Unmarshal([]byte(meta), &chunk.Metadata); err != nil {
			s.logger.Warn("ignoring corrupted metadata", zap.String("chunk_id", chunk.ID), zap.Error(err))
		}

		results = append(results, entities.QueryResult{
			Chunk:     chunk,
			Score:     cosineSimilarity(embedding, chunk.Embedding),
			SourceDoc: sourceName(chunk),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	return rankTopK(results, topK), nil
}

// Delete removes all chunks for a document.
func (s *SQLiteStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE collection = ? AND document_id = ?", s.collection, documentID)
	return err
}

// Clear removes all chunks of the collection.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE collection = ?", s.collection)
	return err
}

// Count returns the number of chunks in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE collection = ?", s.collection).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Embeddings are stored as little-endian float32 arrays.
func encodeEmbedding(v []float32) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 4*len(v)))
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob has %d bytes, not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return v, nil
}
