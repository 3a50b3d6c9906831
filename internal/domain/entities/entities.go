// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Document represents a source document (PDF, DOCX, TXT, MD).
type Document struct {
	ID        string
	Name      string
	Path      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentID derives a stable document ID from its file path, so a file that
// is re-ingested or deleted maps back to the same stored chunks.
func DocumentID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// Chunk represents a piece of a document for embedding.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Index      int               // Position in document
	Metadata   map[string]string // source, chunk index, ...
	Embedding  []float32         // Vector representation (populated by adapter)
}

// QueryResult represents a search result with relevance.
type QueryResult struct {
	Chunk     Chunk
	Score     float64 // Similarity score
	SourceDoc string  // Document name for citation
}

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// ChatRequest represents a retrieval query.
type ChatRequest struct {
	Query string
	TopK  int
}

// ChatResponse represents the LLM's answer with sources.
type ChatResponse struct {
	Answer  string
	Sources []QueryResult
}

// IngestResult summarizes one ingested file.
type IngestResult struct {
	DocumentID     string `json:"document_id"`
	IngestedChunks int    `json:"ingested_chunks"`
	Collection     string `json:"collection"`
}

// UnknownProductField is used for product metadata the caller left out.
const UnknownProductField = "Unknown"

// ProductInfo is the product metadata supplied with an assessment request.
type ProductInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// WithDefaults fills blank fields with UnknownProductField.
func (p ProductInfo) WithDefaults() ProductInfo {
	if strings.TrimSpace(p.Name) == "" {
		p.Name = UnknownProductField
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = UnknownProductField
	}
	return p
}

// QAEntry is one answered question. A slice of entries is the QA history,
// ordered oldest first.
type QAEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`

	// MissingField is set by decoders when the question or answer key was
	// absent from the input. Blank values are still present.
	MissingField bool `json:"-"`
}

// Present reports whether the entry carried both a question and an answer
// field, blank or not.
func (e QAEntry) Present() bool {
	return !e.MissingField
}

// AssessmentRequest is the input of one transparency assessment round.
type AssessmentRequest struct {
	Product      ProductInfo
	History      []QAEntry
	CurrentScore float64 // informational only, the score is always recomputed
}

// AssessmentResult is the outcome of one assessment round.
type AssessmentResult struct {
	Questions         []string `json:"questions"`
	TransparencyScore int      `json:"transparency_score"`
	IsComplete        bool     `json:"is_complete"`
	AnsweredQuestions int      `json:"answered_questions"`
	Message           string   `json:"message"`
}
