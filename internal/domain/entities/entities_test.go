package entities

import (
	"testing"
	"time"
)

func TestDocument_Creation(t *testing.T) {
	doc := Document{
		ID:        "doc-123",
		Name:      "label.pdf",
		Path:      "/tmp/label.pdf",
		Content:   "Ingredients: oats, honey",
		CreatedAt: time.Now(),
	}

	if doc.ID != "doc-123" {
		t.Errorf("expected ID doc-123, got %s", doc.ID)
	}
	if doc.Name != "label.pdf" {
		t.Errorf("expected name label.pdf, got %s", doc.Name)
	}
}

func TestChunk_WithMetadata(t *testing.T) {
	chunk := Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-123",
		Content:    "some text",
		Metadata:   map[string]string{"source": "label.pdf"},
		Embedding:  []float32{0.1, 0.2, 0.3},
	}

	if len(chunk.Embedding) != 3 {
		t.Errorf("expected 3 embedding dims, got %d", len(chunk.Embedding))
	}
	if chunk.Metadata["source"] != "label.pdf" {
		t.Errorf("unexpected source: %s", chunk.Metadata["source"])
	}
}

func TestProductInfo_WithDefaults(t *testing.T) {
	got := ProductInfo{}.WithDefaults()
	if got.Name != "Unknown" || got.Category != "Unknown" {
		t.Errorf("expected Unknown defaults, got %+v", got)
	}

	got = ProductInfo{Name: "Oat Bar", Category: "  "}.WithDefaults()
	if got.Name != "Oat Bar" {
		t.Errorf("name should be kept, got %s", got.Name)
	}
	if got.Category != "Unknown" {
		t.Errorf("blank category should default, got %q", got.Category)
	}
}

func TestQAEntry_Present(t *testing.T) {
	tests := []struct {
		entry QAEntry
		want  bool
	}{
		{QAEntry{Question: "Is it vegan?", Answer: "Yes"}, true},
		{QAEntry{Question: "Is it vegan?", Answer: "   "}, true},
		{QAEntry{Question: "", Answer: ""}, true},
		{QAEntry{Question: "Is it vegan?", MissingField: true}, false},
	}
	for _, tt := range tests {
		if got := tt.entry.Present(); got != tt.want {
			t.Errorf("Present(%+v) = %v, want %v", tt.entry, got, tt.want)
		}
	}
}

func TestDocumentID_Stable(t *testing.T) {
	a := DocumentID("data/label.pdf")
	b := DocumentID("data/label.pdf")
	c := DocumentID("data/other.pdf")

	if a != b {
		t.Errorf("same path should give same ID: %s != %s", a, b)
	}
	if a == c {
		t.Error("different paths should give different IDs")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %d chars", len(a))
	}
}
