// Package loader provides document loading adapters implementing
// ports.DocumentLoader.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// ErrUnsupportedType is returned for files no loader handles.
var ErrUnsupportedType = errors.New("unsupported file type")

// AllowedExtensions are the upload and watch extensions, lowercase and
// without the dot.
var AllowedExtensions = []string{"pdf", "txt", "md", "docx", "doc"}

// Allowed reports whether filename carries one of AllowedExtensions.
func Allowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// newDocument fills the common document fields for path.
func newDocument(path, content string) *entities.Document {
	created := time.Now()
	if info, err := os.Stat(path); err == nil {
		created = info.ModTime()
	}
	return &entities.Document{
		ID:        entities.DocumentID(path),
		Name:      filepath.Base(path),
		Path:      path,
		Content:   content,
		CreatedAt: created,
		UpdatedAt: time.Now(),
	}
}

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return newDocument(path, string(content)), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// ParserLoader loads binary documents through a ports.DocumentParser.
type ParserLoader struct {
	parser ports.DocumentParser
}

// NewParserLoader wraps parser as a loader.
func NewParserLoader(parser ports.DocumentParser) *ParserLoader {
	return &ParserLoader{parser: parser}
}

// Load reads the file and hands its bytes to the parser.
func (l *ParserLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := l.parser.Parse(ctx, data, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return newDocument(path, cleanExtractedText(text)), nil
}

// SupportedExtensions returns file extensions.
func (l *ParserLoader) SupportedExtensions() []string {
	formats := l.parser.SupportedFormats()
	exts := make([]string, len(formats))
	for i, f := range formats {
		exts[i] = "." + f
	}
	return exts
}

// MultiLoader dispatches to a loader by file extension.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
	logger  *zap.Logger
}

// NewMultiLoader creates a loader for text, markdown and docx files, plus
// every format parser supports when parser is non-nil.
func NewMultiLoader(parser ports.DocumentParser, logger *zap.Logger) *MultiLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MultiLoader{
		loaders: make(map[string]ports.DocumentLoader),
		logger:  logger.Named("loader"),
	}
	m.register(NewTextLoader())
	m.register(NewDocxLoader())
	if parser != nil {
		m.register(NewParserLoader(parser))
	}
	return m
}

func (m *MultiLoader) register(l ports.DocumentLoader) {
	for _, ext := range l.SupportedExtensions() {
		m.loaders[ext] = l
	}
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	doc, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("loaded document",
		zap.String("path", path),
		zap.Int("bytes", len(doc.Content)))
	return doc, nil
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// cleanExtractedText drops control characters that extraction tools leave
// behind, keeping newlines and tabs.
func cleanExtractedText(content string) string {
	var cleaned strings.Builder
	cleaned.Grow(len(content))
	for _, r := range content {
		if r == '\n' || r == '\t' || (r >= 32 && r != 127 && r != 0xFFFD) {
			cleaned.WriteRune(r)
		}
	}
	return strings.TrimSpace(cleaned.String())
}
