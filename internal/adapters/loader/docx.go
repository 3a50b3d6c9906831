package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

const docxBodyPart = "word/document.xml"

// DocxLoader extracts paragraph text from Office Open XML documents.
type DocxLoader struct{}

// NewDocxLoader creates a .docx loader.
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// Load reads the document body part and returns its text, one line per paragraph.
func (l *DocxLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBodyPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", docxBodyPart, err)
		}
		defer rc.Close()

		text, err := docxText(rc)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", docxBodyPart, err)
		}
		return newDocument(path, text), nil
	}
	return nil, errors.New("docx has no " + docxBodyPart)
}

// SupportedExtensions returns file extensions.
func (l *DocxLoader) SupportedExtensions() []string {
	return []string{".docx"}
}

// docxText walks WordprocessingML tokens: text runs (w:t), tabs, breaks and
// paragraph ends.
func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
