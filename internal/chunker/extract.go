package chunker

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrEmptyDocument means no extractable text exists, e.g. a
	// scanned-image-only PDF or a zero-byte text file.
	ErrEmptyDocument = errors.New("document contains no extractable text")
	// ErrUnsupportedFormat means the file extension is not .pdf or .txt.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Page is the per-page plain text of a document. Numbering is 1-based;
// plain-text files are a single page 1.
type Page struct {
	Number int
	Text   string
}

// ExtractPages pulls per-page plain text out of raw document bytes,
// dispatching on the file extension. Pages with no text are skipped.
// No OCR: only plain-text and page-extractable-text documents work.
func ExtractPages(raw []byte, fileName string) ([]Page, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return extractPDF(raw)
	case ".txt":
		return extractTXT(raw)
	default:
		return nil, fmt.Errorf("%w: %q (only .pdf and .txt are accepted)", ErrUnsupportedFormat, fileName)
	}
}

func extractTXT(raw []byte) ([]Page, error) {
	text := string(raw)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	return []Page{{Number: 1, Text: text}}, nil
}

func extractPDF(raw []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []Page
	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, Page{Number: i, Text: text})
		}
	}
	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}
	return pages, nil
}

// pageText reconstructs page text row by row so that paragraph detection
// downstream sees one physical text row per line.
func pageText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, row := range rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, word := range row.Content {
			sb.WriteString(word.S)
		}
	}
	return sb.String(), nil
}
