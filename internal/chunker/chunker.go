package chunker

import (
	"strings"

	"github.com/askmynotes/backend/internal/domain"
)

// Chunker turns raw document bytes into ordered, provenance-tagged text
// chunks. Within each page a paragraph is a maximal run of non-blank
// lines; oversized paragraphs are re-split into bounded windows with
// overlap. Every chunk of a paragraph inherits that paragraph's line
// range, so line attribution is paragraph-granularity, not
// sub-chunk-granularity.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New returns a chunker with the given target chunk size and overlap,
// both in characters (runes).
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 8
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk extracts pages from raw, splits each page into paragraphs and
// emits chunks stamped with file, page, subject and line provenance.
// The int result is the number of pages that carried text. Returns
// ErrEmptyDocument / ErrUnsupportedFormat on bad input.
func (c *Chunker) Chunk(raw []byte, fileName, subjectID string) ([]domain.Chunk, int, error) {
	pages, err := ExtractPages(raw, fileName)
	if err != nil {
		return nil, 0, err
	}

	var chunks []domain.Chunk
	for _, page := range pages {
		for _, para := range splitParagraphs(page.Text) {
			for _, piece := range c.split(para.text) {
				chunks = append(chunks, domain.Chunk{
					Text:       piece,
					SubjectID:  subjectID,
					FileName:   fileName,
					PageNumber: page.Number,
					LineStart:  para.lineStart,
					LineEnd:    para.lineEnd,
				})
			}
		}
	}
	if len(chunks) == 0 {
		return nil, 0, ErrEmptyDocument
	}
	return chunks, len(pages), nil
}

// paragraph is a maximal run of non-blank lines within one page, with
// 1-based inclusive line bounds.
type paragraph struct {
	text      string
	lineStart int
	lineEnd   int
}

func splitParagraphs(pageText string) []paragraph {
	lines := strings.Split(pageText, "\n")

	var paras []paragraph
	var run []string
	start := 0
	flush := func(end int) {
		if len(run) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(run, "\n"))
		if text != "" {
			paras = append(paras, paragraph{text: text, lineStart: start, lineEnd: end})
		}
		run = nil
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			// A blank line terminates the paragraph and belongs to none.
			flush(i) // previous line, 1-based
			continue
		}
		if len(run) == 0 {
			start = i + 1
		}
		run = append(run, line)
	}
	flush(len(lines))
	return paras
}

// split applies the bounded-size window with overlap to a single
// paragraph, emitting one piece when it fits.
func (c *Chunker) split(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}

	step := c.chunkSize - c.overlap
	var pieces []string
	for startIdx := 0; startIdx < len(runes); startIdx += step {
		end := startIdx + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[startIdx:end]))
		if piece != "" {
			pieces = append(pieces, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return pieces
}
