package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestChunkTwoParagraphs(t *testing.T) {
	raw := []byte("Paris is the capital of France.\n\nBerlin is the capital of Germany.")
	c := New(512, 64)

	chunks, pages, err := c.Chunk(raw, "notes.txt", "geo")
	if err != nil {
		t.Fatalf("Chunk returned error: %v", err)
	}
	if pages != 1 {
		t.Fatalf("expected 1 page, got %d", pages)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	first := chunks[0]
	if first.Text != "Paris is the capital of France." {
		t.Errorf("unexpected first chunk text: %q", first.Text)
	}
	if first.PageNumber != 1 || first.LineStart != 1 || first.LineEnd != 1 {
		t.Errorf("unexpected first chunk provenance: page=%d lines=%d-%d",
			first.PageNumber, first.LineStart, first.LineEnd)
	}
	second := chunks[1]
	if second.LineStart != 3 || second.LineEnd != 3 {
		t.Errorf("unexpected second chunk lines: %d-%d", second.LineStart, second.LineEnd)
	}
	for _, ch := range chunks {
		if ch.SubjectID != "geo" || ch.FileName != "notes.txt" {
			t.Errorf("chunk missing stamps: %+v", ch)
		}
	}
}

func TestChunkCoversEveryNonBlankLine(t *testing.T) {
	raw := []byte("alpha\nbeta\n\ngamma\n\n\ndelta\nepsilon\nzeta\n")
	chunks, _, err := New(512, 64).Chunk(raw, "doc.txt", "s")
	if err != nil {
		t.Fatalf("Chunk returned error: %v", err)
	}

	covered := map[int]int{}
	for _, ch := range chunks {
		if ch.LineEnd < ch.LineStart {
			t.Fatalf("line_end < line_start: %+v", ch)
		}
		for l := ch.LineStart; l <= ch.LineEnd; l++ {
			covered[l]++
		}
	}
	for _, want := range []int{1, 2, 4, 7, 8, 9} {
		if covered[want] != 1 {
			t.Errorf("line %d covered %d times, want exactly once", want, covered[want])
		}
	}
	for _, blank := range []int{3, 5, 6} {
		if covered[blank] != 0 {
			t.Errorf("blank line %d should not be covered", blank)
		}
	}
}

func TestChunkOversizedParagraphSplitsWithOverlap(t *testing.T) {
	para := strings.Repeat("abcdefghij", 30) // 300 chars, one paragraph
	c := New(128, 32)

	chunks, _, err := c.Chunk([]byte(para), "big.txt", "s")
	if err != nil {
		t.Fatalf("Chunk returned error: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected >=3 chunks for a 300-char paragraph at size 128, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if len([]rune(ch.Text)) > 128 {
			t.Errorf("chunk %d exceeds target size: %d", i, len(ch.Text))
		}
		// Sub-chunks of one paragraph share the paragraph's line range.
		if ch.LineStart != 1 || ch.LineEnd != 1 {
			t.Errorf("chunk %d has lines %d-%d, want 1-1", i, ch.LineStart, ch.LineEnd)
		}
	}
	// Overlap: the tail of one chunk reappears at the head of the next.
	head := []rune(chunks[1].Text)[:16]
	if !strings.Contains(chunks[0].Text, string(head)) {
		t.Errorf("chunk 1 does not overlap chunk 0")
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(""), []byte("  \n\n \t\n")} {
		_, _, err := New(512, 64).Chunk(raw, "empty.txt", "s")
		if !errors.Is(err, ErrEmptyDocument) {
			t.Errorf("raw=%q: got %v, want ErrEmptyDocument", raw, err)
		}
	}
}

func TestChunkUnsupportedFormat(t *testing.T) {
	_, _, err := New(512, 64).Chunk([]byte("hello"), "notes.docx", "s")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}
