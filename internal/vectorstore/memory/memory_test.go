package memory

import (
	"context"
	"testing"

	"github.com/askmynotes/backend/internal/domain"
)

func seed(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	if err := s.EnsureCollection(ctx, 3); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	err := s.Upsert(ctx, []domain.EmbeddedChunk{
		{Chunk: domain.Chunk{Text: "paris", SubjectID: "geo", FileName: "a.txt", PageNumber: 1}, Vector: []float32{1, 0, 0}},
		{Chunk: domain.Chunk{Text: "berlin", SubjectID: "geo", FileName: "b.txt", PageNumber: 1}, Vector: []float32{0.9, 0.1, 0}},
		{Chunk: domain.Chunk{Text: "calculus", SubjectID: "math", FileName: "c.txt", PageNumber: 1}, Vector: []float32{0, 0, 1}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return s
}

func TestSearchFiltersBySubject(t *testing.T) {
	s := seed(t)
	results, err := s.Search(context.Background(), []float32{1, 0, 0}, "geo", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 geo candidates, got %d", len(results))
	}
	for _, r := range results {
		if r.SubjectID != "geo" {
			t.Errorf("subject isolation violated: got %q", r.SubjectID)
		}
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not sorted by descending score: %v, %v", results[0].Score, results[1].Score)
	}
	if results[0].Text != "paris" {
		t.Errorf("expected 'paris' first, got %q", results[0].Text)
	}
}

func TestScrollFilteredAndUnfiltered(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	all, err := s.Scroll(ctx, "", 100)
	if err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 points, got %d", len(all))
	}

	math, err := s.Scroll(ctx, "math", 100)
	if err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if len(math) != 1 || math[0].Payload.Text != "calculus" {
		t.Fatalf("unexpected math scroll: %+v", math)
	}
}

func TestResetDropsEverything(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	if err := s.Reset(ctx, 3); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	points, err := s.Scroll(ctx, "", 100)
	if err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected empty store after reset, got %d points", len(points))
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	s := seed(t)
	err := s.Upsert(context.Background(), []domain.EmbeddedChunk{
		{Chunk: domain.Chunk{Text: "bad", SubjectID: "geo"}, Vector: []float32{1, 0}},
	})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
