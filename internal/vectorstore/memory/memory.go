package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/askmynotes/backend/internal/domain"
)

// Store is an in-memory vector store using brute-force cosine
// similarity. It mirrors the Qdrant adapter's contract and exists for
// tests and local runs without a Qdrant instance.
type Store struct {
	mu        sync.RWMutex
	dimension int
	ids       []string
	vectors   [][]float32
	chunks    []domain.Chunk
}

func New() *Store { return &Store{} }

func (s *Store) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = dimension
	}
	return nil
}

func (s *Store) Upsert(_ context.Context, chunks []domain.EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chunks {
		if s.dimension != 0 && len(ch.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(ch.Vector), s.dimension)
		}
		s.ids = append(s.ids, uuid.NewString())
		s.vectors = append(s.vectors, ch.Vector)
		s.chunks = append(s.chunks, ch.Chunk)
	}
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, subjectID string, topK int) ([]domain.Candidate, error) {
	if topK <= 0 {
		topK = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.Candidate
	for i, ch := range s.chunks {
		if ch.SubjectID != subjectID {
			continue
		}
		results = append(results, domain.Candidate{Chunk: ch, Score: cosine(s.vectors[i], vector)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) Scroll(_ context.Context, subjectID string, limit int) ([]domain.Point, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var points []domain.Point
	for i, ch := range s.chunks {
		if subjectID != "" && ch.SubjectID != subjectID {
			continue
		}
		points = append(points, domain.Point{ID: s.ids[i], Payload: ch})
		if len(points) == limit {
			break
		}
	}
	return points, nil
}

func (s *Store) Reset(_ context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.ids = nil
	s.vectors = nil
	s.chunks = nil
	return nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
