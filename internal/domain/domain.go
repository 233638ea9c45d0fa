package domain

import "context"

// Chunk is the atomic retrievable unit: a bounded span of extracted
// document text with provenance metadata. Line ranges are 1-based,
// inclusive, and tracked at paragraph granularity, so they are a
// best-effort approximation of the chunk's position within the page.
type Chunk struct {
	Text       string `json:"text"`
	SubjectID  string `json:"subject_id"`
	FileName   string `json:"file_name"`
	PageNumber int    `json:"page_number"`
	LineStart  int    `json:"line_start"`
	LineEnd    int    `json:"line_end"`
}

// EmbeddedChunk pairs a chunk with its embedding vector for upsert.
type EmbeddedChunk struct {
	Chunk
	Vector []float32
}

// Candidate is a chunk plus the similarity score a query produced for it.
// Transient; exists only within one retrieval call.
type Candidate struct {
	Chunk
	Score float64
}

// Point is a raw stored point returned by a bulk scroll.
type Point struct {
	ID      string
	Payload Chunk
}

// Citation is the response-facing projection of a retrieved candidate.
type Citation struct {
	FileName       string  `json:"file_name"`
	PageNumber     int     `json:"page_number"`
	LineStart      int     `json:"line_start"`
	LineEnd        int     `json:"line_end"`
	SubjectID      string  `json:"subject_id"`
	RelevanceScore float64 `json:"relevance_score"`
	ChunkText      string  `json:"chunk_text"`
}

// Turn is one conversation message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// VectorStore is the capability contract consumed by the core:
// upsert-by-id, metadata-filtered similarity search, bulk scroll and
// full-collection reset. Implementations must filter Search results to
// the given subject exactly.
type VectorStore interface {
	// EnsureCollection is an idempotent create-if-absent.
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []EmbeddedChunk) error
	// Search returns candidates sorted by descending score, filtered to
	// subjectID.
	Search(ctx context.Context, vector []float32, subjectID string, topK int) ([]Candidate, error)
	// Scroll lists stored points without similarity ranking. An empty
	// subjectID scrolls the whole collection.
	Scroll(ctx context.Context, subjectID string, limit int) ([]Point, error)
	// Reset drops and recreates the collection. Destructive.
	Reset(ctx context.Context, dimension int) error
}

// Embedder converts texts into fixed-length float vectors.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}
