package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/askmynotes/backend/internal/domain"
)

// scrollLimit bounds bulk reads for listings and quiz sampling.
const scrollLimit = 1000

// IngestResult summarizes one document ingestion.
type IngestResult struct {
	FileName       string `json:"file_name"`
	SubjectID      string `json:"subject_id"`
	PagesProcessed int    `json:"pages_processed"`
	ChunksCreated  int    `json:"chunks_created"`
}

// Ingest parses raw document bytes, chunks them, embeds each chunk and
// upserts everything into the vector index under subjectID.
//
// Batches are independent index calls: if embedding or upsert fails
// partway, earlier batches stay indexed. Re-uploading is safe (every
// ingestion assigns fresh point ids) but stale partial chunks remain
// until a collection reset.
func (e *Engine) Ingest(ctx context.Context, raw []byte, fileName, subjectID string) (*IngestResult, error) {
	chunks, pages, err := e.chunker.Chunk(raw, fileName, subjectID)
	if err != nil {
		return nil, err
	}

	batch := e.embedBatch
	if batch <= 0 {
		batch = 64
	}
	for start := 0; start < len(chunks); start += batch {
		end := start + batch
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, ch := range chunks[start:end] {
			texts = append(texts, ch.Text)
		}

		embedStart := time.Now()
		vectors, err := e.embedder.CreateEmbedding(ctx, texts)
		e.metrics.UpstreamDuration.WithLabelValues("embedding").Observe(time.Since(embedStart).Seconds())
		if err != nil {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
		}

		embedded := make([]domain.EmbeddedChunk, 0, len(texts))
		for i, ch := range chunks[start:end] {
			embedded = append(embedded, domain.EmbeddedChunk{Chunk: ch, Vector: vectors[i]})
		}
		if err := e.store.Upsert(ctx, embedded); err != nil {
			return nil, fmt.Errorf("vector upsert failed: %w", err)
		}
	}

	e.metrics.ChunksIngested.Add(float64(len(chunks)))
	e.logger.Printf("ingested %q for subject %q: %d pages, %d chunks", fileName, subjectID, pages, len(chunks))

	return &IngestResult{
		FileName:       fileName,
		SubjectID:      subjectID,
		PagesProcessed: pages,
		ChunksCreated:  len(chunks),
	}, nil
}

// GetSubjects returns the sorted unique subject ids with indexed notes.
func (e *Engine) GetSubjects(ctx context.Context) ([]string, error) {
	points, err := e.store.Scroll(ctx, "", scrollLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	seen := map[string]bool{}
	var subjects []string
	for _, p := range points {
		if s := p.Payload.SubjectID; s != "" && !seen[s] {
			seen[s] = true
			subjects = append(subjects, s)
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}

// GetFilesForSubject returns the sorted unique file names indexed under
// subjectID.
func (e *Engine) GetFilesForSubject(ctx context.Context, subjectID string) ([]string, error) {
	points, err := e.store.Scroll(ctx, subjectID, scrollLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list files for %q: %w", subjectID, err)
	}
	seen := map[string]bool{}
	var files []string
	for _, p := range points {
		if f := p.Payload.FileName; f != "" && !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files, nil
}

// ResetCollection drops and recreates the vector collection, wiping
// every subject. No confirmation step.
func (e *Engine) ResetCollection(ctx context.Context) error {
	if err := e.store.Reset(ctx, e.dimension); err != nil {
		return fmt.Errorf("collection reset failed: %w", err)
	}
	e.logger.Printf("vector collection reset")
	return nil
}
