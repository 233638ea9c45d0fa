// Package engine implements the retrieval-and-grounding pipeline:
// ingestion, subject-scoped retrieval with a similarity gate, grounded
// answer composition, quiz generation and the voice pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/askmynotes/backend/config"
	"github.com/askmynotes/backend/internal/chunker"
	"github.com/askmynotes/backend/internal/convmem"
	"github.com/askmynotes/backend/internal/domain"
	"github.com/askmynotes/backend/internal/provider"
	"github.com/askmynotes/backend/internal/telemetry"
	"github.com/askmynotes/backend/internal/voice"
)

// Input-class errors. These are the caller's fault and are never
// retried; the HTTP layer maps them to 4xx.
var (
	ErrEmptyDocument      = chunker.ErrEmptyDocument
	ErrUnsupportedFormat  = chunker.ErrUnsupportedFormat
	ErrTranscriptionEmpty = errors.New("transcription produced no text")
)

// Confidence tiers summarizing average retrieved-candidate relevance.
const (
	ConfidenceLow    = "Low"
	ConfidenceMedium = "Medium"
	ConfidenceHigh   = "High"
)

// Engine is the core RAG engine; one instance is shared across the
// process lifetime.
type Engine struct {
	store    domain.VectorStore
	embedder domain.Embedder
	llm      provider.ChatProvider
	stt      voice.Transcriber
	tts      voice.Synthesizer
	sessions *convmem.Store
	metrics  *telemetry.Metrics
	logger   *log.Logger

	chunker    *chunker.Chunker
	dimension  int
	threshold  float64
	chatTopK   int
	voiceTopK  int
	embedBatch int
	subjectCap int
}

// Deps carries the injected collaborators.
type Deps struct {
	Store    domain.VectorStore
	Embedder domain.Embedder
	LLM      provider.ChatProvider
	STT      voice.Transcriber
	TTS      voice.Synthesizer
	Sessions *convmem.Store
	Metrics  *telemetry.Metrics
	Logger   *log.Logger
}

// New builds the engine from configuration and collaborators and
// ensures the vector collection exists.
func New(cfg *config.Config, deps Deps) (*Engine, error) {
	if deps.Store == nil || deps.Embedder == nil || deps.LLM == nil {
		return nil, errors.New("engine requires a vector store, an embedder and an LLM provider")
	}
	if deps.Sessions == nil {
		deps.Sessions = convmem.New(cfg.Sessions.MaxTurns, cfg.Sessions.TTL)
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.Nop()
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	}
	return &Engine{
		store:      deps.Store,
		embedder:   deps.Embedder,
		llm:        deps.LLM,
		stt:        deps.STT,
		tts:        deps.TTS,
		sessions:   deps.Sessions,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		chunker:    chunker.New(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap),
		dimension:  cfg.OpenAI.EmbeddingDimension,
		threshold:  cfg.Retrieval.SimilarityThreshold,
		chatTopK:   cfg.Retrieval.ChatTopK,
		voiceTopK:  cfg.Retrieval.VoiceTopK,
		embedBatch: cfg.Retrieval.EmbedBatchSize,
		subjectCap: cfg.Server.SubjectCap,
	}, nil
}

// Sessions exposes the conversation store for the transport layer.
func (e *Engine) Sessions() *convmem.Store { return e.sessions }

// SubjectCap returns the configured maximum number of subjects.
func (e *Engine) SubjectCap() int { return e.subjectCap }

// notFoundAnswer is the exact sentinel the grounding prompt instructs
// the model to emit when the context is insufficient.
func notFoundAnswer(subjectID string) string {
	return fmt.Sprintf("Not found in your notes for %s", subjectID)
}

// gate discards candidates scoring below threshold. The survivors keep
// their descending-score order.
func gate(candidates []domain.Candidate, threshold float64) []domain.Candidate {
	valid := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= threshold {
			valid = append(valid, c)
		}
	}
	return valid
}

// confidenceTier maps an average similarity score onto the three-tier
// scheme. Total and exclusive over [0,1].
func confidenceTier(avgScore float64) string {
	switch {
	case avgScore >= 0.75:
		return ConfidenceHigh
	case avgScore >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func averageScore(candidates []domain.Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candidates {
		sum += c.Score
	}
	return sum / float64(len(candidates))
}

// embedQuery embeds a single text.
func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedder.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}
