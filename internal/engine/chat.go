package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/askmynotes/backend/internal/domain"
	"github.com/askmynotes/backend/internal/provider"
)

// historyWindow is how many trailing history messages enter the prompt.
const historyWindow = 6

// snippetLength bounds the citation text snippet.
const snippetLength = 200

// ChatParams describes one subject-scoped question.
type ChatParams struct {
	Query     string
	SubjectID string
	// SessionID is optional; when it names a live session its stored
	// history is used and the exchange is appended afterwards.
	SessionID string
	// History overrides the session history when supplied directly.
	History []domain.Turn
	// TopK overrides the configured chat top-k when positive.
	TopK int
}

// ChatResult is the grounded answer with citations and a confidence
// tier. A "not found" answer is a valid result, not an error.
type ChatResult struct {
	Answer     string            `json:"answer"`
	Citations  []domain.Citation `json:"citations"`
	Confidence string            `json:"confidence"`
}

// Chat retrieves subject-scoped chunks, applies the similarity gate and
// asks the grounding model. Returns the sentinel "not found" result
// when nothing relevant is retained.
func (e *Engine) Chat(ctx context.Context, p ChatParams) (*ChatResult, error) {
	history := p.History
	if len(history) == 0 && p.SessionID != "" {
		history = e.sessions.GetHistory(p.SessionID)
	}

	result, err := e.answer(ctx, p.Query, p.SubjectID, history, p.TopK)
	if err != nil {
		return nil, err
	}
	if p.SessionID != "" {
		e.sessions.AddTurn(p.SessionID, p.Query, result.Answer)
	}
	return result, nil
}

func (e *Engine) answer(ctx context.Context, query, subjectID string, history []domain.Turn, topK int) (*ChatResult, error) {
	if topK <= 0 {
		topK = e.chatTopK
	}

	vector, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	candidates, err := e.store.Search(ctx, vector, subjectID, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	for i, c := range candidates {
		e.logger.Printf("chunk %d | score=%.4f | file=%s | page=%d", i, c.Score, c.FileName, c.PageNumber)
	}

	valid := gate(candidates, e.threshold)
	if len(valid) == 0 {
		e.metrics.RetrievalOutcomes.WithLabelValues("not_found").Inc()
		return e.notFoundResult(subjectID), nil
	}
	e.metrics.RetrievalOutcomes.WithLabelValues("grounded").Inc()

	contextBlock, citations := buildContext(valid, subjectID)
	messages := composeMessages(query, subjectID, contextBlock, history)

	llmStart := time.Now()
	answer, err := e.llm.Chat(ctx, messages)
	e.metrics.UpstreamDuration.WithLabelValues("llm").Observe(time.Since(llmStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	// The model may paraphrase insufficiency instead of answering; if
	// the sentinel appears anywhere in the output, downgrade to the
	// canonical "not found" shape.
	sentinel := notFoundAnswer(subjectID)
	if strings.Contains(strings.ToLower(answer), strings.ToLower(sentinel)) {
		return e.notFoundResult(subjectID), nil
	}

	return &ChatResult{
		Answer:     answer,
		Citations:  citations,
		Confidence: confidenceTier(averageScore(valid)),
	}, nil
}

func (e *Engine) notFoundResult(subjectID string) *ChatResult {
	return &ChatResult{
		Answer:     notFoundAnswer(subjectID),
		Citations:  []domain.Citation{},
		Confidence: ConfidenceLow,
	}
}

// buildContext renders the retained candidates as labeled source blocks
// and their response-facing citations.
func buildContext(valid []domain.Candidate, subjectID string) (string, []domain.Citation) {
	parts := make([]string, 0, len(valid))
	citations := make([]domain.Citation, 0, len(valid))
	for _, c := range valid {
		label := fmt.Sprintf("[%s, Page %d, Lines %d-%d]", c.FileName, c.PageNumber, c.LineStart, c.LineEnd)
		parts = append(parts, fmt.Sprintf("--- Source: %s ---\n%s", label, c.Text))
		citations = append(citations, domain.Citation{
			FileName:       c.FileName,
			PageNumber:     c.PageNumber,
			LineStart:      c.LineStart,
			LineEnd:        c.LineEnd,
			SubjectID:      subjectID,
			RelevanceScore: roundScore(c.Score),
			ChunkText:      snippet(c.Text),
		})
	}
	return strings.Join(parts, "\n\n"), citations
}

func composeMessages(query, subjectID, contextBlock string, history []domain.Turn) []provider.Message {
	systemPrompt := fmt.Sprintf(
		"You are a Study Copilot for the subject %q. You answer questions STRICTLY based on "+
			"the provided context from the user's uploaded notes.\n\n"+
			"RULES:\n"+
			"1. ONLY use information from the CONTEXT below. Do NOT use outside knowledge.\n"+
			"2. If the context does not contain enough information to answer, respond EXACTLY with: %q\n"+
			"3. Include inline citations in the format [File Name, Page X].\n"+
			"4. Be precise, clear, and helpful.\n"+
			"5. If the question is ambiguous, interpret it within the subject matter.\n\n"+
			"CONTEXT FROM NOTES:\n%s",
		subjectID, notFoundAnswer(subjectID), contextBlock,
	)

	messages := []provider.Message{{Role: "system", Content: systemPrompt}}

	if len(history) > 0 {
		window := history
		if len(window) > historyWindow {
			window = window[len(window)-historyWindow:]
		}
		var sb strings.Builder
		sb.WriteString("Previous conversation:")
		for _, turn := range window {
			sb.WriteString("\n")
			sb.WriteString(strings.ToUpper(turn.Role))
			sb.WriteString(": ")
			sb.WriteString(turn.Content)
		}
		messages = append(messages, provider.Message{Role: "user", Content: sb.String()})
	}

	return append(messages, provider.Message{Role: "user", Content: query})
}

// snippet returns the first snippetLength characters of the chunk with
// newlines flattened, ellipsized when truncated.
func snippet(text string) string {
	flat := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(flat)
	if len(runes) <= snippetLength {
		return flat
	}
	return strings.TrimSpace(string(runes[:snippetLength])) + "…"
}

func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
