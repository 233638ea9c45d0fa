package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/askmynotes/backend/internal/domain"
)

const (
	quizScrollLimit = 100
	quizSampleSize  = 10
	quizMCQCount    = 5
	quizShortCount  = 3
)

// MCQ is a multiple-choice quiz item.
type MCQ struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Citation      string   `json:"citation"`
}

// ShortAnswer is a short-answer quiz item.
type ShortAnswer struct {
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expected_answer"`
	Citation       string `json:"citation"`
}

// StudyResult carries generated quiz items. When the model's output is
// not parseable JSON, MCQs and ShortAnswers are empty and RawResponse
// holds the original text for diagnostics; that is not an error. Error
// is set when the subject has no notes at all.
type StudyResult struct {
	SubjectID    string        `json:"subject_id"`
	MCQs         []MCQ         `json:"mcqs"`
	ShortAnswers []ShortAnswer `json:"short_answer"`
	Error        string        `json:"error,omitempty"`
	RawResponse  string        `json:"raw_response,omitempty"`
}

// quizPayload is the JSON schema the quiz prompt instructs the model to
// emit.
type quizPayload struct {
	MCQs         []MCQ         `json:"mcqs"`
	ShortAnswers []ShortAnswer `json:"short_answer"`
}

// GenerateStudyQuestions samples stored chunks for the subject (bulk
// scroll, not similarity search) and asks the quiz model for structured
// questions. Sampling caps prompt size and varies output across calls.
func (e *Engine) GenerateStudyQuestions(ctx context.Context, subjectID string) (*StudyResult, error) {
	points, err := e.store.Scroll(ctx, subjectID, quizScrollLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes for %q: %w", subjectID, err)
	}
	if len(points) == 0 {
		return &StudyResult{
			SubjectID:    subjectID,
			MCQs:         []MCQ{},
			ShortAnswers: []ShortAnswer{},
			Error:        "No notes found for this subject.",
		}, nil
	}

	sampled := samplePoints(points, quizSampleSize)
	parts := make([]string, 0, len(sampled))
	for _, p := range sampled {
		parts = append(parts, fmt.Sprintf("[%s, Page %d]:\n%s", p.Payload.FileName, p.Payload.PageNumber, p.Payload.Text))
	}

	prompt := quizPrompt(subjectID, strings.Join(parts, "\n\n"))

	llmStart := time.Now()
	raw, err := e.llm.Complete(ctx, prompt)
	e.metrics.UpstreamDuration.WithLabelValues("llm").Observe(time.Since(llmStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("quiz generation failed: %w", err)
	}

	payload, parseErr := parseQuizPayload(raw)
	if parseErr != nil {
		e.logger.Printf("quiz JSON parse failed for subject %q: %v", subjectID, parseErr)
		return &StudyResult{
			SubjectID:    subjectID,
			MCQs:         []MCQ{},
			ShortAnswers: []ShortAnswer{},
			RawResponse:  raw,
		}, nil
	}
	if payload.MCQs == nil {
		payload.MCQs = []MCQ{}
	}
	if payload.ShortAnswers == nil {
		payload.ShortAnswers = []ShortAnswer{}
	}
	return &StudyResult{
		SubjectID:    subjectID,
		MCQs:         payload.MCQs,
		ShortAnswers: payload.ShortAnswers,
	}, nil
}

func quizPrompt(subjectID, material string) string {
	return fmt.Sprintf(
		"Based STRICTLY on the following study material for %q, generate quiz questions.\n\n"+
			"STUDY MATERIAL:\n%s\n\n"+
			"Generate exactly:\n"+
			"- %d Multiple Choice Questions (MCQs) with 4 options each and the correct answer indicated\n"+
			"- %d Short Answer Questions with brief expected answers\n\n"+
			"Return your response in this EXACT JSON format (no markdown fences):\n"+
			"{\n"+
			"  \"mcqs\": [\n"+
			"    {\n"+
			"      \"question\": \"...\",\n"+
			"      \"options\": [\"A) ...\", \"B) ...\", \"C) ...\", \"D) ...\"],\n"+
			"      \"correct_answer\": \"A\",\n"+
			"      \"explanation\": \"...\",\n"+
			"      \"citation\": \"File.pdf, Page 2\"\n"+
			"    }\n"+
			"  ],\n"+
			"  \"short_answer\": [\n"+
			"    {\n"+
			"      \"question\": \"...\",\n"+
			"      \"expected_answer\": \"...\",\n"+
			"      \"citation\": \"File.pdf, Page 3\"\n"+
			"    }\n"+
			"  ]\n"+
			"}\n\n"+
			"IMPORTANT: Only create questions from the provided material. Do NOT use external knowledge.",
		subjectID, material, quizMCQCount, quizShortCount,
	)
}

// parseQuizPayload parses model output that should be JSON, stripping a
// markdown code fence if present. The error branch forces callers to
// handle malformed output explicitly.
func parseQuizPayload(raw string) (quizPayload, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = text[3:]
		}
		if strings.HasSuffix(text, "```") {
			text = strings.TrimRight(text[:len(text)-3], " \t\n")
		}
	}

	var payload quizPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return quizPayload{}, err
	}
	return payload, nil
}

// samplePoints picks up to n points uniformly without replacement.
func samplePoints(points []domain.Point, n int) []domain.Point {
	if len(points) <= n {
		out := make([]domain.Point, len(points))
		copy(out, points)
		return out
	}
	idxs := rand.Perm(len(points))[:n]
	out := make([]domain.Point, 0, n)
	for _, i := range idxs {
		out = append(out, points[i])
	}
	return out
}
