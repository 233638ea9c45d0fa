package server

import (
	"github.com/askmynotes/backend/internal/domain"
	"github.com/askmynotes/backend/internal/engine"
)

// ChatRequest asks a question scoped to a subject. History overrides
// the session history when both are present.
type ChatRequest struct {
	Query     string        `json:"query"`
	SubjectID string        `json:"subject_id"`
	SessionID string        `json:"session_id,omitempty"`
	History   []domain.Turn `json:"history,omitempty"`
}

// ChatResponse carries the grounded answer.
type ChatResponse struct {
	Answer     string            `json:"answer"`
	Citations  []domain.Citation `json:"citations"`
	Confidence string            `json:"confidence"`
}

// StudyModeRequest names the subject to quiz on.
type StudyModeRequest struct {
	SubjectID string `json:"subject_id"`
}

// StudyModeResponse mirrors engine.StudyResult on the wire.
type StudyModeResponse struct {
	SubjectID   string               `json:"subject_id"`
	MCQs        []engine.MCQ         `json:"mcqs"`
	ShortAnswer []engine.ShortAnswer `json:"short_answer"`
	Error       string               `json:"error,omitempty"`
	RawResponse string               `json:"raw_response,omitempty"`
}

// UploadResponse summarizes a successful ingestion.
type UploadResponse struct {
	Message        string `json:"message"`
	FileName       string `json:"file_name"`
	SubjectID      string `json:"subject_id"`
	PagesProcessed int    `json:"pages_processed"`
	ChunksCreated  int    `json:"chunks_created"`
}

// CreateSessionRequest binds a new session to a subject.
type CreateSessionRequest struct {
	SubjectID string `json:"subject_id"`
}

// CreateSessionResponse returns the new session token.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}
