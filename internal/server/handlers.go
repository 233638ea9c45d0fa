package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/askmynotes/backend/internal/domain"
	"github.com/askmynotes/backend/internal/engine"
)

// upload parses and ingests a PDF or plain-text file.
func (s *Server) upload(c echo.Context) error {
	subjectID := strings.TrimSpace(c.FormValue("subject_id"))
	if subjectID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject_id is required")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file provided")
	}
	if fileHeader.Filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no file name provided")
	}

	ctx := c.Request().Context()

	// Subject cap: uploads into new subjects are rejected once the cap
	// is reached; existing subjects always accept more files.
	subjects, err := s.engine.GetSubjects(ctx)
	if err != nil {
		return httpError(err)
	}
	if limit := s.engine.SubjectCap(); limit > 0 && len(subjects) >= limit && !contains(subjects, subjectID) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(
			"Maximum %d subjects allowed. Current subjects: %s. Delete /reset to start over or upload into an existing subject.",
			limit, strings.Join(subjects, ", ")))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read upload")
	}
	defer src.Close()
	raw, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read upload")
	}
	if len(raw) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "uploaded file is empty")
	}

	result, err := s.engine.Ingest(ctx, raw, fileHeader.Filename, subjectID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, UploadResponse{
		Message:        "File uploaded and indexed successfully.",
		FileName:       result.FileName,
		SubjectID:      result.SubjectID,
		PagesProcessed: result.PagesProcessed,
		ChunksCreated:  result.ChunksCreated,
	})
}

// chat answers a question scoped to a subject.
func (s *Server) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.SubjectID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query and subject_id are required")
	}

	result, err := s.engine.Chat(c.Request().Context(), engine.ChatParams{
		Query:     req.Query,
		SubjectID: strings.TrimSpace(req.SubjectID),
		SessionID: req.SessionID,
		History:   req.History,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ChatResponse{
		Answer:     result.Answer,
		Citations:  result.Citations,
		Confidence: result.Confidence,
	})
}

// studyMode generates quiz questions from a subject's notes.
func (s *Server) studyMode(c echo.Context) error {
	var req StudyModeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject_id is required")
	}

	result, err := s.engine.GenerateStudyQuestions(c.Request().Context(), strings.TrimSpace(req.SubjectID))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, StudyModeResponse{
		SubjectID:   result.SubjectID,
		MCQs:        result.MCQs,
		ShortAnswer: result.ShortAnswers,
		Error:       result.Error,
		RawResponse: result.RawResponse,
	})
}

// voiceChat runs the STT -> RAG -> TTS pipeline. The body is the MP3
// audio; transcript, answer, citations and confidence ride in
// URL-encoded X- headers.
func (s *Server) voiceChat(c echo.Context) error {
	subjectID := strings.TrimSpace(c.FormValue("subject_id"))
	if subjectID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject_id is required")
	}
	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no audio file provided")
	}

	var history []domain.Turn
	if raw := c.FormValue("history"); raw != "" {
		// Malformed history is ignored rather than rejected.
		_ = json.Unmarshal([]byte(raw), &history)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read audio")
	}
	defer src.Close()
	audio, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read audio")
	}
	if len(audio) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "audio file is empty")
	}

	result, err := s.engine.VoiceChat(c.Request().Context(), engine.VoiceParams{
		Audio:     audio,
		Filename:  fileHeader.Filename,
		SubjectID: subjectID,
		SessionID: c.FormValue("session_id"),
		History:   history,
	})
	if err != nil {
		return httpError(err)
	}

	citationsJSON, _ := json.Marshal(result.Citations)
	h := c.Response().Header()
	h.Set("X-Transcript", url.QueryEscape(result.Transcript))
	h.Set("X-Answer", url.QueryEscape(result.Answer))
	h.Set("X-Citations", url.QueryEscape(string(citationsJSON)))
	h.Set("X-Confidence", result.Confidence)
	h.Set("Access-Control-Expose-Headers", "X-Transcript, X-Answer, X-Citations, X-Confidence")

	return c.Blob(http.StatusOK, "audio/mpeg", result.Audio)
}

// createSession opens a conversation session bound to a subject.
func (s *Server) createSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject_id is required")
	}
	id := s.engine.Sessions().CreateSession(strings.TrimSpace(req.SubjectID))
	return c.JSON(http.StatusCreated, CreateSessionResponse{SessionID: id})
}

func (s *Server) deleteSession(c echo.Context) error {
	s.engine.Sessions().DeleteSession(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

// listFiles returns unique file names indexed under a subject.
func (s *Server) listFiles(c echo.Context) error {
	subjectID := strings.TrimSpace(c.Param("subject_id"))
	files, err := s.engine.GetFilesForSubject(c.Request().Context(), subjectID)
	if err != nil {
		return httpError(err)
	}
	if files == nil {
		files = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"subject_id": subjectID,
		"files":      files,
	})
}

// listSubjects returns all subjects with indexed notes.
func (s *Server) listSubjects(c echo.Context) error {
	subjects, err := s.engine.GetSubjects(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if subjects == nil {
		subjects = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"subjects": subjects})
}

// reset wipes the vector collection. Destructive, no confirmation.
func (s *Server) reset(c echo.Context) error {
	if err := s.engine.ResetCollection(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Collection reset successfully. Please re-upload your notes.",
	})
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
