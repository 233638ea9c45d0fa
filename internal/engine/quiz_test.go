package engine

import (
	"context"
	"strings"
	"testing"
)

const quizJSON = `{
  "mcqs": [
    {
      "question": "What is the capital of France?",
      "options": ["A) Paris", "B) Lyon", "C) Nice", "D) Marseille"],
      "correct_answer": "A",
      "explanation": "The notes state it directly.",
      "citation": "notes.txt, Page 1"
    }
  ],
  "short_answer": [
    {
      "question": "Name the capital of Germany.",
      "expected_answer": "Berlin",
      "citation": "notes.txt, Page 1"
    }
  ]
}`

func TestParseQuizPayloadPlain(t *testing.T) {
	payload, err := parseQuizPayload(quizJSON)
	if err != nil {
		t.Fatalf("parseQuizPayload: %v", err)
	}
	if len(payload.MCQs) != 1 || len(payload.ShortAnswers) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.MCQs[0].CorrectAnswer != "A" || len(payload.MCQs[0].Options) != 4 {
		t.Errorf("unexpected mcq: %+v", payload.MCQs[0])
	}
	if payload.ShortAnswers[0].ExpectedAnswer != "Berlin" {
		t.Errorf("unexpected short answer: %+v", payload.ShortAnswers[0])
	}
}

func TestParseQuizPayloadStripsFences(t *testing.T) {
	for _, fenced := range []string{
		"```json\n" + quizJSON + "\n```",
		"```\n" + quizJSON + "\n```",
	} {
		payload, err := parseQuizPayload(fenced)
		if err != nil {
			t.Fatalf("parseQuizPayload(fenced): %v", err)
		}
		plain, _ := parseQuizPayload(quizJSON)
		if len(payload.MCQs) != len(plain.MCQs) || payload.MCQs[0].Question != plain.MCQs[0].Question {
			t.Errorf("fenced parse differs from plain parse: %+v", payload)
		}
	}
}

func TestParseQuizPayloadGarbage(t *testing.T) {
	_, err := parseQuizPayload("Sure! Here are your questions: 1) ...")
	if err == nil {
		t.Fatal("expected parse error for non-JSON output")
	}
}

func TestGenerateStudyQuestions(t *testing.T) {
	llm := &scriptedLLM{completeReply: "```json\n" + quizJSON + "\n```"}
	eng, _ := newTestEngine(t, llm)
	ctx := context.Background()

	if _, err := eng.Ingest(ctx, []byte("Paris is the capital of France."), "notes.txt", "geo"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	res, err := eng.GenerateStudyQuestions(ctx, "geo")
	if err != nil {
		t.Fatalf("GenerateStudyQuestions: %v", err)
	}
	if res.SubjectID != "geo" || res.Error != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.MCQs) != 1 || len(res.ShortAnswers) != 1 {
		t.Fatalf("unexpected items: %+v", res)
	}
	if res.RawResponse != "" {
		t.Errorf("raw_response should be empty on successful parse")
	}
	if !strings.Contains(llm.gotPrompt, "[notes.txt, Page 1]:") {
		t.Errorf("prompt missing sampled material label:\n%s", llm.gotPrompt)
	}
	if !strings.Contains(llm.gotPrompt, `"geo"`) {
		t.Errorf("prompt missing subject framing:\n%s", llm.gotPrompt)
	}
}

func TestGenerateStudyQuestionsNoNotes(t *testing.T) {
	llm := &scriptedLLM{completeReply: "unused"}
	eng, _ := newTestEngine(t, llm)

	res, err := eng.GenerateStudyQuestions(context.Background(), "empty-subject")
	if err != nil {
		t.Fatalf("GenerateStudyQuestions: %v", err)
	}
	if res.Error == "" {
		t.Fatal("expected error field for a subject with no notes")
	}
	if len(res.MCQs) != 0 || len(res.ShortAnswers) != 0 {
		t.Errorf("expected empty item lists: %+v", res)
	}
	if llm.gotPrompt != "" {
		t.Error("LLM should not be invoked for an empty subject")
	}
}

func TestGenerateStudyQuestionsMalformedOutput(t *testing.T) {
	llm := &scriptedLLM{completeReply: "I cannot produce JSON today."}
	eng, _ := newTestEngine(t, llm)
	ctx := context.Background()

	if _, err := eng.Ingest(ctx, []byte("Paris is the capital of France."), "notes.txt", "geo"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	res, err := eng.GenerateStudyQuestions(ctx, "geo")
	if err != nil {
		t.Fatalf("malformed output must not raise: %v", err)
	}
	if len(res.MCQs) != 0 || len(res.ShortAnswers) != 0 {
		t.Errorf("expected empty item lists: %+v", res)
	}
	if res.RawResponse != llm.completeReply {
		t.Errorf("raw_response = %q, want original model text", res.RawResponse)
	}
}
