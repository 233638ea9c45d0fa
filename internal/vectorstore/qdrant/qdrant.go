package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/askmynotes/backend/internal/domain"
)

// Store is a minimal REST client to Qdrant. It assumes cosine distance
// and creates the collection if missing.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.url+"/collections", nil, &resp); err != nil {
		return err
	}
	for _, c := range resp.Result.Collections {
		if c.Name == s.collection {
			return nil
		}
	}
	return s.createCollection(ctx, dimension)
}

func (s *Store) createCollection(ctx context.Context, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil)
}

func (s *Store) Upsert(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		points[i] = map[string]any{
			// Fresh ids per ingestion; duplicate ids would overwrite.
			"id":      uuid.NewString(),
			"vector":  ch.Vector,
			"payload": payloadFromChunk(ch.Chunk),
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil)
}

func (s *Store) Search(ctx context.Context, vector []float32, subjectID string, topK int) ([]domain.Candidate, error) {
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"filter":       subjectFilter(subjectID),
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), body, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Candidate, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, domain.Candidate{Chunk: chunkFromPayload(r.Payload), Score: r.Score})
	}
	return out, nil
}

func (s *Store) Scroll(ctx context.Context, subjectID string, limit int) ([]domain.Point, error) {
	if limit <= 0 {
		limit = 100
	}
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if subjectID != "" {
		body["filter"] = subjectFilter(subjectID)
	}
	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/scroll", s.url, s.collection), body, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Point, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		out = append(out, domain.Point{
			ID:      fmt.Sprint(p.ID),
			Payload: chunkFromPayload(p.Payload),
		})
	}
	return out, nil
}

// Reset drops and recreates the collection. Destroys every subject.
func (s *Store) Reset(ctx context.Context, dimension int) error {
	if err := s.do(ctx, http.MethodDelete,
		fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil, nil); err != nil {
		return err
	}
	return s.createCollection(ctx, dimension)
}

func subjectFilter(subjectID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "subject_id", "match": map[string]any{"value": subjectID}},
		},
	}
}

func payloadFromChunk(ch domain.Chunk) map[string]any {
	return map[string]any{
		"text":        ch.Text,
		"subject_id":  ch.SubjectID,
		"file_name":   ch.FileName,
		"page_number": ch.PageNumber,
		"line_start":  ch.LineStart,
		"line_end":    ch.LineEnd,
	}
}

func chunkFromPayload(payload map[string]any) domain.Chunk {
	ch := domain.Chunk{}
	if v, ok := payload["text"].(string); ok {
		ch.Text = v
	}
	if v, ok := payload["subject_id"].(string); ok {
		ch.SubjectID = v
	}
	if v, ok := payload["file_name"].(string); ok {
		ch.FileName = v
	}
	if v, ok := payload["page_number"].(float64); ok {
		ch.PageNumber = int(v)
	}
	if v, ok := payload["line_start"].(float64); ok {
		ch.LineStart = int(v)
	}
	if v, ok := payload["line_end"].(float64); ok {
		ch.LineEnd = int(v)
	}
	return ch
}

func (s *Store) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, string(b))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
