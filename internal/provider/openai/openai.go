package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/askmynotes/backend/internal/provider"
)

const (
	chatCompletionsURL = "https://api.openai.com/v1/chat/completions"
	embeddingsURL      = "https://api.openai.com/v1/embeddings"
)

// Client talks to the OpenAI API for chat completions and embeddings.
type Client struct {
	apiKey          string
	chatModel       string
	quizModel       string
	embeddingModel  string
	chatTemperature float64
	quizTemperature float64
	httpClient      *http.Client
}

type Config struct {
	APIKey          string
	ChatModel       string
	QuizModel       string
	EmbeddingModel  string
	ChatTemperature float64
	QuizTemperature float64
	Timeout         time.Duration
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:          cfg.APIKey,
		chatModel:       cfg.ChatModel,
		quizModel:       cfg.QuizModel,
		embeddingModel:  cfg.EmbeddingModel,
		chatTemperature: cfg.ChatTemperature,
		quizTemperature: cfg.QuizTemperature,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// request represents a request to the chat completions API.
type request struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	Temperature float64            `json:"temperature"`
}

// response represents a response from the chat completions API.
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat runs the composed messages against the grounding model.
func (c *Client) Chat(ctx context.Context, messages []provider.Message) (string, error) {
	return c.complete(ctx, request{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: c.chatTemperature,
	})
}

// Complete runs a single-prompt completion against the quiz model.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, request{
		Model:       c.quizModel,
		Messages:    []provider.Message{{Role: "user", Content: prompt}},
		Temperature: c.quizTemperature,
	})
}

func (c *Client) complete(ctx context.Context, reqBody request) (string, error) {
	var resp response
	if err := c.postJSON(ctx, chatCompletionsURL, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// CreateEmbedding generates embeddings for the given texts.
func (c *Client) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	reqBody := map[string]interface{}{
		"model": c.embeddingModel,
		"input": texts,
	}
	var resp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, embeddingsURL, reqBody, &resp); err != nil {
		return nil, err
	}
	vecs := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("openai API returned status %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
