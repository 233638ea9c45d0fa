package provider

import "context"

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatProvider produces language-model completions. Chat uses the
// grounding model (low temperature); Complete uses the quiz model
// (higher temperature) against a single prompt.
type ChatProvider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Complete(ctx context.Context, prompt string) (string, error)
}
