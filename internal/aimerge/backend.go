package aimerge

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrBackendUnavailable indicates no completion backend is attached
	// or reachable.
	ErrBackendUnavailable = errors.New("completion backend unavailable")
	// ErrBackendTimeout indicates a completion attempt exceeded its
	// time budget.
	ErrBackendTimeout = errors.New("completion backend timed out")
)

// Backend is the completion collaborator consumed by the merger. Both
// errors above, and any other backend failure, stay inside this package:
// the merger converts them into a keep-local fallback.
type Backend interface {
	// Available reports whether the backend can currently serve requests.
	Available() bool
	// Complete sends prompt to the backend and returns the raw response
	// text. The context carries the attempt's deadline.
	Complete(ctx context.Context, prompt string) (string, error)
}

const mergeSystemPrompt = "You merge conflicting versions of a stored value. " +
	"Respond with the merged value only: no explanation, no code fences."

// OpenAIBackend is a Backend over the OpenAI chat completion API.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates an OpenAI-backed completion backend. An empty
// API key yields a backend that reports itself unavailable, which lets
// callers wire the merger unconditionally and degrade at runtime.
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = openai.GPT4oMini
	}
	b := &OpenAIBackend{model: model}
	if apiKey != "" {
		b.client = openai.NewClient(apiKey)
	}
	return b
}

// Available reports whether a client is configured.
func (b *OpenAIBackend) Available() bool {
	return b != nil && b.client != nil
}

// Complete sends the prompt as a single-turn chat completion.
func (b *OpenAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	if !b.Available() {
		return "", ErrBackendUnavailable
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: mergeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrBackendTimeout
		}
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
