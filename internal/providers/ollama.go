package providers

import (
	"context"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama implements the Completer interface for Ollama and LM Studio
// (OpenAI-compatible API).
type Ollama struct {
	chat *chatClient
}

// NewOllama creates a new Ollama provider. No API key is required by
// default; local models get a longer timeout.
func NewOllama(s Settings) (*Ollama, error) {
	base := s.Endpoint
	if base == "" {
		base = defaultOllamaURL
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Ollama{chat: &chatClient{
		url:    chatCompletionsURL(base),
		model:  s.Model,
		header: bearer(s.APIKey),
		client: httpClient(timeout),
	}}, nil
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return o.chat.complete(ctx, req)
}
