package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI implements the Completer interface for OpenAI's API and any
// compatible endpoint.
type OpenAI struct {
	chat *chatClient
}

// NewOpenAI creates a new OpenAI provider. An empty endpoint selects the
// public API.
func NewOpenAI(s Settings) (*OpenAI, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY is not set")
	}
	url := defaultOpenAIURL
	if s.Endpoint != "" {
		url = chatCompletionsURL(s.Endpoint)
	}
	return &OpenAI{chat: &chatClient{
		url:    url,
		model:  s.Model,
		header: bearer(s.APIKey),
		client: httpClient(s.Timeout),
	}}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return o.chat.complete(ctx, req)
}

func bearer(key string) http.Header {
	h := http.Header{}
	if key != "" {
		h.Set("Authorization", "Bearer "+key)
	}
	return h
}

// chatCompletionsURL normalises a base URL, with or without /v1 or the
// full path, to the chat completions endpoint.
func chatCompletionsURL(base string) string {
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	base = strings.TrimSuffix(base, "/v1")
	return base + "/v1/chat/completions"
}
