package providers

import (
	"context"
	"fmt"
)

const defaultGitHubModelsURL = "https://models.inference.ai.azure.com/chat/completions"

// GitHub implements the Completer interface for GitHub Models, an
// OpenAI-compatible endpoint authenticated with a GitHub token.
type GitHub struct {
	chat *chatClient
}

// NewGitHub creates a new GitHub Models provider.
func NewGitHub(s Settings) (*GitHub, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("github: GITHUB_TOKEN is not set")
	}
	url := defaultGitHubModelsURL
	if s.Endpoint != "" {
		url = s.Endpoint
	}
	return &GitHub{chat: &chatClient{
		url:    url,
		model:  s.Model,
		header: bearer(s.APIKey),
		client: httpClient(s.Timeout),
	}}, nil
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return g.chat.complete(ctx, req)
}
