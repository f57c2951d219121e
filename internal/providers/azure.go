package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Azure implements the Completer interface for Azure OpenAI deployments.
// The model setting names the deployment.
type Azure struct {
	chat *chatClient
}

// NewAzure creates a new Azure OpenAI provider.
func NewAzure(s Settings) (*Azure, error) {
	var missing []string
	if s.Endpoint == "" {
		missing = append(missing, "endpoint (AZUREAI_ENDPOINT)")
	}
	if s.APIKey == "" {
		missing = append(missing, "API key (AZUREAI_KEY)")
	}
	if s.APIVersion == "" {
		missing = append(missing, "API version (AZUREAI_API_VERSION)")
	}
	if len(missing) > 0 {
		return nil, errors.New("azure: missing " + strings.Join(missing, ", "))
	}

	h := http.Header{}
	h.Set("api-key", s.APIKey)
	return &Azure{chat: &chatClient{
		url:       azureURL(s.Endpoint, s.Model, s.APIVersion),
		model:     s.Model,
		header:    h,
		client:    httpClient(s.Timeout),
		omitModel: true,
	}}, nil
}

func (a *Azure) Name() string { return "azure" }

func (a *Azure) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return a.chat.complete(ctx, req)
}

func azureURL(endpoint, deployment, version string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(endpoint, "/"),
		url.PathEscape(deployment),
		url.QueryEscape(version),
	)
}
