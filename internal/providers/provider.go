package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains the data sent to a completion service.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature *float64
	TopP        *float64
}

// CompletionResponse contains the raw response from a completion service.
type CompletionResponse struct {
	Content    string
	TokensUsed int
}

// Completer is the provider abstraction. Complete makes exactly one
// attempt; callers own retry policy.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Name() string
}

// Settings selects and configures a provider.
type Settings struct {
	Provider   string
	Endpoint   string
	APIKey     string
	APIVersion string
	Model      string
	Timeout    time.Duration
}

const (
	defaultTimeout   = 120 * time.Second
	defaultMaxTokens = 4096
)

// Names lists the supported provider names. lmstudio is served by the
// Ollama client.
var Names = []string{"azure", "openai", "github", "ollama", "lmstudio", "anthropic"}

// New creates a provider from settings.
func New(s Settings) (Completer, error) {
	if s.Model == "" {
		return nil, fmt.Errorf("%s: model is required", s.Provider)
	}
	switch s.Provider {
	case "azure":
		return NewAzure(s)
	case "openai":
		return NewOpenAI(s)
	case "github":
		return NewGitHub(s)
	case "ollama", "lmstudio":
		return NewOllama(s)
	case "anthropic":
		return NewAnthropic(s)
	default:
		return nil, fmt.Errorf("unknown provider: %s", s.Provider)
	}
}

func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}
