package providers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// rewriteTransport rewrites all request URLs to point at the test server.
type rewriteTransport struct {
	base    http.RoundTripper
	baseURL string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target, err := url.Parse(t.baseURL)
	if err != nil {
		return nil, err
	}
	req = req.Clone(req.Context())
	req.URL.Scheme = target.Scheme
	req.URL.Host = target.Host
	return t.base.RoundTrip(req)
}

func rewriteClient(server *httptest.Server) *http.Client {
	return &http.Client{Transport: &rewriteTransport{
		base:    server.Client().Transport,
		baseURL: server.URL,
	}}
}

// chatServer answers every request with a single chat completion choice
// and records the last decoded request.
func chatServer(t *testing.T, content string, got *openaiRequest, check func(*http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: content}}},
			Usage:   openaiUsage{TotalTokens: 42},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func userRequest(text string) CompletionRequest {
	return CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "review this"},
			{Role: RoleUser, Content: text},
		},
		MaxTokens: 10,
	}
}
