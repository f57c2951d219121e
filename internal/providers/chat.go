package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// chatClient speaks the OpenAI chat completions wire format, shared by
// the azure, openai, github and ollama providers.
type chatClient struct {
	url    string
	model  string
	header http.Header
	client *http.Client
	// omitModel leaves the model out of the body; Azure encodes the
	// deployment in the URL instead.
	omitModel bool
}

func (c *chatClient) complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	body := openaiRequest{
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   maxTokensOrDefault(req.MaxTokens),
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	if !c.omitModel {
		body.Model = c.model
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, vs := range c.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return CompletionResponse{}, statusError(httpResp.StatusCode, respBody)
	}

	var result openaiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return CompletionResponse{}, &malformedError{reason: "parsing response", err: err}
	}
	if len(result.Choices) == 0 {
		return CompletionResponse{}, &malformedError{reason: "no choices in response"}
	}
	if result.Choices[0].Message.Content == "" {
		return CompletionResponse{}, &malformedError{reason: "empty text content in API response"}
	}

	return CompletionResponse{
		Content:    result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

func toOpenAIMessages(msgs []Message) []openaiMessage {
	out := make([]openaiMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openaiMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

type openaiRequest struct {
	Model       string          `json:"model,omitempty"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	TotalTokens int `json:"total_tokens"`
}
