package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompatClient talks to any OpenAI-compatible chat completion
// endpoint (OpenAI itself, or compatible-mode gateways in front of other
// models). Callers own the message list, system prompt included.
type OpenAICompatClient struct {
	client *openai.Client
	model  string
}

// NewOpenAICompatClient creates a client. baseURL may be empty for the
// OpenAI default.
func NewOpenAICompatClient(apiKey, baseURL, model string) (*OpenAICompatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai backend requires an API key")
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("no model configured for the openai backend, defaulting", "model", model)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	slog.Info("Initializing OpenAI-compatible client", "model", model, "base_url", baseURL)
	return &OpenAICompatClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Complete implements CompletionClient.
func (o *OpenAICompatClient) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   1000,
		Temperature: 0.7,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, failureFromOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI backend returned no choices")
		return nil, NewFailure(0, "", "completion returned no choices")
	}

	return &Completion{
		Answer:      resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

// failureFromOpenAI converts go-openai error values into the closed
// Failure type.
func failureFromOpenAI(err error) *Failure {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
		return NewFailure(apiErr.HTTPStatusCode, code, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode > 0 {
			return NewFailure(reqErr.HTTPStatusCode, "", reqErr.Error())
		}
		return TransportFailure(reqErr.Err)
	}
	return TransportFailure(err)
}
