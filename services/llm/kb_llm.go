package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// KnowledgeBaseClient talks to a hosted knowledge-base chat service. The
// service consumes the full role-tagged history and answers from its own
// document corpus, so no system prompt is sent.
type KnowledgeBaseClient struct {
	httpClient *http.Client
	baseURL    string
	serviceID  string
	apiKey     string
}

// NewKnowledgeBaseClient creates a client for the given service endpoint.
// serviceID identifies the knowledge-base service resource; apiKey is sent
// as a bearer token.
func NewKnowledgeBaseClient(baseURL, serviceID, apiKey string) *KnowledgeBaseClient {
	return &KnowledgeBaseClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
		serviceID:  serviceID,
		apiKey:     apiKey,
	}
}

type kbChatRequest struct {
	ServiceResourceID string    `json:"service_resource_id"`
	Messages          []Message `json:"messages"`
	Stream            bool      `json:"stream"`
}

type kbChatResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		GeneratedAnswer string `json:"generated_answer"`
		TokenUsage      struct {
			LLMTokenUsage struct {
				TotalTokens int `json:"total_tokens"`
			} `json:"llm_token_usage"`
		} `json:"token_usage"`
	} `json:"data"`
}

// kbErrorBody is the error envelope the service returns on non-200 statuses.
type kbErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Complete implements CompletionClient.
func (c *KnowledgeBaseClient) Complete(ctx context.Context, messages []Message) (*Completion, error) {
	reqBody := kbChatRequest{
		ServiceResourceID: c.serviceID,
		Messages:          messages,
		Stream:            false,
	}

	var resp kbChatResponse
	if err := c.post(ctx, "/api/knowledge/service/chat", reqBody, &resp); err != nil {
		return nil, err
	}

	slog.Debug("knowledge base answered",
		"tokens", resp.Data.TokenUsage.LLMTokenUsage.TotalTokens)
	return &Completion{
		Answer:      resp.Data.GeneratedAnswer,
		TotalTokens: resp.Data.TokenUsage.LLMTokenUsage.TotalTokens,
	}, nil
}

type kbSliceSearchResponse struct {
	Data struct {
		SliceID string `json:"slice_id"`
	} `json:"data"`
}

type kbSliceURLResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// SliceID implements AssetResolver. A query with no match yields "" and a
// nil error.
func (c *KnowledgeBaseClient) SliceID(ctx context.Context, query string) (string, error) {
	var resp kbSliceSearchResponse
	err := c.post(ctx, "/api/knowledge/slice/search", map[string]string{"query": query}, &resp)
	if err != nil {
		if f := AsFailure(err); f.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", err
	}
	return resp.Data.SliceID, nil
}

// SliceURL implements AssetResolver. An unknown id yields "" and a nil error.
func (c *KnowledgeBaseClient) SliceURL(ctx context.Context, id string) (string, error) {
	var resp kbSliceURLResponse
	err := c.post(ctx, "/api/knowledge/slice/url", map[string]string{"slice_id": id}, &resp)
	if err != nil {
		if f := AsFailure(err); f.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", err
	}
	return resp.Data.URL, nil
}

// post sends a JSON request and decodes the 200 response into out. Non-200
// statuses are converted to *Failure with the service's code and message;
// request errors become transport failures.
func (c *KnowledgeBaseClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode knowledge base request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build knowledge base request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TransportFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var errBody kbErrorBody
		_ = json.Unmarshal(raw, &errBody)
		slog.Warn("knowledge base returned an error",
			"path", path, "status", resp.StatusCode, "code", errBody.Code)
		return NewFailure(resp.StatusCode, errBody.Code, errBody.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode knowledge base response: %w", err)
	}
	return nil
}
