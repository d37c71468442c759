package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Complete
// =============================================================================

func TestKnowledgeBaseClient_Complete_Success(t *testing.T) {
	var gotBody kbChatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/knowledge/service/chat", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": "OK",
			"data": {
				"generated_answer": "hi there",
				"token_usage": {"llm_token_usage": {"total_tokens": 42}}
			}
		}`))
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, "kb-svc-1", "test-key")
	completion, err := client.Complete(context.Background(), []Message{
		{Role: RoleUser, Content: "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, "hi there", completion.Answer)
	assert.Equal(t, 42, completion.TotalTokens)
	assert.Equal(t, "kb-svc-1", gotBody.ServiceResourceID)
	assert.False(t, gotBody.Stream)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "hello", gotBody.Messages[0].Content)
}

func TestKnowledgeBaseClient_Complete_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code": "limit_requests", "message": "rate limited"}`))
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, "kb-svc-1", "test-key")
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	require.Error(t, err)

	f := AsFailure(err)
	assert.Equal(t, http.StatusTooManyRequests, f.StatusCode)
	assert.Equal(t, "limit_requests", f.Code)
	assert.Equal(t, "rate limited", f.Message)
	assert.Equal(t, TransportNone, f.Transport)
}

func TestKnowledgeBaseClient_Complete_ConnectionRefused(t *testing.T) {
	// Grab a port nothing listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewKnowledgeBaseClient(url, "kb-svc-1", "test-key")
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	require.Error(t, err)

	f := AsFailure(err)
	assert.Equal(t, TransportConnRefused, f.Transport)
	assert.Zero(t, f.StatusCode)
}

// =============================================================================
// Asset resolution
// =============================================================================

func TestKnowledgeBaseClient_SliceID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/knowledge/slice/search", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": {"slice_id": "abc123"}}`))
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, "kb-svc-1", "test-key")
	id, err := client.SliceID(context.Background(), "support group")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestKnowledgeBaseClient_SliceURL_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code": "NotFound", "message": "no such slice"}`))
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, "kb-svc-1", "test-key")
	url, err := client.SliceURL(context.Background(), "missing")
	require.NoError(t, err, "a missing slice is not an error")
	assert.Empty(t, url)
}
