package llm

import "context"

// Chat message roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry in a conversation exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the result of a successful downstream completion call.
type Completion struct {
	// Answer is the generated text, exactly as returned by the service.
	Answer string

	// TotalTokens is the token usage reported by the service, 0 when the
	// backend does not report usage.
	TotalTokens int
}

// CompletionClient defines the standard interface for any completion backend.
// The messages slice is the full conversation in chronological order, ending
// with the newest user turn. Implementations must return a *Failure for every
// downstream error so callers can classify it.
type CompletionClient interface {
	Complete(ctx context.Context, messages []Message) (*Completion, error)
}

// AssetResolver maps opaque knowledge-base reference ids to fetchable URLs,
// and lookup queries to reference ids.
type AssetResolver interface {
	// SliceID resolves a lookup query to a reference id. An empty id with a
	// nil error means the query matched nothing.
	SliceID(ctx context.Context, query string) (string, error)

	// SliceURL resolves a reference id to a downloadable URL. An empty URL
	// with a nil error means the asset does not exist.
	SliceURL(ctx context.Context, id string) (string, error)
}
