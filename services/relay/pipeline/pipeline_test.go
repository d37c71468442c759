package pipeline

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-ai/chatrelay/services/llm"
	"github.com/driftwood-ai/chatrelay/services/relay/rewrite"
	"github.com/driftwood-ai/chatrelay/services/relay/session"
)

// =============================================================================
// Mocks
// =============================================================================

type MockCompletionClient struct {
	completion *llm.Completion
	err        error

	gotMessages []llm.Message
	calls       int
}

func (m *MockCompletionClient) Complete(ctx context.Context, messages []llm.Message) (*llm.Completion, error) {
	m.calls++
	m.gotMessages = messages
	if m.err != nil {
		return nil, m.err
	}
	return m.completion, nil
}

type MockUsageRecorder struct {
	date   string
	tokens int
}

func (m *MockUsageRecorder) Add(date string, tokensUsed int) error {
	m.date = date
	m.tokens += tokensUsed
	return nil
}

// =============================================================================
// Successful turns
// =============================================================================

func TestHandleChat_SuccessLogsAndUpdatesHistory(t *testing.T) {
	dir := t.TempDir()
	sess := session.New(dir, 0)
	client := &MockCompletionClient{completion: &llm.Completion{Answer: "hi there", TotalTokens: 42}}
	usage := &MockUsageRecorder{}
	p := New(client, WithUsageRecorder(usage))

	out, err := p.HandleChat(context.Background(), sess, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)

	// The backend saw the new user turn as the final message.
	require.NotEmpty(t, client.gotMessages)
	last := client.gotMessages[len(client.gotMessages)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Equal(t, "hello", last.Content)

	// One log line landed in the session's own file.
	raw, err := os.ReadFile(sess.LogPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"user":"hello"`)
	assert.Contains(t, lines[0], `"ai":"hi there"`)

	assert.Equal(t, 1, sess.Turns())
	assert.Len(t, sess.Exchange(), 2)

	assert.Equal(t, 42, usage.tokens)
	assert.Equal(t, time.Now().Format("2006-01-02"), usage.date)
}

func TestHandleChat_ReplaysFullHistoryEachCall(t *testing.T) {
	sess := session.New(t.TempDir(), 0)
	client := &MockCompletionClient{completion: &llm.Completion{Answer: "reply"}}
	p := New(client)

	for _, q := range []string{"one", "two", "three"} {
		_, err := p.HandleChat(context.Background(), sess, q)
		require.NoError(t, err)
	}

	// Third call: two completed turns (4 messages) plus the new user turn.
	require.Len(t, client.gotMessages, 5)
	assert.Equal(t, "one", client.gotMessages[0].Content)
	assert.Equal(t, llm.RoleAssistant, client.gotMessages[1].Role)
	assert.Equal(t, "three", client.gotMessages[4].Content)
}

func TestHandleChat_SystemPromptLeadsTheExchange(t *testing.T) {
	sess := session.New(t.TempDir(), 0)
	client := &MockCompletionClient{completion: &llm.Completion{Answer: "ok"}}
	p := New(client, WithSystemPrompt(func() string { return "be terse" }))

	_, err := p.HandleChat(context.Background(), sess, "hello")
	require.NoError(t, err)

	require.Len(t, client.gotMessages, 2)
	assert.Equal(t, llm.RoleSystem, client.gotMessages[0].Role)
	assert.Equal(t, "be terse", client.gotMessages[0].Content)
}

func TestHandleChat_RewritesReplyButReplaysRawText(t *testing.T) {
	sess := session.New(t.TempDir(), 0)
	rawReply := `see <illustration data-ref="abc123"></illustration>`
	client := &MockCompletionClient{completion: &llm.Completion{Answer: rawReply}}
	p := New(client, WithRewrite(rewrite.Illustrations()))

	out, err := p.HandleChat(context.Background(), sess, "show me")
	require.NoError(t, err)
	assert.Contains(t, out, "/api/download-image/abc123")

	// Displayed history carries the rewritten text; the backend replay
	// carries the raw tag so the model sees its own output unchanged.
	history := sess.History()
	require.Len(t, history, 1)
	assert.Contains(t, history[0].AI, "/api/download-image/abc123")

	exchange := sess.Exchange()
	require.Len(t, exchange, 2)
	assert.Equal(t, rawReply, exchange[1].Content)
}

// =============================================================================
// Failed turns
// =============================================================================

func TestHandleChat_FailureIsClassifiedAndLeavesNoTrace(t *testing.T) {
	sess := session.New(t.TempDir(), 0)
	client := &MockCompletionClient{err: llm.NewFailure(429, "limit_requests", "slow down")}
	p := New(client)

	out, err := p.HandleChat(context.Background(), sess, "hello")
	assert.Empty(t, out)

	var ufe *UserFacingError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, MsgRateLimited, ufe.Message)

	// A failed turn is not recorded anywhere.
	assert.Zero(t, sess.Turns())
	assert.Empty(t, sess.Exchange())
	_, statErr := os.Stat(sess.LogPath)
	assert.True(t, os.IsNotExist(statErr), "no log file for a failed turn")
}

func TestHandleChat_FailedTurnRetriesWithSameContext(t *testing.T) {
	sess := session.New(t.TempDir(), 0)
	client := &MockCompletionClient{completion: &llm.Completion{Answer: "first"}}
	p := New(client)

	_, err := p.HandleChat(context.Background(), sess, "one")
	require.NoError(t, err)

	client.err = llm.NewFailure(500, "internal", "boom")
	_, err = p.HandleChat(context.Background(), sess, "two")
	require.Error(t, err)
	failedLen := len(client.gotMessages)

	// The retry sees the identical prior history.
	_, err = p.HandleChat(context.Background(), sess, "two")
	require.Error(t, err)
	assert.Len(t, client.gotMessages, failedLen)
	assert.Equal(t, "one", client.gotMessages[0].Content)
}
