// Package session holds the per-connection state for the chat relay: the
// session record (identity, dual history views, log sink path) and the
// manager that maps live connections to their sessions.
//
// A session exists from connection open to connection close and is never
// persisted; the JSONL chat log is the only durable copy of a conversation.
package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/driftwood-ai/chatrelay/services/llm"
)

// Turn is one completed exchange: the user's message paired with the reply
// that was actually shown to them.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	AI        string    `json:"ai"`
}

// Session is the in-memory state for one live connection.
//
// It keeps two views of the conversation that advance in lock-step: the
// turn history (what was shown to the user, used by the admin log pages)
// and the exchange history (role-tagged messages in the shape the
// completion backend expects, with the assistant's raw pre-rewrite text).
// Every successful turn appends one Turn and exactly one user+assistant
// message pair.
type Session struct {
	// ID is unique among concurrently open sessions: open time in unix
	// milliseconds plus a random suffix.
	ID string

	// OpenedAt is captured at connection open and never changes; together
	// with ID it determines the log file identity.
	OpenedAt time.Time

	// LogPath is the session's append-only JSONL log sink.
	LogPath string

	mu       sync.Mutex
	history  []Turn
	exchange []llm.Message
	window   int

	closed atomic.Bool
}

// New creates a session with a fresh identity and an empty history. window
// bounds the number of retained turns (0 = unbounded).
func New(logsDir string, window int) *Session {
	now := time.Now()
	id := fmt.Sprintf("%d-%s", now.UnixMilli(), randSuffix())
	return &Session{
		ID:       id,
		OpenedAt: now,
		LogPath:  filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", now.Format("2006-01-02-15-04-05"), id)),
		window:   window,
	}
}

// randSuffix returns 8 random hex characters.
func randSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// AppendTurn records a successful exchange in both history views. displayed
// is the post-rewrite text shown to the user; raw is the assistant text as
// the backend produced it, which is what gets replayed on the next call.
func (s *Session) AppendTurn(ts time.Time, user, displayed, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Turn{Timestamp: ts, User: user, AI: displayed})
	s.exchange = append(s.exchange,
		llm.Message{Role: llm.RoleUser, Content: user},
		llm.Message{Role: llm.RoleAssistant, Content: raw},
	)

	if s.window > 0 && len(s.history) > s.window {
		drop := len(s.history) - s.window
		s.history = append(s.history[:0:0], s.history[drop:]...)
		s.exchange = append(s.exchange[:0:0], s.exchange[2*drop:]...)
	}
}

// Exchange returns a copy of the role-tagged history for the backend call.
func (s *Session) Exchange() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.exchange))
	copy(out, s.exchange)
	return out
}

// History returns a copy of the completed turns.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Turns reports the number of completed turns.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Close marks the session's connection as gone. In-flight pipeline results
// must check Closed before writing anything back.
func (s *Session) Close() { s.closed.Store(true) }

// Closed reports whether the connection has been closed.
func (s *Session) Closed() bool { return s.closed.Load() }
