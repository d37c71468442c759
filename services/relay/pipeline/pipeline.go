// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline orchestrates one chat turn: prompt assembly from session
// history, the downstream completion call, reply rewriting, durable logging,
// and history updates. All downstream failures are converted to a classified
// UserFacingError at this boundary; nothing escapes unclassified.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/driftwood-ai/chatrelay/services/llm"
	"github.com/driftwood-ai/chatrelay/services/relay/chatlog"
	"github.com/driftwood-ai/chatrelay/services/relay/rewrite"
	"github.com/driftwood-ai/chatrelay/services/relay/session"
)

// UserFacingError carries the classified message for the client alongside
// the underlying cause for the server log.
type UserFacingError struct {
	Message string
	cause   error
}

func (e *UserFacingError) Error() string {
	return fmt.Sprintf("chat turn failed: %v", e.cause)
}

func (e *UserFacingError) Unwrap() error { return e.cause }

// UsageRecorder accumulates token consumption. Implemented by tokens.Monitor.
type UsageRecorder interface {
	Add(date string, tokensUsed int) error
}

// SystemPrompt supplies the current system prompt text; empty means none.
// A function rather than a string so hot reloads take effect mid-session.
type SystemPrompt func() string

// Pipeline handles inbound user messages for any session. It holds no
// per-session state and is safe for concurrent use across sessions.
type Pipeline struct {
	client  llm.CompletionClient
	rewrite rewrite.Pass
	prompt  SystemPrompt
	usage   UsageRecorder
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithRewrite sets the reply rewrite pass applied to every AI reply.
func WithRewrite(pass rewrite.Pass) Option {
	return func(p *Pipeline) { p.rewrite = pass }
}

// WithSystemPrompt prepends the supplied prompt to every exchange.
func WithSystemPrompt(prompt SystemPrompt) Option {
	return func(p *Pipeline) { p.prompt = prompt }
}

// WithUsageRecorder records backend-reported token usage per day.
func WithUsageRecorder(usage UsageRecorder) Option {
	return func(p *Pipeline) { p.usage = usage }
}

func New(client llm.CompletionClient, opts ...Option) *Pipeline {
	p := &Pipeline{client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleChat runs one turn for sess. On success it returns the rewritten
// reply after logging it and appending the turn to history. On failure it
// returns a *UserFacingError and leaves history and the log untouched, so
// the next turn retries with the same prior context.
func (p *Pipeline) HandleChat(ctx context.Context, sess *session.Session, userText string) (string, error) {
	now := time.Now()

	messages := p.buildExchange(sess, userText)

	start := time.Now()
	completion, err := p.client.Complete(ctx, messages)
	completionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		failure := llm.AsFailure(err)
		classifiedErrors.WithLabelValues(Category(failure)).Inc()
		slog.Error("completion call failed",
			"session_id", sess.ID,
			"status", failure.StatusCode,
			"code", failure.Code,
			"error", err)
		return "", &UserFacingError{Message: Classify(failure), cause: err}
	}

	displayText := completion.Answer
	if p.rewrite != nil {
		rewritten, rerr := p.rewrite(ctx, displayText)
		if rerr != nil {
			// A broken rewrite collaborator must not sink the turn; the
			// reply goes out with whatever passes completed.
			slog.Warn("reply rewrite failed", "session_id", sess.ID, "error", rerr)
		}
		displayText = rewritten
	}

	entry := chatlog.Entry{Timestamp: now, User: userText, AI: displayText}
	if err := chatlog.Append(sess.LogPath, entry); err != nil {
		logWriteFailures.Inc()
		slog.Error("failed to append chat log", "session_id", sess.ID,
			"path", sess.LogPath, "error", err)
	}

	sess.AppendTurn(now, userText, displayText, completion.Answer)
	turnsTotal.Inc()

	p.recordUsage(now, completion.TotalTokens, sess.ID)

	return displayText, nil
}

// buildExchange is the full replayed history plus the new user turn, with
// the system prompt (when configured) leading.
func (p *Pipeline) buildExchange(sess *session.Session, userText string) []llm.Message {
	exchange := sess.Exchange()

	messages := make([]llm.Message, 0, len(exchange)+2)
	if p.prompt != nil {
		if text := p.prompt(); text != "" {
			messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: text})
		}
	}
	messages = append(messages, exchange...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userText})
	return messages
}

func (p *Pipeline) recordUsage(now time.Time, tokens int, sessionID string) {
	if tokens <= 0 {
		return
	}
	tokensConsumed.Add(float64(tokens))
	if p.usage == nil {
		return
	}
	if err := p.usage.Add(now.Format("2006-01-02"), tokens); err != nil {
		slog.Warn("failed to record token usage", "session_id", sessionID, "error", err)
	}
}
