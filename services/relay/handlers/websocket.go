// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin handlers for the chat relay: the chat
// websocket, the admin log endpoints, asset resolution, and token usage.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/driftwood-ai/chatrelay/services/relay/datatypes"
	"github.com/driftwood-ai/chatrelay/services/relay/pipeline"
	"github.com/driftwood-ai/chatrelay/services/relay/prompt"
	"github.com/driftwood-ai/chatrelay/services/relay/session"
)

// inboundQueueSize bounds messages waiting behind an in-flight turn. A
// client that overruns it gets its reads blocked, which is the correct
// backpressure for a chat UI.
const inboundQueueSize = 16

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "chatrelay_active_sessions",
	Help: "Currently open websocket sessions",
})

// wsConn serializes writes. gorilla/websocket allows one concurrent writer;
// the worker goroutine and the handler both send.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// HandleChatWebSocket upgrades the connection, opens a session, and runs the
// read loop. Turns are processed one at a time in order by a worker
// goroutine, so the read loop keeps draining while a completion call is in
// flight and a disconnect is noticed immediately.
func HandleChatWebSocket(manager *session.Manager, pipe *pipeline.Pipeline,
	prompts *prompt.Store) gin.HandlerFunc {

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		conn := &wsConn{ws: ws}
		sess := manager.OnOpen(ws)
		activeSessions.Inc()
		defer activeSessions.Dec()

		inbound := make(chan datatypes.Envelope, inboundQueueSize)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for env := range inbound {
				handleEnvelope(c.Request.Context(), conn, sess, pipe, prompts, env)
			}
		}()

		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				slog.Info("websocket client disconnected",
					"session_id", sess.ID, "error", err.Error())
				break
			}

			var env datatypes.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				// A malformed frame is a client bug, not a disconnect.
				_ = conn.WriteJSON(datatypes.ErrorReply("invalid message format"))
				continue
			}
			inbound <- env
		}

		// Mark the session gone before waiting on the worker so an
		// in-flight turn cannot deliver to the closed connection.
		manager.OnClose(ws)
		close(inbound)
		<-done
	}
}

// handleEnvelope processes one inbound message. Every outcome is checked
// against session liveness immediately before the send.
func handleEnvelope(ctx context.Context, conn *wsConn, sess *session.Session,
	pipe *pipeline.Pipeline, prompts *prompt.Store, env datatypes.Envelope) {

	if err := env.ValidateInbound(); err != nil {
		sendIfOpen(conn, sess, datatypes.ErrorReply(err.Error()))
		return
	}

	if env.Type == datatypes.TypeReloadPrompt {
		if prompts == nil {
			sendIfOpen(conn, sess, datatypes.ErrorReply("prompt reload not available"))
			return
		}
		if err := prompts.Reload(); err != nil {
			slog.Error("prompt reload failed", "session_id", sess.ID, "error", err)
			sendIfOpen(conn, sess, datatypes.ErrorReply("prompt reload failed"))
			return
		}
		sendIfOpen(conn, sess, datatypes.ChatReply("system prompt reloaded"))
		return
	}

	out, err := pipe.HandleChat(ctx, sess, env.Content)
	if err != nil {
		var ufe *pipeline.UserFacingError
		if !errors.As(err, &ufe) {
			// HandleChat classifies everything; this is belt and braces.
			sendIfOpen(conn, sess, datatypes.ErrorReply(pipeline.MsgDefault))
			return
		}
		sendIfOpen(conn, sess, datatypes.ErrorReply(ufe.Message))
		return
	}
	sendIfOpen(conn, sess, datatypes.ChatReply(out))
}

func sendIfOpen(conn *wsConn, sess *session.Session, env datatypes.Envelope) {
	if sess.Closed() {
		slog.Warn("dropping reply for closed session", "session_id", sess.ID)
		return
	}
	if err := conn.WriteJSON(env); err != nil {
		slog.Warn("failed to write websocket reply",
			"session_id", sess.ID, "error", err)
	}
}
