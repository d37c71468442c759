// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"log/slog"
	"sync"
)

// Manager owns the mapping from live connections to sessions. It is the
// only structure in the relay touched by more than one connection's
// goroutines, so inserts, lookups, and removals are guarded by a single
// RWMutex.
//
// Connections are keyed by identity (any comparable handle works; the
// websocket handler passes its *websocket.Conn).
type Manager struct {
	mu       sync.RWMutex
	sessions map[any]*Session

	logsDir string
	window  int
}

// NewManager creates a manager whose sessions log under logsDir and retain
// at most window turns each (0 = unbounded).
func NewManager(logsDir string, window int) *Manager {
	return &Manager{
		sessions: make(map[any]*Session),
		logsDir:  logsDir,
		window:   window,
	}
}

// OnOpen allocates a fresh session for conn and registers the mapping. It
// never fails.
func (m *Manager) OnOpen(conn any) *Session {
	sess := New(m.logsDir, m.window)

	m.mu.Lock()
	m.sessions[conn] = sess
	m.mu.Unlock()

	slog.Info("session opened", "sessionID", sess.ID, "logFile", sess.LogPath)
	return sess
}

// Lookup returns the session registered for conn.
func (m *Manager) Lookup(conn any) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[conn]
	return sess, ok
}

// OnClose removes the mapping and marks the session closed so in-flight
// pipeline results are discarded instead of written to a dead connection.
// Safe to call for a connection that was never registered.
func (m *Manager) OnClose(conn any) {
	m.mu.Lock()
	sess, ok := m.sessions[conn]
	delete(m.sessions, conn)
	m.mu.Unlock()

	if !ok {
		return
	}
	sess.Close()
	slog.Info("session closed", "sessionID", sess.ID, "turns", sess.Turns())
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
