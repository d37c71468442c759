// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package prompt holds the system prompt text and keeps it fresh: the store
// serves the current prompt from memory, reloads it on request, and watches
// the backing file so edits take effect without a restart.
package prompt

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DefaultPrompt is used when no prompt file exists.
const DefaultPrompt = "You are a helpful assistant. Answer concisely and accurately."

// Store serves the current system prompt. Safe for concurrent use.
type Store struct {
	path string

	mu   sync.RWMutex
	text string

	watcher *fsnotify.Watcher
}

// NewStore loads the prompt from path. A missing file is not an error; the
// store falls back to DefaultPrompt until the file appears.
func NewStore(path string) *Store {
	s := &Store{path: path, text: DefaultPrompt}
	if err := s.Reload(); err != nil {
		slog.Warn("system prompt file not loaded, using default",
			"path", path, "error", err)
	}
	return s
}

// Prompt returns the current prompt text.
func (s *Store) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Reload re-reads the prompt file. An empty or missing file leaves the
// current prompt in place and returns the read error, so a botched edit
// never blanks the prompt mid-session.
func (s *Store) Reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return os.ErrInvalid
	}

	s.mu.Lock()
	s.text = text
	s.mu.Unlock()

	slog.Info("system prompt loaded", "path", s.path, "bytes", len(text))
	return nil
}

// Watch reloads the prompt whenever the backing file changes. Editors often
// replace rather than write in place, so the watch is on the parent
// directory and events are filtered by name. Blocks until ctx is cancelled;
// run in a goroutine.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	slog.Debug("watching system prompt", "path", s.path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("prompt watcher error", "error", err)

		case <-ctx.Done():
			return watcher.Close()
		}
	}
}

func (s *Store) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != filepath.Base(s.path) {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}
	if err := s.Reload(); err != nil {
		slog.Warn("prompt reload after file change failed",
			"path", s.path, "error", err)
	}
}
