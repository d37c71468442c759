// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chatlog persists completed chat turns as JSON Lines, one file per
// session. File identity encodes the session open time and id
// (YYYY-MM-DD-HH-mm-ss-<id>.log), so two sessions never share a file and
// their entries never interleave.
package chatlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one durable chat turn. Timestamp marshals as ISO-8601; AI holds
// the post-rewrite text that was actually shown to the user.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	AI        string    `json:"ai"`
}

// Append writes one entry as a JSON line at the end of the session's log
// file, creating the file on first write.
func Append(path string, e Entry) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open chat log %s: %w", path, err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(e); err != nil {
		return fmt.Errorf("failed to append chat log entry: %w", err)
	}
	return nil
}

// EnsureDir creates the log directory if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	return nil
}

// Dir returns the session log directory joined with a file name, rejecting
// names that try to escape it.
func securePath(dir, name string) (string, error) {
	if filepath.Ext(name) != ".log" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid log file name %q", name)
	}
	return filepath.Join(dir, name), nil
}
