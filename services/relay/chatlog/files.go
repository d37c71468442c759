// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chatlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// FileInfo describes one session log file for the admin listing.
type FileInfo struct {
	Name      string `json:"file"`
	Date      string `json:"date"`       // YYYY-MM-DD
	Time      string `json:"time"`       // HH:mm:ss
	SessionID string `json:"session_id"` // remainder of the file name
}

// parseFileName splits YYYY-MM-DD-HH-mm-ss-<id>.log into its parts. Files
// with unexpected names are listed with what could be parsed.
func parseFileName(name string) FileInfo {
	info := FileInfo{Name: name}
	parts := strings.Split(strings.TrimSuffix(name, ".log"), "-")
	if len(parts) >= 3 {
		info.Date = strings.Join(parts[:3], "-")
	}
	if len(parts) >= 6 {
		info.Time = strings.Join(parts[3:6], ":")
	}
	if len(parts) > 6 {
		info.SessionID = strings.Join(parts[6:], "-")
	}
	return info
}

// List returns the session log files under dir, newest first. dateFilter,
// when non-empty, keeps only files whose date part equals it (YYYY-MM-DD).
func List(dir, dateFilter string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read log directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info := parseFileName(entry.Name())
		if dateFilter != "" && info.Date != dateFilter {
			continue
		}
		files = append(files, info)
	}

	// Newest first: date+time descending, session id descending as the
	// tie-break for files opened in the same second.
	sort.Slice(files, func(i, j int) bool {
		if files[i].Date != files[j].Date {
			return files[i].Date > files[j].Date
		}
		if files[i].Time != files[j].Time {
			return files[i].Time > files[j].Time
		}
		return files[i].SessionID > files[j].SessionID
	})
	return files, nil
}

// Read parses the named session log, returning its entries newest first.
// The name must be a bare *.log file name inside dir.
func Read(dir, name string) ([]Entry, error) {
	path, err := securePath(dir, name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat log %s: %w", name, err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			slog.Warn("skipping malformed chat log line", "file", name, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan chat log %s: %w", name, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}
