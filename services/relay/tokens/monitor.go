// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tokens accumulates per-day token usage reported by the completion
// backend and persists it to a flat JSON file. The on-disk format is an
// array of [date, kilo-tokens] pairs, e.g. [["2026-08-28", 1.234]].
package tokens

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// DayUsage is one accumulator bucket. It marshals as the two-element array
// the usage dashboard consumes.
type DayUsage struct {
	Date    string
	KTokens float64
}

func (d DayUsage) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{d.Date, d.KTokens})
}

func (d *DayUsage) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &d.Date); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &d.KTokens)
}

// Monitor is a concurrency-safe accumulator backed by a single JSON file.
type Monitor struct {
	mu   sync.Mutex
	path string
	data []DayUsage
}

// NewMonitor loads (or creates) the usage file at path.
func NewMonitor(path string) (*Monitor, error) {
	m := &Monitor{path: path}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := m.save(); err != nil {
			return nil, err
		}
		slog.Info("created token usage file", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read token usage file %s: %w", path, err)
	default:
		if err := json.Unmarshal(raw, &m.data); err != nil {
			return nil, fmt.Errorf("failed to parse token usage file %s: %w", path, err)
		}
	}
	return m, nil
}

// Add folds tokens into the bucket for date (YYYY-MM-DD), converting to
// kilo-tokens the way the dashboard expects, and persists the file.
func (m *Monitor) Add(date string, tokensUsed int) error {
	if date == "" || tokensUsed <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for i := range m.data {
		if m.data[i].Date == date {
			m.data[i].KTokens += float64(tokensUsed) / 1000
			found = true
			break
		}
	}
	if !found {
		m.data = append(m.data, DayUsage{Date: date, KTokens: float64(tokensUsed) / 1000})
	}
	return m.save()
}

// Snapshot returns a copy of all buckets.
func (m *Monitor) Snapshot() []DayUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DayUsage, len(m.data))
	copy(out, m.data)
	return out
}

// save writes the accumulator; callers hold the lock (or own the monitor
// exclusively during construction).
func (m *Monitor) save() error {
	data := m.data
	if data == nil {
		data = []DayUsage{}
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token usage: %w", err)
	}
	if err := os.WriteFile(m.path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write token usage file %s: %w", m.path, err)
	}
	return nil
}
