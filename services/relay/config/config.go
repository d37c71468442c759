// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the relay configuration from a YAML file, creating a
// default file on first run. Secrets never live in the file: the API key and
// a handful of deployment knobs come from the environment and override the
// file's values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Backend selects and configures the completion collaborator.
type Backend struct {
	// Type is "knowledge-base" or "openai".
	Type string `yaml:"type"`

	// BaseURL is the service endpoint. For the openai type an empty value
	// means the public API.
	BaseURL string `yaml:"base_url"`

	// Model applies to the openai type only.
	Model string `yaml:"model"`

	// ServiceResourceID applies to the knowledge-base type only.
	ServiceResourceID string `yaml:"service_resource_id"`

	// APIKey is filled from CHATRELAY_API_KEY, never from the file.
	APIKey string `yaml:"-"`
}

// Rewrite configures the reply rewrite passes.
type Rewrite struct {
	// Illustrations toggles the reference-tag pass.
	Illustrations bool `yaml:"illustrations"`

	// SignQuery, when non-empty, enables the sign-marker pass with this
	// fixed lookup query.
	SignQuery string `yaml:"sign_query"`
}

type Config struct {
	Port       string `yaml:"port"`
	PublicDir  string `yaml:"public_dir"`
	LogsDir    string `yaml:"logs_dir"`
	DataDir    string `yaml:"data_dir"`
	PromptPath string `yaml:"prompt_path"`

	// HistoryWindow bounds retained turns per session; 0 keeps everything.
	HistoryWindow int `yaml:"history_window"`

	Backend Backend `yaml:"backend"`
	Rewrite Rewrite `yaml:"rewrite"`
}

func DefaultConfig() Config {
	return Config{
		Port:       "8100",
		PublicDir:  "public",
		LogsDir:    "chat-logs",
		DataDir:    "data",
		PromptPath: "prompt.txt",
		Backend: Backend{
			Type:    "knowledge-base",
			BaseURL: "http://localhost:12210",
			Model:   "gpt-4o-mini",
		},
		Rewrite: Rewrite{Illustrations: true},
	}
}

// TokensUsagePath is where the token accumulator persists.
func (c *Config) TokensUsagePath() string {
	return filepath.Join(c.DataDir, "tokens-usage.json")
}

// Load reads the config at path, creating a default file on first run, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf(" First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func createDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create the config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv layers deployment overrides on top of the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("CHATRELAY_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("CHATRELAY_LOGS_DIR"); v != "" {
		c.LogsDir = v
	}
	if v := os.Getenv("CHATRELAY_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("CHATRELAY_HISTORY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.HistoryWindow = n
		}
	}
	c.Backend.APIKey = os.Getenv("CHATRELAY_API_KEY")
}

func (c *Config) validate() error {
	switch c.Backend.Type {
	case "knowledge-base", "openai":
	default:
		return fmt.Errorf("unknown backend type %q", c.Backend.Type)
	}
	if c.Backend.Type == "knowledge-base" && c.Backend.BaseURL == "" {
		return fmt.Errorf("the knowledge-base backend requires a base_url")
	}
	return nil
}
