package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, "8100", cfg.Port)
	assert.Equal(t, "chat-logs", cfg.LogsDir)
	assert.Equal(t, "knowledge-base", cfg.Backend.Type)
	assert.True(t, cfg.Rewrite.Illustrations)
}

func TestLoad_ParsesFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.yaml")
	content := `
port: "9000"
history_window: 50
backend:
  type: openai
  model: gpt-4o
rewrite:
  illustrations: false
  sign_query: "after-sales group QR code"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 50, cfg.HistoryWindow)
	assert.Equal(t, "openai", cfg.Backend.Type)
	assert.Equal(t, "gpt-4o", cfg.Backend.Model)
	assert.False(t, cfg.Rewrite.Illustrations)
	assert.Equal(t, "after-sales group QR code", cfg.Rewrite.SignQuery)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\nbackend:\n  type: openai\n"), 0644))

	t.Setenv("CHATRELAY_PORT", "9100")
	t.Setenv("CHATRELAY_API_KEY", "sk-secret")
	t.Setenv("CHATRELAY_HISTORY_WINDOW", "25")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "sk-secret", cfg.Backend.APIKey)
	assert.Equal(t, 25, cfg.HistoryWindow)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  type: carrier-pigeon\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown backend type")
}

func TestLoad_KnowledgeBaseRequiresBaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  type: knowledge-base\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "base_url")
}

func TestTokensUsagePath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("data", "tokens-usage.json"), cfg.TokensUsagePath())
}
