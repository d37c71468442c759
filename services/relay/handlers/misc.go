// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driftwood-ai/chatrelay/services/relay/prompt"
	"github.com/driftwood-ai/chatrelay/services/relay/tokens"
)

// HandleHealth is the liveness probe.
func HandleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}

// HandleTokensUsage returns the per-day token accumulator as
// [[date, kilo-tokens], ...].
func HandleTokensUsage(monitor *tokens.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, monitor.Snapshot())
	}
}

// HandleReloadPrompt re-reads the system prompt file on demand, the HTTP
// counterpart of the websocket reload-prompt message.
func HandleReloadPrompt(prompts *prompt.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := prompts.Reload(); err != nil {
			slog.Error("prompt reload failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "prompt reload failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
	}
}
