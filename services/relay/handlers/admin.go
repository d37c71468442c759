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

	"github.com/driftwood-ai/chatrelay/services/relay/chatlog"
)

// HandleListChatLogs returns the session log files, newest first. An
// optional ?date=YYYY-MM-DD query keeps only that day's sessions.
func HandleListChatLogs(logsDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		files, err := chatlog.List(logsDir, c.Query("date"))
		if err != nil {
			slog.Error("failed to list chat logs", "dir", logsDir, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chat logs"})
			return
		}
		if files == nil {
			files = []chatlog.FileInfo{}
		}
		c.JSON(http.StatusOK, gin.H{"files": files})
	}
}

// HandleGetChatLog returns one session log's entries, newest first.
func HandleGetChatLog(logsDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("filename")
		entries, err := chatlog.Read(logsDir, name)
		if err != nil {
			slog.Warn("failed to read chat log", "file", name, "error", err)
			c.JSON(http.StatusNotFound, gin.H{"error": "chat log not found"})
			return
		}
		if entries == nil {
			entries = []chatlog.Entry{}
		}
		c.JSON(http.StatusOK, gin.H{"file": name, "entries": entries})
	}
}
