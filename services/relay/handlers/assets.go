// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/driftwood-ai/chatrelay/services/llm"
)

// assetHTTPClient fetches resolved asset URLs. Separate from the backend
// client so a slow image download never shares a connection pool with chat.
var assetHTTPClient = &http.Client{Timeout: 60 * time.Second}

// HandleDownloadImage proxies a knowledge-base asset to the browser: the
// opaque reference id from a rewritten reply is resolved to a short-lived
// URL and the bytes are streamed through with their content headers.
func HandleDownloadImage(resolver llm.AssetResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := c.Param("sliceid")

		url, err := resolver.SliceURL(c.Request.Context(), ref)
		if err != nil {
			slog.Error("failed to resolve asset url", "ref", ref, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "asset resolution failed"})
			return
		}
		if url == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
			return
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, url, nil)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "asset fetch failed"})
			return
		}
		resp, err := assetHTTPClient.Do(req)
		if err != nil {
			slog.Error("failed to fetch asset", "ref", ref, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "asset fetch failed"})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			c.JSON(http.StatusBadGateway, gin.H{"error": "asset fetch failed"})
			return
		}

		c.Header("Content-Type", resp.Header.Get("Content-Type"))
		if length := resp.Header.Get("Content-Length"); length != "" {
			c.Header("Content-Length", length)
		}
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, resp.Body); err != nil {
			slog.Warn("asset stream interrupted", "ref", ref, "error", err)
		}
	}
}

// HandleGetSliceID resolves a free-text query to an asset reference id.
func HandleGetSliceID(resolver llm.AssetResolver) gin.HandlerFunc {
	type request struct {
		Query string `json:"query" binding:"required"`
	}

	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query required"})
			return
		}

		id, err := resolver.SliceID(c.Request.Context(), req.Query)
		if err != nil {
			slog.Error("slice lookup failed", "query", req.Query, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "lookup failed"})
			return
		}
		if id == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "no matching slice"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"slice_id": id})
	}
}
