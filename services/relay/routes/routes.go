// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftwood-ai/chatrelay/services/llm"
	"github.com/driftwood-ai/chatrelay/services/relay/handlers"
	"github.com/driftwood-ai/chatrelay/services/relay/pipeline"
	"github.com/driftwood-ai/chatrelay/services/relay/prompt"
	"github.com/driftwood-ai/chatrelay/services/relay/session"
	"github.com/driftwood-ai/chatrelay/services/relay/tokens"
)

// Deps carries everything the route tree needs. Resolver and Prompts may be
// nil when the deployment has no knowledge-base backend or no prompt file;
// the dependent routes are simply not registered.
type Deps struct {
	Manager  *session.Manager
	Pipeline *pipeline.Pipeline
	Prompts  *prompt.Store
	Resolver llm.AssetResolver
	Tokens   *tokens.Monitor

	LogsDir   string
	PublicDir string
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HandleHealth())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.PublicDir != "" {
		router.StaticFS("/ui", http.Dir(deps.PublicDir))
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/ui/index.html")
		})
	}

	api := router.Group("/api")
	{
		api.GET("/chat/ws", handlers.HandleChatWebSocket(deps.Manager, deps.Pipeline, deps.Prompts))
		api.GET("/tokens-usage", handlers.HandleTokensUsage(deps.Tokens))

		if deps.Prompts != nil {
			api.POST("/reload-prompt", handlers.HandleReloadPrompt(deps.Prompts))
		}
		if deps.Resolver != nil {
			api.GET("/download-image/:sliceid", handlers.HandleDownloadImage(deps.Resolver))
			api.POST("/get-slice-id", handlers.HandleGetSliceID(deps.Resolver))
		}

		admin := api.Group("/admin")
		{
			admin.GET("/logs", handlers.HandleListChatLogs(deps.LogsDir))
			admin.GET("/logs/:filename", handlers.HandleGetChatLog(deps.LogsDir))
		}
	}
}
