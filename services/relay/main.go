// Copyright (C) 2025 Driftwood AI (hello@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/driftwood-ai/chatrelay/services/llm"
	"github.com/driftwood-ai/chatrelay/services/relay/chatlog"
	"github.com/driftwood-ai/chatrelay/services/relay/config"
	"github.com/driftwood-ai/chatrelay/services/relay/observability"
	"github.com/driftwood-ai/chatrelay/services/relay/pipeline"
	"github.com/driftwood-ai/chatrelay/services/relay/prompt"
	"github.com/driftwood-ai/chatrelay/services/relay/rewrite"
	"github.com/driftwood-ai/chatrelay/services/relay/routes"
	"github.com/driftwood-ai/chatrelay/services/relay/session"
	"github.com/driftwood-ai/chatrelay/services/relay/tokens"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := os.Getenv("CHATRELAY_CONFIG")
	if configPath == "" {
		configPath = "chatrelay.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load the config: %v", err)
	}

	cleanup, err := observability.SetupTracing(context.Background())
	if err != nil {
		log.Fatalf("failed to set up the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	if err := chatlog.EnsureDir(cfg.LogsDir); err != nil {
		log.Fatalf("failed to create the chat log directory: %v", err)
	}

	monitor, err := tokens.NewMonitor(cfg.TokensUsagePath())
	if err != nil {
		log.Fatalf("failed to open the token usage file: %v", err)
	}

	prompts := prompt.NewStore(cfg.PromptPath)
	go func() {
		if err := prompts.Watch(context.Background()); err != nil {
			slog.Warn("prompt watcher unavailable", "error", err)
		}
	}()

	client, resolver := buildBackend(cfg)

	opts := []pipeline.Option{
		pipeline.WithRewrite(buildRewrite(cfg, resolver)),
		pipeline.WithUsageRecorder(monitor),
	}
	// The knowledge-base service answers from its own corpus and takes no
	// system prompt; the persona applies to the openai backend only.
	if cfg.Backend.Type == "openai" {
		opts = append(opts, pipeline.WithSystemPrompt(prompts.Prompt))
	}
	pipe := pipeline.New(client, opts...)

	manager := session.NewManager(cfg.LogsDir, cfg.HistoryWindow)

	router := gin.Default()
	router.Use(otelgin.Middleware("chatrelay"))
	routes.SetupRoutes(router, routes.Deps{
		Manager:   manager,
		Pipeline:  pipe,
		Prompts:   prompts,
		Resolver:  resolver,
		Tokens:    monitor,
		LogsDir:   cfg.LogsDir,
		PublicDir: cfg.PublicDir,
	})

	slog.Info("chat relay listening", "port", cfg.Port, "backend", cfg.Backend.Type)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// buildBackend selects the completion collaborator. Only the knowledge-base
// backend can resolve asset references; with the openai backend the
// image-related routes and the sign-marker pass stay disabled.
func buildBackend(cfg *config.Config) (llm.CompletionClient, llm.AssetResolver) {
	switch cfg.Backend.Type {
	case "openai":
		client, err := llm.NewOpenAICompatClient(cfg.Backend.APIKey, cfg.Backend.BaseURL,
			cfg.Backend.Model)
		if err != nil {
			log.Fatalf("failed to build the openai backend: %v", err)
		}
		return client, nil
	default:
		client := llm.NewKnowledgeBaseClient(cfg.Backend.BaseURL,
			cfg.Backend.ServiceResourceID, cfg.Backend.APIKey)
		return client, client
	}
}

func buildRewrite(cfg *config.Config, resolver llm.AssetResolver) rewrite.Pass {
	var passes []rewrite.Pass
	if cfg.Rewrite.Illustrations {
		passes = append(passes, rewrite.Illustrations())
	}
	if cfg.Rewrite.SignQuery != "" && resolver != nil {
		passes = append(passes, rewrite.SignMarkers(resolver, cfg.Rewrite.SignQuery))
	}
	if len(passes) == 0 {
		return nil
	}
	return rewrite.Chain(passes...)
}
