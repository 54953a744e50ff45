// Copyright 2026 The open-persona Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jungtaeinn/open-persona/pkg/agent"
	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/embedder"
	"github.com/jungtaeinn/open-persona/pkg/knowledge"
	"github.com/jungtaeinn/open-persona/pkg/llms"
	"github.com/jungtaeinn/open-persona/pkg/rag"
	"github.com/jungtaeinn/open-persona/pkg/tools"
	"github.com/jungtaeinn/open-persona/pkg/utils"
	"github.com/jungtaeinn/open-persona/pkg/vector"
)

// appRuntime wires the full component graph from configuration.
type appRuntime struct {
	cfg       *config.Config
	service   *agent.Service
	engine    *rag.Engine
	knowledge *knowledge.Manager
	providers *llms.ProviderRegistry
	store     vector.Provider
}

func buildRuntime(cfg *config.Config) (*appRuntime, error) {
	emb, err := embedder.NewOpenAIEmbedder(&cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	dataDir, err := utils.EnsureDataDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir

	// The marker must be checked before the vector store opens its
	// persisted files.
	wiped, err := rag.EnsureEmbeddingMarker(cfg.DataDir, cfg.Embedder.Model, cfg.Embedder.Dimensions)
	if err != nil {
		return nil, err
	}
	if wiped {
		slog.Info("Persisted indices wiped after embedding change", "data_dir", cfg.DataDir)
	}

	store, err := vector.NewFromConfig(&cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	catalog, err := rag.NewChunkStore(filepath.Join(cfg.DataDir, "chunks"))
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}

	providers := llms.NewProviderRegistry()
	for name, providerCfg := range cfg.Providers {
		if providerCfg.APIKey == "" {
			slog.Debug("Skipping provider without API key", "provider", name)
			continue
		}
		if _, err := providers.CreateFromConfig(name, providerCfg); err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
		}
	}

	var reranker rag.Reranker
	if p, err := providers.GetProvider(cfg.DefaultProvider); err == nil {
		reranker = rag.NewLLMReranker(p, 0)
	} else {
		slog.Debug("No default provider available, reranking disabled")
	}

	engine := rag.NewEngine(emb, store, catalog, reranker, rag.EngineConfigFrom(&cfg.Retrieval))

	registry, err := tools.NewRegistry(&cfg.Tools)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	model := ""
	if providerCfg, ok := cfg.Providers[cfg.DefaultProvider]; ok {
		model = providerCfg.Model
	}
	builder := agent.NewContextBuilder(model)
	history := agent.NewHistoryStore(0)
	orchestrator := agent.NewOrchestrator(cfg, engine, registry, providers, builder, history)

	chunker := rag.NewSectionChunker(rag.ChunkerConfig{
		TokenBudget: cfg.Retrieval.ChunkTokenBudget,
		Overlap:     cfg.Retrieval.ChunkOverlap,
	})
	km := knowledge.NewManager(engine, chunker, cfg.Personas)

	return &appRuntime{
		cfg:       cfg,
		service:   agent.NewService(cfg, orchestrator, history, km),
		engine:    engine,
		knowledge: km,
		providers: providers,
		store:     store,
	}, nil
}

func (r *appRuntime) Close() {
	if err := r.providers.CloseAll(); err != nil {
		slog.Warn("Failed to close providers", "error", err)
	}
	if err := r.store.Close(); err != nil {
		slog.Warn("Failed to close vector store", "error", err)
	}
}
