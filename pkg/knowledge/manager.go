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

// Package knowledge feeds the retrieval engine: bundled-document
// bootstrap into the static index, user uploads and feedback into the
// learned index, and an optional watcher that reindexes changed files.
package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/rag"
)

// Manager owns the document-to-index pipeline.
type Manager struct {
	engine   *rag.Engine
	parsers  *rag.ParserRegistry
	chunker  *rag.SectionChunker
	personas []*config.PersonaConfig
}

func NewManager(engine *rag.Engine, chunker *rag.SectionChunker, personas []*config.PersonaConfig) *Manager {
	return &Manager{
		engine:   engine,
		parsers:  rag.NewParserRegistry(),
		chunker:  chunker,
		personas: personas,
	}
}

// Upload parses one document and indexes it into the persona's
// learned index. Returns the number of chunks written.
func (m *Manager) Upload(ctx context.Context, personaID, filePath, category string) (int, error) {
	sections, err := m.parsers.ParseDocument(ctx, filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	chunks := m.chunker.Chunk(sections, rag.ChunkMetadata{
		SourceURI:  filePath,
		Category:   category,
		SourceType: rag.SourceUserUpload,
	})
	if len(chunks) == 0 {
		return 0, nil
	}

	count, err := m.engine.IndexChunks(ctx, personaID, chunks, rag.IndexLearned)
	if err != nil {
		return 0, fmt.Errorf("failed to index %s: %w", filePath, err)
	}

	slog.Info("Indexed uploaded document",
		"persona", personaID,
		"source", filePath,
		"category", category,
		"chunks", count)
	return count, nil
}

// Bootstrap walks each persona's bundled knowledge directory into its
// static index. Idempotent: personas whose static index already holds
// chunks are skipped.
func (m *Manager) Bootstrap(ctx context.Context) error {
	for _, persona := range m.personas {
		if persona.KnowledgeDir == "" {
			continue
		}

		stats, err := m.engine.Stats(ctx, persona.ID)
		if err != nil {
			return fmt.Errorf("failed to read index stats for %s: %w", persona.ID, err)
		}
		if stats.Indices[rag.IndexStatic].Chunks > 0 {
			slog.Debug("Static index already populated, skipping bootstrap",
				"persona", persona.ID,
				"chunks", stats.Indices[rag.IndexStatic].Chunks)
			continue
		}

		indexed, err := m.indexDirectory(ctx, persona)
		if err != nil {
			return err
		}
		slog.Info("Bootstrapped persona knowledge",
			"persona", persona.ID,
			"dir", persona.KnowledgeDir,
			"chunks", indexed)
	}
	return nil
}

func (m *Manager) indexDirectory(ctx context.Context, persona *config.PersonaConfig) (int, error) {
	supported := make(map[string]bool)
	for _, ext := range m.parsers.SupportedExtensions() {
		supported[ext] = true
	}

	total := 0
	err := filepath.WalkDir(persona.KnowledgeDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supported[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		count, err := m.indexStaticFile(ctx, persona, path)
		if err != nil {
			// A single bad document must not block the rest.
			slog.Warn("Skipping unparseable document", "path", path, "error", err)
			return nil
		}
		total += count
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("failed to walk %s: %w", persona.KnowledgeDir, err)
	}
	return total, nil
}

func (m *Manager) indexStaticFile(ctx context.Context, persona *config.PersonaConfig, path string) (int, error) {
	sections, err := m.parsers.ParseDocument(ctx, path)
	if err != nil {
		return 0, err
	}

	chunks := m.chunker.Chunk(sections, rag.ChunkMetadata{
		SourceURI:  path,
		Category:   categoryFor(persona, path),
		SourceType: rag.SourceStatic,
	})
	if len(chunks) == 0 {
		return 0, nil
	}
	return m.engine.IndexChunks(ctx, persona.ID, chunks, rag.IndexStatic)
}

// Reindex replaces the static chunks of one file. Used by the watcher
// when a bundled document changes on disk.
func (m *Manager) Reindex(ctx context.Context, persona *config.PersonaConfig, path string) (int, error) {
	if err := m.engine.DeleteSource(ctx, persona.ID, path, rag.IndexStatic); err != nil {
		return 0, fmt.Errorf("failed to drop stale chunks for %s: %w", path, err)
	}
	return m.indexStaticFile(ctx, persona, path)
}

// categoryFor derives the knowledge category from the document's
// first directory segment under the persona's knowledge dir, falling
// back to the persona's first configured category.
func categoryFor(persona *config.PersonaConfig, path string) string {
	rel, err := filepath.Rel(persona.KnowledgeDir, path)
	if err == nil {
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) > 1 {
			return parts[0]
		}
	}
	if len(persona.Categories) > 0 {
		return persona.Categories[0]
	}
	return ""
}
