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

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/embedder"
	"github.com/jungtaeinn/open-persona/pkg/vector"
)

// EngineConfig tunes the hybrid search pipeline.
type EngineConfig struct {
	TopK             int
	MinScore         float32
	RRFK             int
	RerankMaxResults int
	CachePersonas    int
	CacheChunks      int
}

// SetDefaults applies the standard tuning.
func (c *EngineConfig) SetDefaults() {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.MinScore <= 0 {
		c.MinScore = 0.25
	}
	if c.RRFK <= 0 {
		c.RRFK = 60
	}
	if c.RerankMaxResults <= 0 {
		c.RerankMaxResults = 20
	}
	if c.CachePersonas <= 0 {
		c.CachePersonas = 20
	}
	if c.CacheChunks <= 0 {
		c.CacheChunks = 500
	}
}

// EngineConfigFrom maps retrieval configuration onto engine tuning.
func EngineConfigFrom(cfg *config.RetrievalConfig) EngineConfig {
	ec := EngineConfig{}
	if cfg != nil {
		ec.TopK = cfg.TopK
		ec.MinScore = float32(cfg.MinScore)
		ec.RRFK = cfg.RRFK
		ec.CachePersonas = cfg.CachePersonas
		ec.CacheChunks = cfg.CacheChunksPerEntry
	}
	ec.SetDefaults()
	return ec
}

// Engine indexes chunks and runs hybrid search over the two logical
// indices each persona owns. Vector hits come from the vector store,
// lexical hits from the cataloged chunk text; reciprocal rank fusion
// merges both, then an optional LLM pass reranks.
type Engine struct {
	embedder embedder.Embedder
	store    vector.Provider
	catalog  *ChunkStore
	cache    *lexicalCache
	reranker Reranker
	metrics  *SearchMetrics
	config   EngineConfig
}

// NewEngine creates a retrieval engine. A nil reranker disables the
// reranking pass regardless of per-request flags.
func NewEngine(emb embedder.Embedder, store vector.Provider, catalog *ChunkStore, reranker Reranker, cfg EngineConfig) *Engine {
	cfg.SetDefaults()
	return &Engine{
		embedder: emb,
		store:    store,
		catalog:  catalog,
		cache:    newLexicalCache(cfg.CachePersonas, cfg.CacheChunks),
		reranker: reranker,
		metrics:  NewSearchMetrics(),
		config:   cfg,
	}
}

// Metrics exposes the engine's counters.
func (e *Engine) Metrics() *SearchMetrics {
	return e.metrics
}

// IndexChunks embeds raw chunks and writes them to the persona's
// index of the given kind, assigning positional metadata per source
// document. Returns the number of chunks indexed. Empty input is a
// no-op. The persona's lexical cache is invalidated before returning.
func (e *Engine) IndexChunks(ctx context.Context, persona string, raw []RawChunk, kind IndexKind) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	// Positional metadata per source document
	totals := make(map[string]int)
	for _, chunk := range raw {
		totals[chunk.Metadata.SourceURI]++
	}
	positions := make(map[string]int)

	texts := make([]string, len(raw))
	for i, chunk := range raw {
		texts[i] = chunk.Content
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, NewSearchError("engine", "IndexChunks", "embedding failed", err)
	}
	if len(vectors) != len(raw) {
		return 0, NewSearchError("engine", "IndexChunks",
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(raw)), nil)
	}

	collection := CollectionName(persona, kind)
	records := make([]StoredChunk, 0, len(raw))
	docs := make([]vector.Document, 0, len(raw))

	for i, chunk := range raw {
		meta := chunk.Metadata
		meta.PersonaID = persona
		meta.ChunkIndex = positions[meta.SourceURI]
		meta.TotalChunks = totals[meta.SourceURI]
		positions[meta.SourceURI]++

		id := uuid.NewString()
		payload := meta.ToMap()
		payload["content"] = chunk.Content

		docs = append(docs, vector.Document{ID: id, Vector: vectors[i], Metadata: payload})
		records = append(records, StoredChunk{
			ID:      id,
			Content: chunk.Content,
			Metadata: map[string]string{
				"source_uri":   meta.SourceURI,
				"persona_id":   meta.PersonaID,
				"category":     meta.Category,
				"source_type":  string(meta.SourceType),
				"chunk_index":  fmt.Sprintf("%d", meta.ChunkIndex),
				"total_chunks": fmt.Sprintf("%d", meta.TotalChunks),
			},
		})
	}

	if err := e.store.UpsertBatch(ctx, collection, docs); err != nil {
		return 0, NewSearchError("engine", "IndexChunks", "vector upsert failed", err)
	}

	if err := e.catalog.Append(persona, kind, records); err != nil {
		return len(records), NewSearchError("engine", "IndexChunks", "catalog append failed", err)
	}

	e.cache.Invalidate(persona)
	e.metrics.RecordIndexed(kind, len(records))

	slog.Debug("Indexed chunks", "persona", persona, "kind", kind, "count", len(records))
	return len(records), nil
}

// Search runs the hybrid pipeline: embed the query once, query both
// index collections concurrently with the similarity floor, merge
// with lexical hits via reciprocal rank fusion, and optionally
// rerank. Rerank failures degrade silently to fused order.
func (e *Engine) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	start := time.Now()

	topK := req.TopK
	if topK <= 0 {
		topK = e.config.TopK
	}
	candidateK := 2 * topK

	queryVec, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, NewSearchError("engine", "Search", "query embedding failed", err)
	}

	var filter map[string]interface{}
	if req.Category != "" {
		filter = map[string]interface{}{"category": req.Category}
	}

	// Both index kinds queried concurrently
	kinds := []IndexKind{IndexStatic, IndexLearned}
	vectorHits := make([][]SearchResult, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			collection := CollectionName(req.Persona, kind)
			hits, err := e.store.SearchWithFilter(gctx, collection, queryVec, candidateK, filter)
			if err != nil {
				return fmt.Errorf("search %s: %w", collection, err)
			}
			kept := make([]SearchResult, 0, len(hits))
			for _, hit := range hits {
				if hit.Score < e.config.MinScore {
					continue
				}
				kept = append(kept, SearchResult{
					ID:       hit.ID,
					Content:  hit.Content,
					Score:    hit.Score,
					Metadata: hit.Metadata,
				})
			}
			vectorHits[i] = kept
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, NewSearchError("engine", "Search", "vector search failed", err)
	}

	merged := append(vectorHits[0], vectorHits[1]...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > candidateK {
		merged = merged[:candidateK]
	}

	lexical := e.lexicalHits(req, candidateK)

	fused := FuseRRF(e.config.RRFK, merged, lexical)

	results := fused
	if req.Rerank && e.reranker != nil && len(fused) > topK {
		reranked, err := e.reranker.Rerank(ctx, req.Query, fused, topK)
		if err != nil {
			e.metrics.RecordRerank(true)
			slog.Debug("Rerank failed, keeping fused order", "error", err)
			results = fused[:topK]
		} else {
			e.metrics.RecordRerank(false)
			results = reranked
		}
	} else if len(results) > topK {
		results = results[:topK]
	}

	e.metrics.RecordSearch(req.Persona, time.Since(start), len(results))
	return results, nil
}

// lexicalHits loads the persona's cataloged chunks (through the LRU
// cache) and scores them lexically. Catalog failures degrade to no
// lexical contribution.
func (e *Engine) lexicalHits(req SearchRequest, topK int) []SearchResult {
	chunks, ok := e.cache.Get(req.Persona)
	if !ok {
		var all []StoredChunk
		for _, kind := range []IndexKind{IndexStatic, IndexLearned} {
			loaded, err := e.catalog.Load(req.Persona, kind)
			if err != nil {
				slog.Warn("Failed to load chunk catalog", "persona", req.Persona, "kind", kind, "error", err)
				return nil
			}
			all = append(all, loaded...)
		}
		e.cache.Put(req.Persona, all)
		chunks = all
	}

	if req.Category != "" {
		filtered := make([]StoredChunk, 0, len(chunks))
		for _, chunk := range chunks {
			if chunk.Metadata["category"] == req.Category {
				filtered = append(filtered, chunk)
			}
		}
		chunks = filtered
	}

	return LexicalSearch(req.Query, chunks, topK)
}

// DeleteSource removes every chunk of one source document from the
// persona's index of the given kind, cascading through the vector
// store and the catalog.
func (e *Engine) DeleteSource(ctx context.Context, persona, sourceURI string, kind IndexKind) error {
	collection := CollectionName(persona, kind)
	filter := map[string]interface{}{"source_uri": sourceURI}

	if err := e.store.DeleteByFilter(ctx, collection, filter); err != nil {
		return NewSearchError("engine", "DeleteSource", "vector delete failed", err)
	}

	removed, err := e.catalog.DeleteSource(persona, kind, sourceURI)
	if err != nil {
		return NewSearchError("engine", "DeleteSource", "catalog delete failed", err)
	}

	e.cache.Invalidate(persona)
	slog.Debug("Deleted source", "persona", persona, "kind", kind, "source", sourceURI, "chunks", removed)
	return nil
}

// Stats reports chunk counts and distinct sources for both of a
// persona's indices.
func (e *Engine) Stats(ctx context.Context, persona string) (IndexStats, error) {
	stats := IndexStats{
		Persona: persona,
		Indices: make(map[IndexKind]KindStats, 2),
	}

	for _, kind := range []IndexKind{IndexStatic, IndexLearned} {
		count, err := e.store.Count(ctx, CollectionName(persona, kind))
		if err != nil {
			return stats, NewSearchError("engine", "Stats", "vector count failed", err)
		}
		sources, err := e.catalog.Sources(persona, kind)
		if err != nil {
			return stats, NewSearchError("engine", "Stats", "source listing failed", err)
		}
		stats.Indices[kind] = KindStats{Chunks: count, Sources: sources}
	}

	return stats, nil
}
