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

// Package rag implements hybrid retrieval over per-persona knowledge:
// section-aware chunking, vector search, lexical scoring, reciprocal
// rank fusion and optional LLM reranking.
package rag

import "fmt"

// IndexKind distinguishes the two logical indices each persona owns.
type IndexKind string

const (
	// IndexStatic holds bundled knowledge indexed at bootstrap.
	IndexStatic IndexKind = "static"

	// IndexLearned holds user uploads and feedback-derived knowledge.
	IndexLearned IndexKind = "learned"
)

// SourceType records where a chunk's document came from.
type SourceType string

const (
	SourceStatic     SourceType = "static"
	SourceUserUpload SourceType = "user-upload"
	SourceLearned    SourceType = "learned"
)

// ChunkMetadata travels with every indexed chunk.
type ChunkMetadata struct {
	// SourceURI identifies the originating document (path or synthetic URI).
	SourceURI string

	// PersonaID owns the chunk.
	PersonaID string

	// Category groups chunks for filtered search (may be empty).
	Category string

	// SourceType is static, user-upload or learned.
	SourceType SourceType

	// ChunkIndex and TotalChunks are positional within the source
	// document, assigned at indexing time.
	ChunkIndex  int
	TotalChunks int
}

// ToMap flattens metadata for vector store payloads.
func (m ChunkMetadata) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"source_uri":   m.SourceURI,
		"persona_id":   m.PersonaID,
		"category":     m.Category,
		"source_type":  string(m.SourceType),
		"chunk_index":  m.ChunkIndex,
		"total_chunks": m.TotalChunks,
	}
}

// RawChunk is a chunk fresh out of the chunker, before positional
// fields are assigned and before it is embedded.
type RawChunk struct {
	Content  string
	Metadata ChunkMetadata
}

// Section is a unit of document structure handed to the chunker:
// a heading with its body, a spreadsheet sheet, a slide group.
type Section struct {
	Title string
	Body  string
}

// SearchResult is one scored hit from a search. Scores are only
// comparable within a single search call.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]interface{}
}

// SearchRequest describes one hybrid search.
type SearchRequest struct {
	Query    string
	Persona  string
	Category string

	// TopK overrides the configured default when positive.
	TopK int

	// Rerank enables the LLM reranking pass.
	Rerank bool
}

// IndexStats summarizes one persona's indices.
type IndexStats struct {
	Persona string                  `json:"persona"`
	Indices map[IndexKind]KindStats `json:"indices"`
}

// KindStats holds counts for a single index kind.
type KindStats struct {
	Chunks  int      `json:"chunks"`
	Sources []string `json:"sources"`
}

// CollectionName derives the vector store collection for a persona's
// index of the given kind.
func CollectionName(persona string, kind IndexKind) string {
	return fmt.Sprintf("%s-%s", persona, kind)
}
