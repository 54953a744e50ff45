// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The open-persona Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "fmt"

// VectorStoreConfig configures the vector store backend.
type VectorStoreConfig struct {
	// Backend selects the store implementation (chromem, qdrant).
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"title=Backend,description=Vector store backend,enum=chromem,enum=qdrant,default=chromem"`

	// Path is the persistence directory for the embedded store.
	Path string `yaml:"path,omitempty" json:"path,omitempty" jsonschema:"title=Path,description=Persistence directory for embedded store"`

	// Host and Port for external stores (qdrant).
	Host string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,description=External store host,default=localhost"`
	Port int    `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"title=Port,description=External store port,default=6334"`

	// APIKey for authenticated external stores.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key,description=API key for external store"`

	// UseTLS enables TLS for external store connections.
	UseTLS bool `yaml:"use_tls,omitempty" json:"use_tls,omitempty" jsonschema:"title=Use TLS,description=Enable TLS for external store"`
}

func (c *VectorStoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "chromem"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
}

func (c *VectorStoreConfig) Validate() error {
	switch c.Backend {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("invalid vector store backend: %s", c.Backend)
	}
	return nil
}

// EmbedderConfig configures the embedding backend.
type EmbedderConfig struct {
	// Model name (e.g. "text-embedding-3-small").
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Embedding model,default=text-embedding-3-small"`

	// Dimensions of the embedding vectors.
	Dimensions int `yaml:"dimensions,omitempty" json:"dimensions,omitempty" jsonschema:"title=Dimensions,description=Embedding vector dimensions,default=1536"`

	// APIKey for the embedding endpoint. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key,description=API key (use ${ENV_VAR})"`

	// BaseURL overrides the default OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL,description=Custom embedding endpoint"`

	// BatchSize for batch embedding calls.
	BatchSize int `yaml:"batch_size,omitempty" json:"batch_size,omitempty" jsonschema:"title=Batch Size,description=Texts per embedding request,default=64"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	if c.Dimensions == 0 {
		c.Dimensions = 1536
	}
	if c.APIKey == "" {
		c.APIKey = GetProviderAPIKey("openai")
	}
	if c.BatchSize == 0 {
		c.BatchSize = 64
	}
}

func (c *EmbedderConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("embedder model is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedder dimensions must be positive, got %d", c.Dimensions)
	}
	return nil
}

// RetrievalConfig configures hybrid search and chunking behavior.
type RetrievalConfig struct {
	// TopK results returned to the caller.
	TopK int `yaml:"top_k,omitempty" json:"top_k,omitempty" jsonschema:"title=Top K,description=Results returned per search,minimum=1,default=5"`

	// MinScore is the vector similarity floor.
	MinScore float64 `yaml:"min_score,omitempty" json:"min_score,omitempty" jsonschema:"title=Min Score,description=Vector similarity floor,minimum=0,maximum=1,default=0.25"`

	// RRFK is the reciprocal rank fusion constant.
	RRFK int `yaml:"rrf_k,omitempty" json:"rrf_k,omitempty" jsonschema:"title=RRF K,description=Reciprocal rank fusion constant,minimum=1,default=60"`

	// Rerank enables LLM reranking of fused candidates.
	Rerank *bool `yaml:"rerank,omitempty" json:"rerank,omitempty" jsonschema:"title=Rerank,description=Enable LLM reranking,default=true"`

	// ChunkTokenBudget is the target chunk size in tokens.
	ChunkTokenBudget int `yaml:"chunk_token_budget,omitempty" json:"chunk_token_budget,omitempty" jsonschema:"title=Chunk Token Budget,description=Target chunk size in tokens,minimum=1,default=500"`

	// ChunkOverlap is the overlap carried between adjacent chunks, in tokens.
	ChunkOverlap int `yaml:"chunk_overlap,omitempty" json:"chunk_overlap,omitempty" jsonschema:"title=Chunk Overlap,description=Token overlap between adjacent chunks,minimum=0,default=50"`

	// CachePersonas bounds the lexical cache entry count.
	CachePersonas int `yaml:"cache_personas,omitempty" json:"cache_personas,omitempty" jsonschema:"title=Cache Personas,description=Max personas in lexical cache,minimum=1,default=20"`

	// CacheChunksPerEntry bounds chunks held per cached persona.
	CacheChunksPerEntry int `yaml:"cache_chunks_per_entry,omitempty" json:"cache_chunks_per_entry,omitempty" jsonschema:"title=Cache Chunks Per Entry,description=Max chunks per cache entry,minimum=1,default=500"`
}

func (c *RetrievalConfig) SetDefaults() {
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.MinScore == 0 {
		c.MinScore = 0.25
	}
	if c.RRFK == 0 {
		c.RRFK = 60
	}
	if c.Rerank == nil {
		c.Rerank = BoolPtr(true)
	}
	if c.ChunkTokenBudget == 0 {
		c.ChunkTokenBudget = 500
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 50
	}
	if c.CachePersonas == 0 {
		c.CachePersonas = 20
	}
	if c.CacheChunksPerEntry == 0 {
		c.CacheChunksPerEntry = 500
	}
}

func (c *RetrievalConfig) Validate() error {
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", c.TopK)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be between 0 and 1, got %f", c.MinScore)
	}
	if c.ChunkOverlap >= c.ChunkTokenBudget {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_token_budget (%d)", c.ChunkOverlap, c.ChunkTokenBudget)
	}
	return nil
}
