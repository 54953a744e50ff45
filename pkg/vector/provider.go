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

// Package vector provides pluggable vector store backends for the
// retrieval engine. Two backends are supported: an embedded chromem-go
// store that persists to the local data directory, and a remote Qdrant
// server reached over gRPC.
package vector

import "context"

// Result is a single hit returned by a similarity search.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Vector   []float32
	Metadata map[string]interface{}
}

// Document is one vector plus its metadata, used for batch upserts.
// The document text travels in metadata under the "content" key.
type Document struct {
	ID       string
	Vector   []float32
	Metadata map[string]interface{}
}

// Provider is the interface all vector store backends implement.
// Collections are created lazily on first upsert.
type Provider interface {
	// Upsert inserts or replaces a vector with its metadata. The
	// document text travels in metadata under the "content" key.
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]interface{}) error

	// UpsertBatch inserts or replaces many vectors in one call.
	// Backends that persist to disk flush once per batch, so bulk
	// indexing must go through here rather than repeated Upserts.
	UpsertBatch(ctx context.Context, collection string, docs []Document) error

	// Search returns the topK nearest vectors by cosine similarity.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)

	// SearchWithFilter restricts the search to vectors whose metadata
	// matches all key/value pairs in filter.
	SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]interface{}) ([]Result, error)

	// Delete removes a single vector by ID.
	Delete(ctx context.Context, collection string, id string) error

	// DeleteByFilter removes all vectors whose metadata matches filter.
	DeleteByFilter(ctx context.Context, collection string, filter map[string]interface{}) error

	// Count reports the number of vectors in a collection. A missing
	// collection counts as zero.
	Count(ctx context.Context, collection string) (int, error)

	// DeleteCollection drops a collection and everything in it.
	DeleteCollection(ctx context.Context, collection string) error

	Name() string
	Close() error
}
