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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// StoredChunk is the catalog record of an indexed chunk: the text and
// its flattened metadata, without the embedding vector.
type StoredChunk struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// ChunkStore is a JSON file catalog of indexed chunks, one file per
// persona and index kind. The vector store holds the embeddings; the
// catalog serves lexical search and source listing, which the vector
// backends cannot scan for.
type ChunkStore struct {
	dir string
	mu  sync.Mutex
}

// NewChunkStore creates a catalog rooted at dir.
func NewChunkStore(dir string) (*ChunkStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunk store directory: %w", err)
	}
	return &ChunkStore{dir: dir}, nil
}

// Append adds chunks to a persona's catalog for the given kind.
func (s *ChunkStore) Append(persona string, kind IndexKind, chunks []StoredChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(persona, kind)
	if err != nil {
		return err
	}
	return s.save(persona, kind, append(existing, chunks...))
}

// Load returns a persona's cataloged chunks for one kind. A missing
// catalog file yields an empty slice.
func (s *ChunkStore) Load(persona string, kind IndexKind) ([]StoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(persona, kind)
}

// DeleteSource removes all chunks of one source document, returning
// how many were removed.
func (s *ChunkStore) DeleteSource(persona string, kind IndexKind, sourceURI string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks, err := s.load(persona, kind)
	if err != nil {
		return 0, err
	}

	kept := chunks[:0]
	removed := 0
	for _, chunk := range chunks {
		if chunk.Metadata["source_uri"] == sourceURI {
			removed++
			continue
		}
		kept = append(kept, chunk)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(persona, kind, kept)
}

// Sources returns the distinct source URIs cataloged for one kind,
// sorted for stable output.
func (s *ChunkStore) Sources(persona string, kind IndexKind) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks, err := s.load(persona, kind)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var sources []string
	for _, chunk := range chunks {
		uri := chunk.Metadata["source_uri"]
		if uri != "" && !seen[uri] {
			seen[uri] = true
			sources = append(sources, uri)
		}
	}
	sort.Strings(sources)
	return sources, nil
}

// Count returns the number of cataloged chunks for one kind.
func (s *ChunkStore) Count(persona string, kind IndexKind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks, err := s.load(persona, kind)
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (s *ChunkStore) load(persona string, kind IndexKind) ([]StoredChunk, error) {
	data, err := os.ReadFile(s.path(persona, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read chunk catalog: %w", err)
	}

	var chunks []StoredChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("failed to parse chunk catalog: %w", err)
	}
	return chunks, nil
}

func (s *ChunkStore) save(persona string, kind IndexKind, chunks []StoredChunk) error {
	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("failed to encode chunk catalog: %w", err)
	}

	path := s.path(persona, kind)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write chunk catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace chunk catalog: %w", err)
	}
	return nil
}

func (s *ChunkStore) path(persona string, kind IndexKind) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.json", persona, kind))
}
