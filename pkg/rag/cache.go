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
	"container/list"
	"sync"
)

// lexicalCache is a bounded LRU of per-persona chunk lists used by
// lexical search. Writes to an index invalidate the owning persona's
// entry synchronously, before the write returns.
type lexicalCache struct {
	maxPersonas int
	maxChunks   int

	mu      sync.Mutex
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

type cacheEntry struct {
	persona string
	chunks  []StoredChunk
}

func newLexicalCache(maxPersonas, maxChunks int) *lexicalCache {
	if maxPersonas <= 0 {
		maxPersonas = 20
	}
	if maxChunks <= 0 {
		maxChunks = 500
	}
	return &lexicalCache{
		maxPersonas: maxPersonas,
		maxChunks:   maxChunks,
		order:       list.New(),
		entries:     make(map[string]*list.Element),
	}
}

// Get returns the cached chunks for a persona, marking it recently used.
func (c *lexicalCache) Get(persona string) ([]StoredChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[persona]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).chunks, true
}

// Put stores a persona's chunks, evicting the least recently used
// persona when full. Oversized chunk lists keep their most recent
// entries.
func (c *lexicalCache) Put(persona string, chunks []StoredChunk) {
	if len(chunks) > c.maxChunks {
		chunks = chunks[len(chunks)-c.maxChunks:]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[persona]; ok {
		elem.Value.(*cacheEntry).chunks = chunks
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.maxPersonas {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).persona)
	}

	c.entries[persona] = c.order.PushFront(&cacheEntry{persona: persona, chunks: chunks})
}

// Invalidate drops a persona's entry.
func (c *lexicalCache) Invalidate(persona string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[persona]; ok {
		c.order.Remove(elem)
		delete(c.entries, persona)
	}
}

// Len reports the number of cached personas.
func (c *lexicalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
