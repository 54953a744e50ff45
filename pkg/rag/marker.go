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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const markerFileName = "embedding.marker"

// EnsureEmbeddingMarker guards index consistency across embedding
// model changes. The marker file records "{model}:{dims}"; when the
// recorded value differs from the active configuration, every
// persisted index under dataDir is wiped and the marker rewritten,
// so stale vectors are never searched with a new model's embeddings.
//
// Returns true when a wipe happened. Call before opening the vector
// store.
func EnsureEmbeddingMarker(dataDir, model string, dims int) (bool, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return false, fmt.Errorf("failed to create data directory: %w", err)
	}

	markerPath := filepath.Join(dataDir, markerFileName)
	want := fmt.Sprintf("%s:%d", model, dims)

	data, err := os.ReadFile(markerPath)
	if err == nil && strings.TrimSpace(string(data)) == want {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read embedding marker: %w", err)
	}

	wiped := false
	if err == nil {
		// Marker exists with a different model or dimension
		slog.Warn("Embedding configuration changed, wiping persisted indices",
			"previous", strings.TrimSpace(string(data)),
			"current", want)
		for _, sub := range []string{"vectors", "chunks"} {
			if rmErr := os.RemoveAll(filepath.Join(dataDir, sub)); rmErr != nil {
				return false, fmt.Errorf("failed to wipe %s: %w", sub, rmErr)
			}
		}
		wiped = true
	}

	if err := os.WriteFile(markerPath, []byte(want+"\n"), 0644); err != nil {
		return wiped, fmt.Errorf("failed to write embedding marker: %w", err)
	}
	return wiped, nil
}
