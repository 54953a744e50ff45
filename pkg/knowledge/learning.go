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

package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jungtaeinn/open-persona/pkg/rag"
)

// Feedback types.
const (
	FeedbackPositive   = "positive"
	FeedbackNegative   = "negative"
	FeedbackCorrection = "correction"
)

// Feedback describes one user reaction to an assistant message.
type Feedback struct {
	MessageID        string
	PersonaID        string
	Type             string
	CorrectedContent string
}

// Learn folds feedback into the persona's learned index. Corrections
// carrying content are indexed so future retrieval surfaces the fixed
// answer; positive and bare negative feedback are recorded in the log
// only.
func (m *Manager) Learn(ctx context.Context, fb Feedback) error {
	switch fb.Type {
	case FeedbackPositive, FeedbackNegative, FeedbackCorrection:
	default:
		return fmt.Errorf("unknown feedback type: %s", fb.Type)
	}

	if fb.CorrectedContent == "" {
		slog.Info("Recorded feedback",
			"persona", fb.PersonaID,
			"message", fb.MessageID,
			"type", fb.Type)
		return nil
	}

	chunks := m.chunker.Chunk(
		[]rag.Section{{Body: fb.CorrectedContent}},
		rag.ChunkMetadata{
			SourceURI:  "feedback:" + fb.MessageID,
			SourceType: rag.SourceLearned,
		},
	)
	if len(chunks) == 0 {
		return nil
	}

	count, err := m.engine.IndexChunks(ctx, fb.PersonaID, chunks, rag.IndexLearned)
	if err != nil {
		return fmt.Errorf("failed to index correction: %w", err)
	}

	slog.Info("Learned from correction",
		"persona", fb.PersonaID,
		"message", fb.MessageID,
		"chunks", count)
	return nil
}
