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

package agent

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/llms"
	"github.com/jungtaeinn/open-persona/pkg/rag"
	"github.com/jungtaeinn/open-persona/pkg/utils"
)

const (
	// maxContextChars bounds the retrieved-context section of the
	// system prompt.
	maxContextChars = 8000

	// maxHistoryTurns bounds how many prior turns enter the prompt.
	maxHistoryTurns = 20

	// historyTokenBudget bounds the trimmed history by tokens.
	historyTokenBudget = 4096
)

// Attachment is one file sent with a user message. Only images reach
// the model directly; documents go through the knowledge upload path.
type Attachment struct {
	Name     string
	MimeType string
	Data     string
	Encoding string
}

// IsImage reports whether the attachment can be sent as an image part.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// ContextBuilder assembles the ordered message list for a model call.
type ContextBuilder struct {
	counter *utils.TokenCounter
}

// NewContextBuilder builds a context builder with a tiktoken counter
// for the model. When no encoding is available (offline environments),
// history trimming falls back to the turn bound alone.
func NewContextBuilder(model string) *ContextBuilder {
	counter, err := utils.NewTokenCounter(model)
	if err != nil {
		slog.Warn("Token counter unavailable, trimming history by turn count only",
			"model", model, "error", err)
		counter = nil
	}
	return &ContextBuilder{counter: counter}
}

// Build produces: one system message (persona instructions plus a
// delimited retrieved-context section), the most recent history turns
// trimmed to a token budget, and one user message that is multi-part
// when image attachments are present.
func (b *ContextBuilder) Build(
	persona *config.PersonaConfig,
	retrieved []rag.SearchResult,
	history []llms.Message,
	text string,
	attachments []Attachment,
) []llms.Message {
	messages := []llms.Message{
		llms.SystemMessage(b.systemPrompt(persona, retrieved)),
	}
	messages = append(messages, b.trimHistory(history)...)
	messages = append(messages, buildUserMessage(text, attachments))
	return messages
}

func (b *ContextBuilder) systemPrompt(persona *config.PersonaConfig, retrieved []rag.SearchResult) string {
	var sb strings.Builder
	if persona != nil {
		sb.WriteString(persona.Instructions)
	}

	if len(retrieved) > 0 {
		var ctx strings.Builder
		for i, result := range retrieved {
			source, _ := result.Metadata["source_uri"].(string)
			if source != "" {
				ctx.WriteString(fmt.Sprintf("[%d] (%s)\n", i+1, source))
			} else {
				ctx.WriteString(fmt.Sprintf("[%d]\n", i+1))
			}
			ctx.WriteString(result.Content)
			ctx.WriteString("\n\n")
		}

		section := ctx.String()
		if len(section) > maxContextChars {
			section = section[:maxContextChars]
		}

		sb.WriteString("\n\n## Retrieved context\n")
		sb.WriteString("Use the following reference material when relevant. ")
		sb.WriteString("If it does not answer the question, say so instead of guessing.\n\n")
		sb.WriteString(section)
	}

	return sb.String()
}

// trimHistory keeps the most recent turns, then fits them into the
// token budget preferring recency.
func (b *ContextBuilder) trimHistory(history []llms.Message) []llms.Message {
	if len(history) > maxHistoryTurns*2 {
		history = history[len(history)-maxHistoryTurns*2:]
	}
	if len(history) == 0 || b.counter == nil {
		return history
	}

	counted := make([]utils.Message, len(history))
	for i, msg := range history {
		counted[i] = utils.Message{Role: string(msg.Role), Content: msg.Content}
	}
	fitted := b.counter.FitWithinLimit(counted, historyTokenBudget)

	// FitWithinLimit keeps a suffix, so align by length.
	return history[len(history)-len(fitted):]
}

func buildUserMessage(text string, attachments []Attachment) llms.Message {
	var images []Attachment
	for _, a := range attachments {
		if a.IsImage() {
			images = append(images, a)
		}
	}
	if len(images) == 0 {
		return llms.UserMessage(text)
	}

	parts := []llms.ContentPart{
		{Type: llms.ContentPartTypeText, Text: text},
	}
	for _, img := range images {
		if img.Encoding == "url" {
			parts = append(parts, llms.ContentPart{
				Type: llms.ContentPartTypeImageURL,
				URL:  img.Data,
			})
			continue
		}
		parts = append(parts, llms.ContentPart{
			Type:      llms.ContentPartTypeImageBase64,
			MediaType: img.MimeType,
			Data:      img.Data,
		})
	}

	return llms.Message{Role: llms.RoleUser, Parts: parts}
}
