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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/llms"
	"github.com/jungtaeinn/open-persona/pkg/rag"
	"github.com/jungtaeinn/open-persona/pkg/tools"
)

const (
	// defaultMaxToolRounds bounds the tool-call loop.
	defaultMaxToolRounds = 5

	// defaultCompactionCeiling triggers message-list compaction.
	defaultCompactionCeiling = 30
)

// Fragment is one unit of a streamed response.
type Fragment struct {
	Text     string
	Done     bool
	ToolCall *llms.ToolCall
	Usage    *Usage
}

// Usage attributes the turn's tokens to the provider and model that
// produced the final answer.
type Usage struct {
	Provider string
	Model    string
	Tokens   int
}

// Searcher is the retrieval port the orchestrator degrades around.
type Searcher interface {
	Search(ctx context.Context, req rag.SearchRequest) ([]rag.SearchResult, error)
}

// ProviderSource resolves a provider name to a live client.
type ProviderSource interface {
	GetProvider(name string) (llms.Provider, error)
}

// Orchestrator drives one user turn through classification, retrieval,
// model selection, context building and the bounded tool-call loop.
type Orchestrator struct {
	cfg       *config.Config
	searcher  Searcher
	tools     *tools.Registry
	providers ProviderSource
	builder   *ContextBuilder
	history   *HistoryStore

	maxRounds         int
	compactionCeiling int
}

func NewOrchestrator(
	cfg *config.Config,
	searcher Searcher,
	registry *tools.Registry,
	providers ProviderSource,
	builder *ContextBuilder,
	history *HistoryStore,
) *Orchestrator {
	return &Orchestrator{
		cfg:               cfg,
		searcher:          searcher,
		tools:             registry,
		providers:         providers,
		builder:           builder,
		history:           history,
		maxRounds:         defaultMaxToolRounds,
		compactionCeiling: defaultCompactionCeiling,
	}
}

// Run executes one turn and emits fragments to out. All errors are
// mapped to persona-voiced messages; Run itself never fails the
// stream abruptly. The caller owns and closes out.
func (o *Orchestrator) Run(ctx context.Context, persona *config.PersonaConfig, text string, attachments []Attachment, out chan<- Fragment) {
	o.tools.Guardrails().ResetTurn()

	intent := Classify(text, persona, hasImage(attachments))
	slog.Debug("Classified intent",
		"persona", persona.ID,
		"category", intent.Category,
		"topic", intent.Topic,
		"confidence", intent.Confidence)

	var retrieved []rag.SearchResult
	if intent.NeedsRetrieval && o.searcher != nil {
		results, err := o.searcher.Search(ctx, rag.SearchRequest{
			Query:    text,
			Persona:  persona.ID,
			Category: intent.Topic,
			Rerank:   o.rerankEnabled(),
		})
		if err != nil {
			// Retrieval failure degrades to an empty context.
			slog.Warn("Retrieval failed, continuing without context",
				"persona", persona.ID, "error", err)
		} else {
			retrieved = results
		}
	}

	selection := SelectModel(intent, o.cfg.Providers)
	slog.Debug("Selected model",
		"provider", selection.Provider,
		"model", selection.Model,
		"reason", selection.Reason)

	messages := o.builder.Build(persona, retrieved, o.history.Get(persona.ID), text, attachments)

	finalText, usage, err := o.runWithFallback(ctx, selection, messages, out)
	if err != nil {
		if emit(ctx, out, Fragment{Text: UserFacingMessage(persona, err)}) {
			emit(ctx, out, Fragment{Done: true})
		}
		slog.Error("Turn failed", "persona", persona.ID, "error", err)
		return
	}

	o.history.Append(persona.ID,
		llms.UserMessage(text),
		llms.AssistantMessage(finalText, nil),
	)

	if emit(ctx, out, Fragment{Usage: usage}) {
		emit(ctx, out, Fragment{Done: true})
	}
}

// emit forwards one fragment to out unless the turn was already
// cancelled. It reports whether the fragment was delivered.
func emit(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- f:
		return true
	}
}

// runWithFallback runs the tool loop against the selected provider,
// retrying the entire loop once against the fallback provider when the
// initial call fails with a quota or auth shaped error.
func (o *Orchestrator) runWithFallback(ctx context.Context, selection Selection, messages []llms.Message, out chan<- Fragment) (string, *Usage, error) {
	provider, err := o.providers.GetProvider(selection.Provider)
	if err != nil {
		err = fmt.Errorf("provider %s unavailable: %w", selection.Provider, err)
	}

	var finalText string
	var tokens int
	var emitted bool
	if err == nil {
		finalText, tokens, emitted, err = o.toolLoop(ctx, provider, messages, out)
		if err == nil {
			return finalText, &Usage{Provider: selection.Provider, Model: provider.GetModelName(), Tokens: tokens}, nil
		}
	}

	fallbackName := o.cfg.FallbackProvider
	if fallbackName == "" || fallbackName == selection.Provider || emitted || !IsQuotaOrAuth(err) {
		return "", nil, err
	}

	slog.Warn("Retrying turn against fallback provider",
		"failed_provider", selection.Provider,
		"fallback", fallbackName,
		"error", err)

	fallback, fbErr := o.providers.GetProvider(fallbackName)
	if fbErr != nil {
		return "", nil, err
	}

	finalText, tokens, _, fbErr = o.toolLoop(ctx, fallback, messages, out)
	if fbErr != nil {
		return "", nil, fbErr
	}
	return finalText, &Usage{Provider: fallbackName, Model: fallback.GetModelName(), Tokens: tokens}, nil
}

// toolLoop is the bounded tool-call loop. Tool executions within a
// round are strictly sequential. The reported emitted flag is true
// once any text fragment reached the consumer, after which a fallback
// retry would duplicate output and is off the table.
func (o *Orchestrator) toolLoop(ctx context.Context, provider llms.Provider, messages []llms.Message, out chan<- Fragment) (string, int, bool, error) {
	defs := o.toolDefinitions()
	emitted := false

	for round := 0; round < o.maxRounds; round++ {
		roundDefs := defs
		if round == o.maxRounds-1 {
			// Final round forces a textual answer.
			roundDefs = nil
		}

		text, calls, tokens, err := o.streamOnce(ctx, provider, messages, roundDefs, out, &emitted)
		if err != nil {
			return "", 0, emitted, err
		}

		if len(calls) == 0 {
			return text, tokens, emitted, nil
		}

		messages = append(messages, llms.AssistantMessage(text, calls))
		for _, call := range calls {
			result, execErr := o.tools.Execute(ctx, call.Name, call.Args)
			if execErr != nil {
				result = tools.ToolResult{Success: false, Error: execErr.Error(), ToolName: call.Name}
			}
			messages = append(messages, llms.ToolResultMessage(call.ID, encodeToolResult(result)))
		}

		if len(messages) > o.compactionCeiling {
			messages = compactMessages(messages, o.compactionCeiling)
		}
	}

	// The loop only falls through when the final forced round still
	// produced tool calls, which nil defs make impossible.
	return "", 0, emitted, fmt.Errorf("tool loop exceeded %d rounds", o.maxRounds)
}

// streamOnce performs one streaming model call, forwarding text and
// tool-call fragments as they arrive.
func (o *Orchestrator) streamOnce(ctx context.Context, provider llms.Provider, messages []llms.Message, defs []llms.ToolDefinition, out chan<- Fragment, emitted *bool) (string, []*llms.ToolCall, int, error) {
	ch, err := provider.GenerateStreaming(ctx, messages, defs)
	if err != nil {
		return "", nil, 0, err
	}

	var text strings.Builder
	var calls []*llms.ToolCall
	tokens := 0

	for chunk := range ch {
		switch chunk.Type {
		case "text":
			if chunk.Text != "" {
				text.WriteString(chunk.Text)
				*emitted = true
				if !emit(ctx, out, Fragment{Text: chunk.Text}) {
					return "", nil, 0, ctx.Err()
				}
			}
		case "tool_call":
			if chunk.ToolCall != nil {
				calls = append(calls, chunk.ToolCall)
				if !emit(ctx, out, Fragment{ToolCall: chunk.ToolCall}) {
					return "", nil, 0, ctx.Err()
				}
			}
		case "done":
			tokens = chunk.Tokens
		case "error":
			return "", nil, 0, chunk.Error
		}
	}

	if err := ctx.Err(); err != nil {
		return "", nil, 0, err
	}

	return text.String(), calls, tokens, nil
}

func (o *Orchestrator) toolDefinitions() []llms.ToolDefinition {
	var defs []llms.ToolDefinition
	for _, info := range o.tools.ListTools() {
		properties := make(map[string]interface{}, len(info.Parameters))
		var required []string
		for _, p := range info.Parameters {
			prop := map[string]interface{}{
				"type":        p.Type,
				"description": p.Description,
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		defs = append(defs, llms.ToolDefinition{
			Name:        info.Name,
			Description: info.Description,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		})
	}
	return defs
}

func (o *Orchestrator) rerankEnabled() bool {
	return o.cfg.Retrieval.Rerank == nil || *o.cfg.Retrieval.Rerank
}

// compactMessages keeps all system messages plus the most recent
// messages up to the ceiling, never starting the tail on a tool-role
// message whose call context was dropped.
func compactMessages(messages []llms.Message, ceiling int) []llms.Message {
	if len(messages) <= ceiling {
		return messages
	}

	var system []llms.Message
	for _, msg := range messages {
		if msg.Role == llms.RoleSystem {
			system = append(system, msg)
		}
	}

	keep := ceiling - len(system)
	if keep < 1 {
		keep = 1
	}
	tail := messages[len(messages)-keep:]
	for len(tail) > 0 && tail[0].Role == llms.RoleTool {
		tail = tail[1:]
	}

	compacted := make([]llms.Message, 0, len(system)+len(tail))
	compacted = append(compacted, system...)
	compacted = append(compacted, tail...)
	return compacted
}

func encodeToolResult(result tools.ToolResult) string {
	payload := map[string]interface{}{
		"success": result.Success,
	}
	if result.Content != "" {
		payload["content"] = result.Content
	}
	if result.Error != "" {
		payload["error"] = result.Error
	}
	if len(result.Metadata) > 0 {
		payload["metadata"] = result.Metadata
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return string(data)
}

func hasImage(attachments []Attachment) bool {
	for _, a := range attachments {
		if a.IsImage() {
			return true
		}
	}
	return false
}
