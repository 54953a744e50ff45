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
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jungtaeinn/open-persona/pkg/llms"
)

// Reranker re-orders search results by relevance to the query.
type Reranker interface {
	// Rerank returns up to topK results sorted by relevance.
	Rerank(ctx context.Context, query string, results []SearchResult, topK int) ([]SearchResult, error)
}

const rerankSystemPrompt = "You are a search result reranking system. " +
	"Your task is to score and rank search results based on their relevance to a query. " +
	"Return a JSON array of result IDs sorted by relevance (most relevant first)."

// LLMReranker asks an LLM to order candidates by relevance.
//
// Scores after reranking are position-based (1.0 for first, stepping
// down 0.05 per position, floored at 0.1) and replace the fused
// scores entirely.
type LLMReranker struct {
	provider   llms.Provider
	maxResults int
}

// NewLLMReranker creates an LLM-based reranker. maxResults bounds how
// many candidates are sent to the model.
func NewLLMReranker(provider llms.Provider, maxResults int) *LLMReranker {
	if maxResults <= 0 {
		maxResults = 20
	}
	return &LLMReranker{
		provider:   provider,
		maxResults: maxResults,
	}
}

// Rerank implements the Reranker interface.
func (r *LLMReranker) Rerank(ctx context.Context, query string, results []SearchResult, topK int) ([]SearchResult, error) {
	if len(results) == 0 {
		return results, nil
	}

	candidates := results
	if len(candidates) > r.maxResults {
		candidates = candidates[:r.maxResults]
	}

	slog.Debug("LLM reranking started", "query", query, "candidates", len(candidates))

	prompt := r.buildPrompt(query, candidates)
	response, err := llms.QuickCall(ctx, r.provider, rerankSystemPrompt, prompt)
	if err != nil {
		return results[:min(topK, len(results))], fmt.Errorf("failed to rerank results: %w", err)
	}

	rankedIDs, err := parseRankedIDs(response)
	if err != nil {
		return results[:min(topK, len(results))], nil
	}

	byID := make(map[string]SearchResult, len(candidates))
	for _, result := range candidates {
		byID[result.ID] = result
	}

	reranked := make([]SearchResult, 0, len(candidates))
	seen := make(map[string]bool, len(rankedIDs))

	for i, id := range rankedIDs {
		result, exists := byID[id]
		if !exists || seen[id] {
			continue
		}
		score := 1.0 - float32(i)*0.05
		if score < 0.1 {
			score = 0.1
		}
		result.Score = score
		reranked = append(reranked, result)
		seen[id] = true
	}

	// Candidates the model left out keep their fused order at the tail
	for _, result := range candidates {
		if !seen[result.ID] {
			reranked = append(reranked, result)
		}
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if len(reranked) > topK {
		reranked = reranked[:topK]
	}

	slog.Debug("LLM reranking completed", "in", len(results), "out", len(reranked))
	return reranked, nil
}

// buildPrompt renders the query and candidates for the model.
func (r *LLMReranker) buildPrompt(query string, results []SearchResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Query: %s\n\n", sanitizeInput(query)))
	sb.WriteString("Search Results:\n\n")

	for i, result := range results {
		content := result.Content
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		content = sanitizeInput(content)

		sb.WriteString(fmt.Sprintf("Result %d (ID: %s):\n", i+1, result.ID))
		sb.WriteString(fmt.Sprintf("Content: %s\n", content))
		if source, ok := result.Metadata["source_uri"]; ok {
			sb.WriteString(fmt.Sprintf("Source: %v\n", source))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Please return a JSON array of result IDs sorted by relevance to the query (most relevant first).\n")
	sb.WriteString("Format: [\"id1\", \"id2\", \"id3\", ...]\n")
	sb.WriteString("Only include IDs that are relevant. Exclude irrelevant results.\n")

	return sb.String()
}

// parseRankedIDs extracts the ordered ID array from the model output.
func parseRankedIDs(response string) ([]string, error) {
	response = strings.TrimSpace(response)

	startIdx := strings.Index(response, "[")
	endIdx := strings.LastIndex(response, "]")
	if startIdx == -1 || endIdx == -1 || startIdx >= endIdx {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	jsonStr := response[startIdx : endIdx+1]

	var ids []string
	if err := json.Unmarshal([]byte(jsonStr), &ids); err != nil {
		jsonStr = strings.ReplaceAll(jsonStr, "'", "\"")
		if err := json.Unmarshal([]byte(jsonStr), &ids); err != nil {
			return extractIDsManually(response), nil
		}
	}

	return ids, nil
}

// extractIDsManually scavenges quoted IDs from free-form model output.
func extractIDsManually(response string) []string {
	var ids []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "\"") {
			parts := strings.Split(line, "\"")
			for i := 1; i < len(parts); i += 2 {
				if len(parts[i]) > 0 {
					ids = append(ids, parts[i])
				}
			}
		} else if strings.Contains(line, "'") {
			parts := strings.Split(line, "'")
			for i := 1; i < len(parts); i += 2 {
				if len(parts[i]) > 0 {
					ids = append(ids, parts[i])
				}
			}
		}
	}
	return ids
}

// NoOpReranker returns results unchanged, truncated to topK.
type NoOpReranker struct{}

// NewNoOpReranker creates a pass-through reranker.
func NewNoOpReranker() *NoOpReranker {
	return &NoOpReranker{}
}

// Rerank returns results unchanged.
func (r *NoOpReranker) Rerank(ctx context.Context, query string, results []SearchResult, topK int) ([]SearchResult, error) {
	if len(results) > topK {
		return results[:topK], nil
	}
	return results, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
