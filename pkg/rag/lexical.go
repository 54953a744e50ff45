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
	"sort"
	"strings"
	"unicode"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// LexicalSearch scores chunks against the query with a BM25-shaped
// function over term frequency and document length. Term rarity (IDF)
// is approximated as uniform, so rare and common terms weigh the
// same; exact literals like function names and cell references still
// surface because they only occur in matching chunks.
func LexicalSearch(query string, chunks []StoredChunk, topK int) []SearchResult {
	if topK <= 0 || len(chunks) == 0 {
		return nil
	}

	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	// Deduplicate query terms; repeated terms should not double-score
	seen := make(map[string]bool, len(queryTerms))
	terms := queryTerms[:0]
	for _, t := range queryTerms {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}

	docTerms := make([]map[string]int, len(chunks))
	var totalLen int
	for i, chunk := range chunks {
		tokens := Tokenize(chunk.Content)
		freqs := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freqs[t]++
		}
		docTerms[i] = freqs
		totalLen += len(tokens)
	}
	avgLen := float64(totalLen) / float64(len(chunks))
	if avgLen == 0 {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	var hits []scored

	for i, freqs := range docTerms {
		docLen := 0
		for _, f := range freqs {
			docLen += f
		}
		var score float64
		for _, term := range terms {
			tf := float64(freqs[term])
			if tf == 0 {
				continue
			}
			norm := bm25K1 * (1 - bm25B + bm25B*float64(docLen)/avgLen)
			score += tf * (bm25K1 + 1) / (tf + norm)
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return chunks[hits[a].idx].ID < chunks[hits[b].idx].ID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		chunk := chunks[h.idx]
		metadata := make(map[string]interface{}, len(chunk.Metadata))
		for k, v := range chunk.Metadata {
			metadata[k] = v
		}
		out = append(out, SearchResult{
			ID:       chunk.ID,
			Content:  chunk.Content,
			Score:    float32(h.score),
			Metadata: metadata,
		})
	}
	return out
}

// Tokenize lowercases text and splits it into terms. Runs of letters
// and digits become single terms; CJK runs become character bigrams
// since those scripts carry no word-boundary whitespace.
func Tokenize(text string) []string {
	var tokens []string
	var word strings.Builder
	var cjkRun []rune

	flushWord := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	flushCJK := func() {
		if len(cjkRun) == 1 {
			tokens = append(tokens, string(cjkRun[0]))
		} else {
			for i := 0; i+1 < len(cjkRun); i++ {
				tokens = append(tokens, string(cjkRun[i:i+2]))
			}
		}
		cjkRun = cjkRun[:0]
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case isCJK(r):
			flushWord()
			cjkRun = append(cjkRun, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if len(cjkRun) > 0 {
				flushCJK()
			}
			word.WriteRune(r)
		default:
			flushWord()
			if len(cjkRun) > 0 {
				flushCJK()
			}
		}
	}
	flushWord()
	if len(cjkRun) > 0 {
		flushCJK()
	}

	return tokens
}
