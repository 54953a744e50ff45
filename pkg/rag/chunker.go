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
	"strings"
	"unicode"
)

// ChunkerConfig controls chunk sizing.
type ChunkerConfig struct {
	// TokenBudget is the target chunk size in estimated tokens.
	TokenBudget int

	// Overlap is the tail of the previous chunk carried into the
	// next, in estimated tokens.
	Overlap int
}

// SetDefaults applies default sizing.
func (c *ChunkerConfig) SetDefaults() {
	if c.TokenBudget <= 0 {
		c.TokenBudget = 500
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.Overlap >= c.TokenBudget {
		c.Overlap = c.TokenBudget / 10
	}
}

// SectionChunker splits documents along their structure: a section
// under budget stays whole, an oversized section splits on paragraph
// boundaries, and only when a single paragraph alone exceeds the
// budget does it split on sentence boundaries. Output is
// deterministic for identical input and config.
type SectionChunker struct {
	config ChunkerConfig
}

// NewSectionChunker creates a chunker with the given config.
func NewSectionChunker(cfg ChunkerConfig) *SectionChunker {
	cfg.SetDefaults()
	return &SectionChunker{config: cfg}
}

// Config returns the effective configuration.
func (c *SectionChunker) Config() ChunkerConfig {
	return c.config
}

// Chunk splits the sections of one document into raw chunks carrying
// the supplied metadata. Positional fields are left unset.
func (c *SectionChunker) Chunk(sections []Section, meta ChunkMetadata) []RawChunk {
	var chunks []RawChunk

	for _, section := range sections {
		for _, content := range c.chunkSection(section) {
			chunks = append(chunks, RawChunk{
				Content:  content,
				Metadata: meta,
			})
		}
	}

	return chunks
}

// chunkSection returns the chunk contents for a single section.
func (c *SectionChunker) chunkSection(section Section) []string {
	body := strings.TrimSpace(section.Body)
	title := strings.TrimSpace(section.Title)
	if body == "" && title == "" {
		return nil
	}

	whole := joinTitled(title, body)
	if EstimateTokens(whole) <= c.config.TokenBudget {
		return []string{whole}
	}

	// Break the body into pieces that each fit the budget
	var pieces []string
	for _, para := range splitParagraphs(body) {
		if EstimateTokens(para) <= c.config.TokenBudget {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, splitSentences(para)...)
	}

	var out []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, joinTitled(title, strings.Join(current, "\n\n")))
		current = nil
		currentTokens = 0
	}

	for _, piece := range pieces {
		tokens := EstimateTokens(piece)
		if currentTokens > 0 && currentTokens+tokens > c.config.TokenBudget {
			tail := overlapTail(current, c.config.Overlap)
			flush()
			if tail != "" {
				// The tail carries over only when the next
				// piece still fits beside it within budget.
				tailTokens := EstimateTokens(tail)
				if tailTokens+tokens <= c.config.TokenBudget {
					current = append(current, tail)
					currentTokens = tailTokens
				}
			}
		}
		current = append(current, piece)
		currentTokens += tokens
	}
	flush()

	return out
}

// overlapTail collects trailing pieces of the current chunk up to the
// overlap token budget, preserving their order.
func overlapTail(pieces []string, overlap int) string {
	if overlap <= 0 || len(pieces) == 0 {
		return ""
	}

	var tail []string
	tokens := 0
	for i := len(pieces) - 1; i >= 0 && tokens < overlap; i-- {
		piece := pieces[i]
		pieceTokens := EstimateTokens(piece)
		if tokens+pieceTokens > overlap && len(tail) > 0 {
			break
		}
		if tokens+pieceTokens > overlap {
			// Truncate a single oversized piece to roughly the
			// overlap budget, keeping its end.
			piece = trailingTokens(piece, overlap)
			pieceTokens = EstimateTokens(piece)
		}
		tail = append([]string{piece}, tail...)
		tokens += pieceTokens
	}

	return strings.Join(tail, "\n\n")
}

// trailingTokens returns the suffix of text estimated at roughly the
// given token count, cut at a rune boundary.
func trailingTokens(text string, tokens int) string {
	runes := []rune(text)
	// Worst case for the estimator is ~2 chars per token
	maxRunes := tokens * 2
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[len(runes)-maxRunes:]))
}

func joinTitled(title, body string) string {
	switch {
	case title == "":
		return body
	case body == "":
		return title
	default:
		return title + "\n" + body
	}
}

// splitParagraphs splits on blank lines.
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentenceEnders terminate a sentence when followed by whitespace or
// end of text. Includes CJK full stops.
var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
}

// splitSentences splits a paragraph on sentence boundaries.
func splitSentences(text string) []string {
	var out []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if !sentenceEnders[r] {
			continue
		}
		atEnd := i == len(runes)-1
		followedBySpace := !atEnd && unicode.IsSpace(runes[i+1])
		// CJK stops end sentences without trailing whitespace
		cjkStop := r == '。' || r == '！' || r == '？'
		if atEnd || followedBySpace || cjkStop {
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// EstimateTokens approximates the token count of text from character
// counts: scripts without word-boundary whitespace (CJK) run about 2
// characters per token, space-delimited scripts about 3.5.
func EstimateTokens(text string) int {
	var cjk, other int
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}

	tokens := float64(cjk)/2.0 + float64(other)/3.5
	if tokens < 1 && len(text) > 0 {
		return 1
	}
	return int(tokens)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}
