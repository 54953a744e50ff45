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

// Package agent orchestrates a user turn: intent classification, model
// selection, context building, the tool-call loop with provider
// fallback, and the streaming response surface.
package agent

import (
	"strings"

	"github.com/jungtaeinn/open-persona/pkg/config"
)

// Intent categories.
const (
	IntentCodeReview    = "code-review"
	IntentTranslation   = "translation"
	IntentDocGeneration = "doc-generation"
	IntentFileOperation = "file-operation"
	IntentKnowledge     = "knowledge-query"
	IntentGeneralChat   = "general-chat"
)

// Intent is the classified shape of one user message.
type Intent struct {
	Category       string
	Topic          string
	NeedsRetrieval bool
	NeedsTools     bool
	HasMedia       bool
	Confidence     float64
}

type intentRule struct {
	category       string
	needsRetrieval bool
	needsTools     bool
	confidence     float64
	phrases        []string
}

// Rules are ordered; the first match wins.
var intentRules = []intentRule{
	{
		category:   IntentCodeReview,
		confidence: 0.9,
		phrases: []string{
			"review this code", "review my code", "code review",
			"코드 리뷰", "refactor this", "find the bug",
		},
	},
	{
		category:   IntentTranslation,
		confidence: 0.9,
		phrases: []string{
			"translate", "translation", "번역", "in english", "in korean",
		},
	},
	{
		category:       IntentDocGeneration,
		needsRetrieval: true,
		needsTools:     true,
		confidence:     0.85,
		phrases: []string{
			"create a spreadsheet", "make a spreadsheet", "generate a spreadsheet",
			"create a document", "write a document", "make a table",
			"엑셀 만들", "문서 만들", "표 만들", "generate a report",
		},
	},
	{
		category:   IntentFileOperation,
		needsTools: true,
		confidence: 0.85,
		phrases: []string{
			"read the file", "open the file", "list the files", "save to a file",
			"write to a file", "delete the file", "rename the file", "move the file",
			"파일 읽어", "파일 저장", "파일 삭제",
		},
	},
	{
		category:       IntentKnowledge,
		needsRetrieval: true,
		confidence:     0.8,
		phrases: []string{
			"how do i", "how can i", "how to", "what is", "what does",
			"explain", "difference between", "어떻게", "무엇", "뭐야",
			"사용법", "방법",
		},
	},
}

// topicHints map keyword hits to a retrieval topic.
var topicHints = []struct {
	topic   string
	phrases []string
}{
	{"spreadsheet", []string{
		"excel", "spreadsheet", "vlookup", "pivot", "cell", "formula",
		"worksheet", "xlsx", "엑셀", "수식", "셀",
	}},
	{"presentation", []string{
		"slide", "presentation", "powerpoint", "deck", "pptx",
		"발표", "슬라이드",
	}},
	{"word-processor", []string{
		"word document", "docx", "paragraph style", "page layout",
		"문서 서식", "워드",
	}},
	{"markup", []string{
		"markdown", "html", "latex", "yaml", "xml", "마크다운",
	}},
}

// Classify maps one message to an Intent. It never fails: when no rule
// matches, a persona with a specialty gets a reduced-confidence
// knowledge query, everything else is general chat.
func Classify(text string, persona *config.PersonaConfig, hasMedia bool) Intent {
	lowered := strings.ToLower(text)

	for _, rule := range intentRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lowered, phrase) {
				return Intent{
					Category:       rule.category,
					Topic:          InferTopic(text, persona),
					NeedsRetrieval: rule.needsRetrieval,
					NeedsTools:     rule.needsTools,
					HasMedia:       hasMedia,
					Confidence:     rule.confidence,
				}
			}
		}
	}

	if persona != nil && persona.Specialty != "" {
		return Intent{
			Category:       IntentKnowledge,
			Topic:          persona.Specialty,
			NeedsRetrieval: true,
			HasMedia:       hasMedia,
			Confidence:     0.5,
		}
	}

	return Intent{
		Category:   IntentGeneralChat,
		HasMedia:   hasMedia,
		Confidence: 0.3,
	}
}

// InferTopic guesses the knowledge topic from keyword hints, falling
// back to the persona's declared specialty.
func InferTopic(text string, persona *config.PersonaConfig) string {
	lowered := strings.ToLower(text)
	for _, hint := range topicHints {
		for _, phrase := range hint.phrases {
			if strings.Contains(lowered, phrase) {
				return hint.topic
			}
		}
	}
	if persona != nil {
		return persona.Specialty
	}
	return ""
}
