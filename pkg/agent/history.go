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
	"sync"

	"github.com/jungtaeinn/open-persona/pkg/llms"
)

// HistoryStore keeps per-persona conversation history in memory,
// bounded to the most recent turns.
type HistoryStore struct {
	mu       sync.Mutex
	sessions map[string][]llms.Message
	maxTurns int
}

func NewHistoryStore(maxTurns int) *HistoryStore {
	if maxTurns <= 0 {
		maxTurns = maxHistoryTurns
	}
	return &HistoryStore{
		sessions: make(map[string][]llms.Message),
		maxTurns: maxTurns,
	}
}

// Append records messages for a persona, evicting the oldest once the
// turn bound is exceeded. A turn is a user/assistant message pair.
func (s *HistoryStore) Append(personaID string, messages ...llms.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[personaID], messages...)
	if max := s.maxTurns * 2; len(history) > max {
		history = history[len(history)-max:]
	}
	s.sessions[personaID] = history
}

// Get returns a copy of the persona's history.
func (s *HistoryStore) Get(personaID string) []llms.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[personaID]
	out := make([]llms.Message, len(history))
	copy(out, history)
	return out
}

// Clear drops the persona's history.
func (s *HistoryStore) Clear(personaID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, personaID)
}
