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
	"fmt"
	"sync"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/knowledge"
)

// SendMessageRequest is one inbound user message.
type SendMessageRequest struct {
	Text        string
	PersonaID   string
	Attachments []Attachment
}

// FeedbackRequest is one user reaction to an assistant message.
type FeedbackRequest struct {
	MessageID        string
	PersonaID        string
	Type             string
	CorrectedContent string
}

// Service is the inbound surface consumed by transports. It owns
// per-persona sessions: history, and cancellation of in-flight turns.
type Service struct {
	cfg          *config.Config
	orchestrator *Orchestrator
	history      *HistoryStore
	knowledge    *knowledge.Manager

	mu       sync.Mutex
	inFlight map[string]*turnHandle
}

// turnHandle identifies one in-flight turn for cancellation.
type turnHandle struct {
	cancel context.CancelFunc
}

func NewService(cfg *config.Config, orchestrator *Orchestrator, history *HistoryStore, km *knowledge.Manager) *Service {
	return &Service{
		cfg:          cfg,
		orchestrator: orchestrator,
		history:      history,
		knowledge:    km,
		inFlight:     make(map[string]*turnHandle),
	}
}

// SendMessage starts one turn and returns its fragment stream. A new
// message on the same persona cancels the prior in-flight turn so only
// one active turn's output reaches the consumer.
func (s *Service) SendMessage(ctx context.Context, req SendMessageRequest) (<-chan Fragment, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("message text is required")
	}
	persona, ok := s.cfg.Persona(req.PersonaID)
	if !ok {
		return nil, fmt.Errorf("unknown persona: %s", req.PersonaID)
	}

	turnCtx, cancel := context.WithCancel(ctx)
	handle := &turnHandle{cancel: cancel}

	s.mu.Lock()
	if prior, exists := s.inFlight[req.PersonaID]; exists {
		prior.cancel()
	}
	s.inFlight[req.PersonaID] = handle
	s.mu.Unlock()

	out := make(chan Fragment, 16)
	go func() {
		defer close(out)
		defer func() {
			s.mu.Lock()
			// Only clear our own registration; a newer turn may
			// already have replaced it.
			if s.inFlight[req.PersonaID] == handle {
				delete(s.inFlight, req.PersonaID)
			}
			s.mu.Unlock()
			cancel()
		}()

		s.orchestrator.Run(turnCtx, persona, req.Text, req.Attachments, out)
	}()

	return out, nil
}

// ClearHistory drops the persona's conversation history.
func (s *Service) ClearHistory(personaID string) {
	s.history.Clear(personaID)
}

// Feedback forwards a user reaction to the learning pipeline, which
// writes corrections into the persona's learned index.
func (s *Service) Feedback(ctx context.Context, req FeedbackRequest) error {
	if _, ok := s.cfg.Persona(req.PersonaID); !ok {
		return fmt.Errorf("unknown persona: %s", req.PersonaID)
	}
	return s.knowledge.Learn(ctx, knowledge.Feedback{
		MessageID:        req.MessageID,
		PersonaID:        req.PersonaID,
		Type:             req.Type,
		CorrectedContent: req.CorrectedContent,
	})
}

// UploadKnowledge parses a document into the persona's learned index.
func (s *Service) UploadKnowledge(ctx context.Context, personaID, filePath, category string) (int, error) {
	if _, ok := s.cfg.Persona(personaID); !ok {
		return 0, fmt.Errorf("unknown persona: %s", personaID)
	}
	return s.knowledge.Upload(ctx, personaID, filePath, category)
}

// Bootstrap indexes bundled knowledge into each persona's static
// index. Idempotent across restarts.
func (s *Service) Bootstrap(ctx context.Context) error {
	return s.knowledge.Bootstrap(ctx)
}
