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

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jungtaeinn/open-persona/pkg/agent"
	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/knowledge"
)

// ChatCmd starts an interactive chat session with one persona.
type ChatCmd struct {
	Persona string `short:"p" help:"Persona id to chat with (defaults to the first configured persona)."`
	Watch   bool   `help:"Watch knowledge directories and reindex changed documents."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	if len(cfg.Personas) == 0 {
		// Zero-config path: a single general-purpose persona.
		assistant := &config.PersonaConfig{
			ID:           "assistant",
			Name:         "Assistant",
			Instructions: "You are a helpful assistant.",
		}
		assistant.SetDefaults()
		cfg.Personas = append(cfg.Personas, assistant)
	}

	personaID := c.Persona
	if personaID == "" {
		personaID = cfg.Personas[0].ID
	}
	persona, ok := cfg.Persona(personaID)
	if !ok {
		return fmt.Errorf("unknown persona: %s", personaID)
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := rt.service.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap knowledge: %w", err)
	}

	if c.Watch {
		watcher, err := knowledge.NewWatcher(rt.knowledge)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Close()
	}

	return c.chatLoop(ctx, rt, persona.Name, personaID)
}

func (c *ChatCmd) chatLoop(ctx context.Context, rt *appRuntime, personaName, personaID string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("Chatting with %s. Commands: /clear clears history, /quit exits.\n\n", personaName)

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Print("You: ")

		input, err := reader.ReadString('\n')
		if err != nil {
			// EOF ends the session cleanly.
			fmt.Println()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			switch input {
			case "/quit", "/exit":
				return nil
			case "/clear":
				rt.service.ClearHistory(personaID)
				fmt.Println("History cleared.")
				continue
			default:
				fmt.Printf("Unknown command: %s\n", input)
				continue
			}
		}

		out, err := rt.service.SendMessage(ctx, agent.SendMessageRequest{
			Text:      input,
			PersonaID: personaID,
		})
		if err != nil {
			fmt.Printf("error: %v\n\n", err)
			continue
		}

		fmt.Printf("\n%s: ", personaName)
		for fragment := range out {
			switch {
			case fragment.Text != "":
				fmt.Print(fragment.Text)
			case fragment.ToolCall != nil:
				fmt.Printf("\n[calling %s]\n", fragment.ToolCall.Name)
			case fragment.Usage != nil:
				fmt.Printf("\n(%s/%s, %d tokens)", fragment.Usage.Provider, fragment.Usage.Model, fragment.Usage.Tokens)
			}
		}
		fmt.Print("\n\n")
	}
}
