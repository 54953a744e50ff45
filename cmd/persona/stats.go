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
	"context"
	"fmt"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/rag"
)

// StatsCmd prints index statistics for one or all personas.
type StatsCmd struct {
	Persona string `short:"p" help:"Persona id (defaults to all configured personas)."`
}

func (c *StatsCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	var personas []*config.PersonaConfig
	if c.Persona != "" {
		persona, ok := cfg.Persona(c.Persona)
		if !ok {
			return fmt.Errorf("unknown persona: %s", c.Persona)
		}
		personas = []*config.PersonaConfig{persona}
	} else {
		personas = cfg.Personas
	}

	ctx := context.Background()
	for _, persona := range personas {
		stats, err := rt.engine.Stats(ctx, persona.ID)
		if err != nil {
			return fmt.Errorf("failed to read stats for %s: %w", persona.ID, err)
		}

		fmt.Printf("%s (%s)\n", persona.ID, persona.Name)
		for _, kind := range []rag.IndexKind{rag.IndexStatic, rag.IndexLearned} {
			ks := stats.Indices[kind]
			fmt.Printf("  %-8s %d chunks from %d sources\n", kind, ks.Chunks, len(ks.Sources))
		}
	}
	return nil
}
